package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Watchlist fetches all watched vessels.
func (c *Client) Watchlist(ctx context.Context) ([]WatchlistEntry, error) {
	var out []WatchlistEntry
	if err := c.doJSON(ctx, http.MethodGet, "watchlist", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportWatchlist uploads a watchlist file tagged with its source. The
// returned summary keeps the accepted count even when some rows fail.
func (c *Client) ImportWatchlist(ctx context.Context, filename string, file io.Reader, source string) (*ImportSummary, error) {
	var sum ImportSummary
	fields := map[string]string{"source": source}
	if err := c.doMultipart(ctx, "watchlist/import", "file", filename, file, fields, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// DeleteWatchlistEntry removes a watched vessel.
func (c *Client) DeleteWatchlistEntry(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("watchlist/%d", id), nil, nil, nil)
}

// ImportAIS uploads an AIS message file for ingestion.
func (c *Client) ImportAIS(ctx context.Context, filename string, file io.Reader) (*ImportSummary, error) {
	var sum ImportSummary
	if err := c.doMultipart(ctx, "ais/import", "file", filename, file, nil, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// GetIngestionStatus polls the state of a background AIS ingestion.
func (c *Client) GetIngestionStatus(ctx context.Context) (*IngestionStatus, error) {
	var st IngestionStatus
	if err := c.doJSON(ctx, http.MethodGet, "ingestion-status", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
