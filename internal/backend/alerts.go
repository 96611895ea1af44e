package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SortKey selects the alert queue sort column.
type SortKey string

const (
	SortRiskScore       SortKey = "risk_score"
	SortGapStart        SortKey = "gap_start_utc"
	SortDurationMinutes SortKey = "duration_minutes"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListAlertsParams are the server-side filters, sort and pagination for the
// alert queue. Zero values are omitted from the query string.
type ListAlertsParams struct {
	MinScore   *float64
	Status     AlertStatus
	VesselName string
	DateFrom   time.Time
	DateTo     time.Time
	CorridorID *int64
	VesselID   *int64
	SortBy     SortKey
	SortOrder  SortOrder
	Skip       int
	Limit      int
}

// Query encodes the params as a canonical (sorted-key) query string.
// url.Values.Encode sorts by key, so identical params always produce
// identical strings; the resource cache relies on this for dedup.
func (p ListAlertsParams) Query() url.Values {
	q := url.Values{}
	if p.MinScore != nil {
		q.Set("min_score", strconv.FormatFloat(*p.MinScore, 'f', -1, 64))
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.VesselName != "" {
		q.Set("vessel_name", p.VesselName)
	}
	if !p.DateFrom.IsZero() {
		q.Set("date_from", p.DateFrom.UTC().Format(time.RFC3339))
	}
	if !p.DateTo.IsZero() {
		q.Set("date_to", p.DateTo.UTC().Format(time.RFC3339))
	}
	if p.CorridorID != nil {
		q.Set("corridor_id", strconv.FormatInt(*p.CorridorID, 10))
	}
	if p.VesselID != nil {
		q.Set("vessel_id", strconv.FormatInt(*p.VesselID, 10))
	}
	if p.SortBy != "" {
		q.Set("sort_by", string(p.SortBy))
	}
	if p.SortOrder != "" {
		q.Set("sort_order", string(p.SortOrder))
	}
	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	return q
}

// ListAlerts fetches one page of the alert queue.
func (c *Client) ListAlerts(ctx context.Context, p ListAlertsParams) (*AlertPage, error) {
	var page AlertPage
	if err := c.doJSON(ctx, http.MethodGet, "alerts", p.Query(), nil, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []Alert{}
	}
	return &page, nil
}

// GetAlert fetches a single alert by gap event ID.
func (c *Client) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	var al Alert
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("alerts/%d", id), nil, nil, &al); err != nil {
		return nil, err
	}
	return &al, nil
}

// GetMovementEnvelope fetches the movement envelope computed for an alert.
func (c *Client) GetMovementEnvelope(ctx context.Context, id int64) (*MovementEnvelope, error) {
	var env MovementEnvelope
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("alerts/%d/envelope", id), nil, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// UpdateStatus sets an alert's workflow status. The server confirms before
// any local state is changed.
func (c *Client) UpdateStatus(ctx context.Context, id int64, status AlertStatus, reason string) (*Alert, error) {
	body := map[string]string{"status": string(status)}
	if reason != "" {
		body["reason"] = reason
	}
	var al Alert
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("alerts/%d/status", id), nil, body, &al); err != nil {
		return nil, err
	}
	return &al, nil
}

// UpdateNotes persists an alert's analyst notes.
func (c *Client) UpdateNotes(ctx context.Context, id int64, notes string) error {
	body := map[string]string{"notes": notes}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("alerts/%d/notes", id), nil, body, nil)
}

// BulkStatus applies one status to a set of alerts in a single batched call
// and returns the number of rows the server updated.
func (c *Client) BulkStatus(ctx context.Context, ids []int64, status AlertStatus) (int, error) {
	body := map[string]any{"alert_ids": ids, "status": string(status)}
	var resp struct {
		Updated int `json:"updated"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "alerts/bulk-status", nil, body, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

// ExportAlert renders an alert as a markdown or JSON document. The workflow
// controller enforces the status precondition before this is ever called.
func (c *Client) ExportAlert(ctx context.Context, id int64, format string) (*ExportResult, error) {
	q := url.Values{}
	q.Set("format", format)
	var res ExportResult
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("alerts/%d/export", id), q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PrepareSatelliteCheck asks the backend to assemble satellite tasking data
// for an alert. Safe to call repeatedly; does not change alert status.
func (c *Client) PrepareSatelliteCheck(ctx context.Context, id int64) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("alerts/%d/satellite-check", id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// MapPoints fetches alert marker positions for the map view.
func (c *Client) MapPoints(ctx context.Context) ([]MapPoint, error) {
	var resp struct {
		Points []MapPoint `json:"points"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "alerts/map", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Points, nil
}
