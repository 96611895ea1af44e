package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// DetectGaps runs AIS gap detection over ingested track data.
func (c *Client) DetectGaps(ctx context.Context) (*DetectionResult, error) {
	return c.detect(ctx, "gaps/detect", nil)
}

// DetectSpoofing runs position-spoofing detection, optionally bounded to a
// date window.
func (c *Client) DetectSpoofing(ctx context.Context, dateFrom, dateTo time.Time) (*DetectionResult, error) {
	q := url.Values{}
	if !dateFrom.IsZero() {
		q.Set("date_from", dateFrom.UTC().Format(time.RFC3339))
	}
	if !dateTo.IsZero() {
		q.Set("date_to", dateTo.UTC().Format(time.RFC3339))
	}
	if len(q) == 0 {
		q = nil
	}
	return c.detect(ctx, "spoofing/detect", q)
}

// DetectLoitering runs loitering detection.
func (c *Client) DetectLoitering(ctx context.Context) (*DetectionResult, error) {
	return c.detect(ctx, "loitering/detect", nil)
}

// DetectSTS runs ship-to-ship encounter detection.
func (c *Client) DetectSTS(ctx context.Context) (*DetectionResult, error) {
	return c.detect(ctx, "sts/detect", nil)
}

// ScoreAlerts computes risk scores for unscored alerts.
func (c *Client) ScoreAlerts(ctx context.Context) (*DetectionResult, error) {
	return c.detect(ctx, "score-alerts", nil)
}

// RescoreAll recomputes risk scores for every alert.
func (c *Client) RescoreAll(ctx context.Context) (*DetectionResult, error) {
	return c.detect(ctx, "rescore-all-alerts", nil)
}

func (c *Client) detect(ctx context.Context, route string, q url.Values) (*DetectionResult, error) {
	var res DetectionResult
	if err := c.doJSON(ctx, http.MethodPost, route, q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
