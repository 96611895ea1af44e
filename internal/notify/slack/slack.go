// Package slack posts pipeline run outcomes to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/darkwatch/internal/pipeline"
)

const httpTimeout = 10 * time.Second

// Notifier sends pipeline run outcomes to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyRun is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// NotifyRun posts a terminal pipeline run state to the configured webhook.
// Notification failures are swallowed: the run outcome itself is unaffected.
func (n *Notifier) NotifyRun(ctx context.Context, snap *pipeline.Snapshot) {
	_ = n.send(ctx, snap)
}

func (n *Notifier) send(ctx context.Context, snap *pipeline.Snapshot) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(snap)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(snap *pipeline.Snapshot) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(snap),
			{"type": "divider"},
			stagesBlock(snap),
			{"type": "divider"},
			contextBlock(snap),
		},
	}
}

func headerBlock(snap *pipeline.Snapshot) map[string]any {
	emoji := "\U0001f7e2" // green circle
	title := "Detection Pipeline Complete"
	if snap.State == pipeline.RunFailed {
		emoji = "\U0001f534" // red circle
		title = fmt.Sprintf("Detection Pipeline Failed at %s", snap.FailedStage)
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s", emoji, title),
		},
	}
}

func stagesBlock(snap *pipeline.Snapshot) map[string]any {
	fields := make([]map[string]any, 0, len(snap.Stages))
	for _, st := range snap.Stages {
		text := fmt.Sprintf("*%s:* %s", st.Stage, st.State)
		if st.State == pipeline.StageSucceeded {
			text = fmt.Sprintf("*%s:* %d detected", st.Stage, st.Detected)
		}
		if st.Error != "" {
			text = fmt.Sprintf("*%s:* %s", st.Stage, st.Error)
		}
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": text,
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(snap *pipeline.Snapshot) map[string]any {
	ts := snap.CompletedAt
	if ts.IsZero() {
		ts = snap.StartedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("darkwatch • run %s • %s", snap.RunID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}
