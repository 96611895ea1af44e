// Package export renders analyst-facing export artifacts the backend does
// not produce itself, currently the per-alert event timeline CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// TimelineEvent is one row of the exported timeline.
type TimelineEvent struct {
	Type      string
	Timestamp time.Time
	Summary   string
}

// BuildTimeline assembles the event sequence for one alert, in time order:
// last known fix, gap start, interpolated positions, gap end, first fix
// after the gap.
func BuildTimeline(al *backend.Alert, env *backend.MovementEnvelope) []TimelineEvent {
	var events []TimelineEvent

	if env != nil && env.LastKnown != nil {
		events = append(events, TimelineEvent{
			Type:      "last_known_position",
			Timestamp: env.LastKnown.Timestamp,
			Summary:   fmt.Sprintf("last AIS fix at %.4f, %.4f", env.LastKnown.Lat, env.LastKnown.Lon),
		})
	}

	events = append(events, TimelineEvent{
		Type:      "gap_start",
		Timestamp: al.GapStartUTC,
		Summary:   fmt.Sprintf("AIS signal lost, vessel %q", al.VesselName),
	})

	if env != nil {
		for _, p := range env.Interpolated {
			events = append(events, TimelineEvent{
				Type:      "interpolated_position",
				Timestamp: p.Timestamp,
				Summary:   fmt.Sprintf("estimated position %.4f, %.4f (%s)", p.Lat, p.Lon, env.Method),
			})
		}
	}

	events = append(events, TimelineEvent{
		Type:      "gap_end",
		Timestamp: al.GapEndUTC,
		Summary:   fmt.Sprintf("AIS signal resumed after %.0f minutes", al.DurationMinutes),
	})

	if env != nil && env.FirstAfterGap != nil {
		events = append(events, TimelineEvent{
			Type:      "first_after_gap_position",
			Timestamp: env.FirstAfterGap.Timestamp,
			Summary:   fmt.Sprintf("first AIS fix after gap at %.4f, %.4f", env.FirstAfterGap.Lat, env.FirstAfterGap.Lon),
		})
	}

	return events
}

// WriteCSV writes the timeline with header event_type,timestamp,summary.
// encoding/csv quotes fields as needed and doubles embedded quotes.
func WriteCSV(w io.Writer, events []TimelineEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"event_type", "timestamp", "summary"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range events {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{e.Type, ts, e.Summary}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
