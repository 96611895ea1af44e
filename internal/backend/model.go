package backend

import "time"

// AlertStatus tracks where a dark-event alert is in the analyst workflow.
type AlertStatus string

const (
	// StatusNew means created by detection, not yet looked at
	StatusNew AlertStatus = "new"

	// StatusUnderReview means an analyst has picked it up
	StatusUnderReview AlertStatus = "under_review"

	// StatusNeedsSatelliteCheck means imagery confirmation was requested
	StatusNeedsSatelliteCheck AlertStatus = "needs_satellite_check"

	// StatusDocumented means the analyst wrote it up
	StatusDocumented AlertStatus = "documented"

	// StatusDismissed means judged benign
	StatusDismissed AlertStatus = "dismissed"
)

// Valid reports whether s is one of the known workflow statuses.
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusNew, StatusUnderReview, StatusNeedsSatelliteCheck, StatusDocumented, StatusDismissed:
		return true
	}
	return false
}

// Alert is one AIS-gap dark event as served by the detection backend.
// Created by backend detection; the console only ever mutates status and notes.
type Alert struct {
	GapEventID         int64              `json:"gap_event_id"`
	VesselID           int64              `json:"vessel_id"`
	VesselName         string             `json:"vessel_name"`
	GapStartUTC        time.Time          `json:"gap_start_utc"`
	GapEndUTC          time.Time          `json:"gap_end_utc"`
	DurationMinutes    float64            `json:"duration_minutes"`
	RiskScore          float64            `json:"risk_score"`
	RiskBreakdown      map[string]float64 `json:"risk_breakdown,omitempty"`
	Status             AlertStatus        `json:"status"`
	ImpossibleSpeed    bool               `json:"impossible_speed_flag"`
	InDarkZone         bool               `json:"in_dark_zone"`
	IsRecurringPattern bool               `json:"is_recurring_pattern"`
	CorridorID         *int64             `json:"corridor_id,omitempty"`
	AnalystNotes       string             `json:"analyst_notes,omitempty"`
}

// AlertPage is one page of the alert queue plus the unpaginated match count.
type AlertPage struct {
	Items []Alert `json:"items"`
	Total int     `json:"total"`
}

// Position is a single vessel fix.
type Position struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// MovementEnvelope is the backend's plausible-position artifact bridging a gap.
// Read-only once fetched.
type MovementEnvelope struct {
	GapEventID       int64      `json:"gap_event_id"`
	LastKnown        *Position  `json:"last_known_position,omitempty"`
	FirstAfterGap    *Position  `json:"first_after_gap_position,omitempty"`
	ConfidenceRadius float64    `json:"confidence_radius_nm"`
	Ellipse          [][2]float64 `json:"confidence_ellipse,omitempty"`
	Interpolated     []Position `json:"interpolated_positions,omitempty"`
	Method           string     `json:"estimation_method"`
}

// CorridorType classifies a monitored geographic zone.
type CorridorType string

const (
	CorridorTransit     CorridorType = "transit"
	CorridorSTSZone     CorridorType = "sts_zone"
	CorridorJammingZone CorridorType = "jamming_zone"
	CorridorExportRoute CorridorType = "export_route"
	CorridorImportRoute CorridorType = "import_route"
	CorridorDarkZone    CorridorType = "dark_zone"
)

// Corridor is a named geographic zone used for risk attribution.
type Corridor struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Type         CorridorType `json:"corridor_type"`
	Geometry     [][2]float64 `json:"geometry"`
	RiskWeight   float64      `json:"risk_weight"`
	IsJamming    bool         `json:"is_jamming"`
	Alerts7Days  int          `json:"alerts_7d"`
	Alerts30Days int          `json:"alerts_30d"`
}

// MapPoint is one alert marker position for the map view.
type MapPoint struct {
	GapEventID int64   `json:"gap_event_id"`
	VesselName string  `json:"vessel_name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RiskScore  float64 `json:"risk_score"`
}

// DetectionResult is the summary a detection stage returns.
type DetectionResult struct {
	Detected int    `json:"detected"`
	Scored   int    `json:"scored,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ExportResult carries a rendered alert export document.
type ExportResult struct {
	Content   string `json:"content"`
	MediaType string `json:"media_type"`
}

// WatchlistEntry is one watched vessel.
type WatchlistEntry struct {
	ID         int64  `json:"id"`
	VesselID   int64  `json:"vessel_id,omitempty"`
	VesselName string `json:"vessel_name"`
	IMO        string `json:"imo,omitempty"`
	MMSI       string `json:"mmsi,omitempty"`
	Source     string `json:"source"`
	Reason     string `json:"reason,omitempty"`
}

// ImportSummary reports a partial-batch file import: accepted rows, rejected
// rows, and per-row errors. Accepted rows are kept even when others fail.
type ImportSummary struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// IngestionStatus is the polled state of a background AIS ingestion.
type IngestionStatus struct {
	State     string `json:"state"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
}

// VerificationBudget is the remaining allowance for paid registry lookups.
type VerificationBudget struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
	Used      int `json:"used"`
}

// VerificationResult is the outcome of a registry verification call.
type VerificationResult struct {
	VesselID int64  `json:"vessel_id"`
	Provider string `json:"provider"`
	Owner    string `json:"owner,omitempty"`
	Flag     string `json:"flag,omitempty"`
	Message  string `json:"message,omitempty"`
}
