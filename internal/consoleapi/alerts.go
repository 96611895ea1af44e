package consoleapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/export"
)

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int64("darkwatch.alert.id", id))

	al, err := a.fetchAlert(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	c, err := a.controller(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alert":           al,
		"status_pending":  c.StatusPending(),
		"notes_unsaved":   c.Dirty(),
		"saved_confirmed": c.SavedConfirmationVisible(),
	})
}

func (a *API) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}

	env, err := a.client.GetMovementEnvelope(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}
	var p struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	c, err := a.controller(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := c.SetStatus(r.Context(), backend.AlertStatus(p.Status), p.Reason); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(c.Status())})
}

func (a *API) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}
	var p struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	c, err := a.controller(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	c.EditNotes(p.Notes)
	if err := c.SaveNotes(r.Context()); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}

	c, err := a.controller(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := c.Export(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleSatelliteCheck(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}

	c, err := a.controller(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	msg, err := c.SatelliteCheck(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (a *API) handleTimelineCSV(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}

	al, err := a.fetchAlert(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	// the envelope enriches the timeline but its absence is not an error
	env, err := a.client.GetMovementEnvelope(r.Context(), id)
	if err != nil {
		env = nil
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="timeline.csv"`)
	if err := export.WriteCSV(w, export.BuildTimeline(al, env)); err != nil {
		a.logger.Error(r.Context(), err, "timeline csv write failed", "alert_id", id)
	}
}
