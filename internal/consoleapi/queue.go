package consoleapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/queue"
)

type queueView struct {
	Items        []backend.Alert `json:"items"`
	Total        int             `json:"total"`
	Page         int             `json:"page"`
	TotalPages   int             `json:"total_pages"`
	SortBy       string          `json:"sort_by"`
	SortOrder    string          `json:"sort_order"`
	Selected     []int64         `json:"selected"`
	BulkInFlight bool            `json:"bulk_in_flight"`
}

func (a *API) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	page, err := a.engine.Fetch(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sortBy, sortOrder := a.engine.Sort()
	writeJSON(w, http.StatusOK, queueView{
		Items:        page.Items,
		Total:        page.Total,
		Page:         page.Page,
		TotalPages:   page.TotalPages,
		SortBy:       string(sortBy),
		SortOrder:    string(sortOrder),
		Selected:     a.engine.Selection().IDs(),
		BulkInFlight: a.bulk.InFlight(),
	})
}

type filtersPayload struct {
	MinScore   *float64 `json:"min_score,omitempty"`
	Status     string   `json:"status,omitempty"`
	VesselName string   `json:"vessel_name,omitempty"`
	DateFrom   string   `json:"date_from,omitempty"`
	DateTo     string   `json:"date_to,omitempty"`
	CorridorID *int64   `json:"corridor_id,omitempty"`
	VesselID   *int64   `json:"vessel_id,omitempty"`
}

func (a *API) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var p filtersPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	f := queue.Filters{
		MinScore:   p.MinScore,
		Status:     backend.AlertStatus(p.Status),
		VesselName: p.VesselName,
		CorridorID: p.CorridorID,
		VesselID:   p.VesselID,
	}
	if p.DateFrom != "" {
		t, err := time.Parse(time.RFC3339, p.DateFrom)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_from"})
			return
		}
		f.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := time.Parse(time.RFC3339, p.DateTo)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_to"})
			return
		}
		f.DateTo = t
	}

	a.engine.SetFilters(f)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleToggleSort(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	key := backend.SortKey(p.Key)
	switch key {
	case backend.SortRiskScore, backend.SortGapStart, backend.SortDurationMinutes:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown sort key"})
		return
	}

	a.engine.ToggleSort(key)
	sortBy, sortOrder := a.engine.Sort()
	writeJSON(w, http.StatusOK, map[string]string{
		"sort_by":    string(sortBy),
		"sort_order": string(sortOrder),
	})
}

func (a *API) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Page int    `json:"page,omitempty"`
		Step string `json:"step,omitempty"` // next | prev
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	switch p.Step {
	case "next":
		a.engine.NextPage()
	case "prev":
		a.engine.PrevPage()
	case "":
		if p.Page < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page must be >= 1"})
			return
		}
		a.engine.SetPage(p.Page)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "step must be next or prev"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"page": a.engine.Page()})
}

func (a *API) handlePatternsOnly(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a.engine.SetPatternsOnly(p.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	var p struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a.engine.Selection().SelectAll(p.IDs)
	writeJSON(w, http.StatusOK, map[string]int{"selected": a.engine.Selection().Size()})
}

func (a *API) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert id"})
		return
	}
	selected := a.engine.Selection().Toggle(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": selected,
		"size":     a.engine.Selection().Size(),
	})
}

func (a *API) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	a.engine.Selection().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	status := backend.AlertStatus(p.Status)
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	// capture the IDs first: a successful apply clears the selection
	ids := a.engine.Selection().IDs()
	updated, err := a.bulk.Apply(r.Context(), a.engine.Selection(), status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.dropControllers(ids)
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
