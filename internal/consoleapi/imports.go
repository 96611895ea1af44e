package consoleapi

import (
	"encoding/json"
	"net/http"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/mapview"
)

const maxUploadBytes = 32 << 20 // 32 MB

// Corridors

func (a *API) handleListCorridors(w http.ResponseWriter, r *http.Request) {
	corridors, err := a.client.ListCorridors(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, corridors)
}

func (a *API) handleCorridorGeoJSON(w http.ResponseWriter, r *http.Request) {
	raw, err := a.client.CorridorGeoJSON(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(raw)
}

func (a *API) decodeCorridorInput(w http.ResponseWriter, r *http.Request) (backend.CorridorInput, bool) {
	var in backend.CorridorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return in, false
	}
	return in, true
}

func (a *API) handleCreateCorridor(w http.ResponseWriter, r *http.Request) {
	in, ok := a.decodeCorridorInput(w, r)
	if !ok {
		return
	}
	cor, err := a.client.CreateCorridor(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.cache.Invalidate(r.Context(), mapview.KindCorridors)
	writeJSON(w, http.StatusCreated, cor)
}

func (a *API) handleUpdateCorridor(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid corridor id"})
		return
	}
	in, ok := a.decodeCorridorInput(w, r)
	if !ok {
		return
	}
	cor, err := a.client.UpdateCorridor(r.Context(), id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.cache.Invalidate(r.Context(), mapview.KindCorridors)
	writeJSON(w, http.StatusOK, cor)
}

func (a *API) handleDeleteCorridor(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid corridor id"})
		return
	}
	if err := a.client.DeleteCorridor(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.cache.Invalidate(r.Context(), mapview.KindCorridors)
	w.WriteHeader(http.StatusNoContent)
}

// Watchlist

func (a *API) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := a.client.Watchlist(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleWatchlistImport forwards the uploaded file and renders the partial
// batch summary: the accepted count is kept even when some rows fail, with
// per-row errors listed alongside.
func (a *API) handleWatchlistImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	sum, err := a.client.ImportWatchlist(r.Context(), header.Filename, file, r.FormValue("source"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleWatchlistDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid watchlist id"})
		return
	}
	if err := a.client.DeleteWatchlistEntry(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AIS ingestion

func (a *API) handleAISImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	sum, err := a.client.ImportAIS(r.Context(), header.Filename, file)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleIngestionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.client.GetIngestionStatus(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Verification

func (a *API) handleVerificationBudget(w http.ResponseWriter, r *http.Request) {
	b, err := a.gate.Refresh(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remaining":  b.Remaining,
		"limit":      b.Limit,
		"used":       b.Used,
		"can_verify": a.gate.CanVerify(),
	})
}

func (a *API) handleVerifyVessel(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vessel id"})
		return
	}
	var p struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Provider == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "provider is required"})
		return
	}

	res, err := a.gate.Verify(r.Context(), id, p.Provider)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vessel id"})
		return
	}
	var p struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := a.client.UpdateVesselOwner(r.Context(), id, p.Owner); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
