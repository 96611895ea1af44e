package consoleapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/darkwatch/internal/pipeline"
)

func (a *API) handleStartPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := a.runner.Start(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id})
}

func (a *API) handlePipelineStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.runner.Snapshot())
}

func (a *API) handleTriggerStage(w http.ResponseWriter, r *http.Request) {
	stage := pipeline.Stage(chi.URLParam(r, "stage"))
	res, err := a.runner.TriggerStage(r.Context(), stage)
	if err != nil {
		// a failed backend call still produced a trigger result; surface
		// both so the stage's own error state renders
		if res != nil {
			writeJSON(w, http.StatusBadGateway, res)
			return
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
