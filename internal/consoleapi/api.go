// Package consoleapi is the HTTP surface of the analyst console. It exposes
// the queue, workflow, pipeline and map operations over chi and maps every
// failure to an inline-banner-style JSON error at the handler boundary;
// nothing is retried automatically.
package consoleapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/pipeline"
	"github.com/linnemanlabs/darkwatch/internal/queue"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
	"github.com/linnemanlabs/darkwatch/internal/workflow"
)

// API holds dependencies for the console HTTP handlers.
type API struct {
	logger  log.Logger
	client  *backend.Client
	cache   *rescache.Cache
	engine  *queue.Engine
	bulk    *queue.BulkCoordinator
	runner  *pipeline.Runner
	gate    *workflow.VerificationGate

	mu          sync.Mutex
	controllers map[int64]*workflow.Controller
}

// New creates the console API handler.
func New(logger log.Logger, client *backend.Client, cache *rescache.Cache, engine *queue.Engine, bulk *queue.BulkCoordinator, runner *pipeline.Runner, gate *workflow.VerificationGate) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if client == nil {
		panic(xerrors.New("backend client is required"))
	}
	if cache == nil {
		panic(xerrors.New("resource cache is required"))
	}
	return &API{
		logger:      logger,
		client:      client,
		cache:       cache,
		engine:      engine,
		bulk:        bulk,
		runner:      runner,
		gate:        gate,
		controllers: make(map[int64]*workflow.Controller),
	}
}

// RegisterRoutes attaches console endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/console/v1", func(r chi.Router) {
		r.Get("/queue", a.handleGetQueue)
		r.Post("/queue/filters", a.handleSetFilters)
		r.Post("/queue/sort", a.handleToggleSort)
		r.Post("/queue/page", a.handleSetPage)
		r.Post("/queue/patterns-only", a.handlePatternsOnly)
		r.Post("/queue/selection", a.handleSelectAll)
		r.Post("/queue/selection/{id}/toggle", a.handleToggleSelection)
		r.Delete("/queue/selection", a.handleClearSelection)
		r.Post("/queue/bulk-status", a.handleBulkStatus)

		r.Get("/alerts/{id}", a.handleGetAlert)
		r.Get("/alerts/{id}/envelope", a.handleGetEnvelope)
		r.Get("/alerts/{id}/timeline.csv", a.handleTimelineCSV)
		r.Post("/alerts/{id}/status", a.handleUpdateStatus)
		r.Post("/alerts/{id}/notes", a.handleUpdateNotes)
		r.Post("/alerts/{id}/export", a.handleExport)
		r.Post("/alerts/{id}/satellite-check", a.handleSatelliteCheck)

		r.Post("/pipeline/run", a.handleStartPipeline)
		r.Get("/pipeline", a.handlePipelineStatus)
		r.Post("/pipeline/stages/{stage}", a.handleTriggerStage)

		r.Get("/map/scene", a.handleMapScene)

		r.Get("/corridors", a.handleListCorridors)
		r.Post("/corridors", a.handleCreateCorridor)
		r.Get("/corridors/geojson", a.handleCorridorGeoJSON)
		r.Patch("/corridors/{id}", a.handleUpdateCorridor)
		r.Delete("/corridors/{id}", a.handleDeleteCorridor)

		r.Get("/watchlist", a.handleWatchlist)
		r.Post("/watchlist/import", a.handleWatchlistImport)
		r.Delete("/watchlist/{id}", a.handleWatchlistDelete)

		r.Post("/ais/import", a.handleAISImport)
		r.Get("/ingestion-status", a.handleIngestionStatus)

		r.Get("/verification/budget", a.handleVerificationBudget)
		r.Post("/vessels/{id}/verify", a.handleVerifyVessel)
		r.Patch("/vessels/{id}/owner", a.handleUpdateOwner)
	})
}

// controller returns the workflow controller for an alert, fetching the
// alert through the cache and creating the controller on first use.
func (a *API) controller(ctx context.Context, id int64) (*workflow.Controller, error) {
	a.mu.Lock()
	c, ok := a.controllers[id]
	a.mu.Unlock()
	if ok {
		return c, nil
	}

	al, err := a.fetchAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.controllers[id]; ok {
		return c, nil
	}
	c = workflow.NewController(a.client, a.cache, a.logger, al)
	a.controllers[id] = c
	return c, nil
}

// dropControllers forgets cached per-alert controllers whose backing alert
// was changed outside of them, so the next per-alert operation rebuilds its
// state from a fresh read.
func (a *API) dropControllers(ids []int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		delete(a.controllers, id)
	}
}

func (a *API) fetchAlert(ctx context.Context, id int64) (*backend.Alert, error) {
	key := rescache.Key{Kind: queue.KindAlert, Params: strconv.FormatInt(id, 10)}
	v, err := a.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return a.client.GetAlert(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	al, ok := v.(*backend.Alert)
	if !ok {
		return nil, errors.New("unexpected cache payload for alert")
	}
	return al, nil
}

func urlParamID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to the banner payload the UI renders inline.
// Backend errors keep their status and server detail; local precondition
// failures become client errors without a round trip having happened.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway

	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
		err = errors.New(apiErr.Detail)
	case errors.Is(err, workflow.ErrExportNotReady),
		errors.Is(err, queue.ErrNothingSelected),
		errors.Is(err, workflow.ErrInvalidStatus),
		errors.Is(err, workflow.ErrInvalidExportFormat),
		errors.Is(err, pipeline.ErrUnknownStage):
		status = http.StatusBadRequest
	case errors.Is(err, queue.ErrBulkInFlight),
		errors.Is(err, pipeline.ErrRunInProgress),
		errors.Is(err, pipeline.ErrStageInProgress),
		errors.Is(err, workflow.ErrStatusPending):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrBudgetExhausted):
		status = http.StatusPaymentRequired
	}

	if status >= 500 {
		a.logger.Error(r.Context(), err, "console request failed", "path", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
