package consoleapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/linnemanlabs/darkwatch/internal/mapview"
)

// handleMapScene composes the requested layers into one scene. With an
// alert_id the scene includes that alert's confidence ellipse and
// interpolated track and centers on its envelope; without one it is the
// queue overview of corridors and markers. Layers default to all applicable
// and can be toggled off individually via ?layers=.
func (a *API) handleMapScene(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var alertID int64
	perAlert := false
	if raw := q.Get("alert_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid alert_id"})
			return
		}
		alertID = id
		perAlert = true
	}

	comp := mapview.NewCompositor(a.logger)
	comp.Register(mapview.CorridorLayer(a.cache, a.client))
	enabled := map[mapview.LayerID]bool{
		mapview.LayerCorridors: true,
		mapview.LayerMarkers:   true,
	}

	var center *mapview.Point
	if perAlert {
		comp.Register(mapview.EllipseLayer(a.cache, a.client, alertID))
		comp.Register(mapview.TrackLayer(a.cache, a.client, alertID))
		enabled[mapview.LayerEllipse] = true
		enabled[mapview.LayerTrack] = true

		al, err := a.fetchAlert(r.Context(), alertID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		// centering falls back from last-known to first-after-gap; with
		// neither the scene carries the no-positional-data placeholder
		env, envErr := a.client.GetMovementEnvelope(r.Context(), alertID)
		if envErr == nil {
			center = mapview.CenterFor(env)
			var pos = env.LastKnown
			if pos == nil {
				pos = env.FirstAfterGap
			}
			comp.Register(mapview.SingleMarkerLayer(al, pos))
		}
	} else {
		comp.Register(mapview.MarkerLayer(a.cache, a.client))
	}

	if raw := q.Get("layers"); raw != "" {
		for id := range enabled {
			enabled[id] = false
		}
		for _, name := range strings.Split(raw, ",") {
			enabled[mapview.LayerID(strings.TrimSpace(name))] = true
		}
	}

	scene := comp.Compose(r.Context(), enabled, center)
	// the per-alert view needs a vessel position to focus on; corridors
	// rendering underneath does not substitute for one
	if perAlert && center == nil {
		scene.NoPositionalData = true
	}
	writeJSON(w, http.StatusOK, scene)
}
