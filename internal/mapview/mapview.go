// Package mapview composes independently fetched, independently toggleable
// geometry sources into one map scene. Layers are registry entries rather
// than optional fields, so any source can be absent without special-casing:
// no data renders nothing, never an error for the rest of the scene.
package mapview

import (
	"context"
	"sort"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// LayerID names a geometry source.
type LayerID string

const (
	LayerCorridors LayerID = "corridors"
	LayerEllipse   LayerID = "ellipse"
	LayerTrack     LayerID = "track"
	LayerMarkers   LayerID = "markers"
)

// Draw order, bottom to top. Base tiles sit below everything and are the
// renderer's concern; markers must stay on top for analyst reading.
const (
	zCorridors = 10
	zEllipse   = 20
	zTrack     = 30
	zMarkers   = 40
)

// Layer is one registered geometry source. Fetch returns the layer's
// features; an empty slice (or nil) means the layer has nothing to draw.
type Layer struct {
	ID     LayerID
	ZOrder int
	Fetch  func(ctx context.Context) ([]Feature, error)
}

// Feature is one drawable item with its resolved style.
type Feature struct {
	Kind     string       `json:"kind"` // polygon | polyline | point
	Style    string       `json:"style"`
	Geometry [][2]float64 `json:"geometry,omitempty"`
	Point    *Point       `json:"point,omitempty"`
	Label    string       `json:"label,omitempty"`
}

// Point is a single marker position.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SceneLayer is one composed layer with its features, ordered for drawing.
type SceneLayer struct {
	ID       LayerID   `json:"id"`
	ZOrder   int       `json:"z_order"`
	Features []Feature `json:"features"`
}

// Scene is the composed map view. Layers are sorted bottom to top. When the
// scene has neither a center nor anything to draw, NoPositionalData is set
// and the renderer shows an explicit placeholder instead of an empty map.
// Callers that require a focus position (the per-alert view) set the flag
// themselves when the centering fallback chain comes up empty.
type Scene struct {
	Layers           []SceneLayer       `json:"layers"`
	Center           *Point             `json:"center,omitempty"`
	NoPositionalData bool               `json:"no_positional_data"`
	LayerErrors      map[LayerID]string `json:"layer_errors,omitempty"`
}

// Compositor merges registered layers into scenes.
type Compositor struct {
	layers []Layer
	logger log.Logger
}

// NewCompositor creates a compositor with no layers registered.
func NewCompositor(logger log.Logger) *Compositor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Compositor{logger: logger}
}

// Register adds a geometry source. Registration order does not matter; draw
// order comes from ZOrder.
func (c *Compositor) Register(l Layer) {
	c.layers = append(c.layers, l)
}

// Compose fetches every enabled layer and assembles the scene. A layer that
// fails to fetch is reported in LayerErrors and skipped; it never blocks the
// other sources. center may be nil when the caller has no focus position.
func (c *Compositor) Compose(ctx context.Context, enabled map[LayerID]bool, center *Point) *Scene {
	scene := &Scene{Center: center}

	ordered := make([]Layer, len(c.layers))
	copy(ordered, c.layers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ZOrder < ordered[j].ZOrder })

	for _, l := range ordered {
		if enabled != nil && !enabled[l.ID] {
			continue
		}
		feats, err := l.Fetch(ctx)
		if err != nil {
			c.logger.Error(ctx, err, "map layer fetch failed", "layer", string(l.ID))
			if scene.LayerErrors == nil {
				scene.LayerErrors = make(map[LayerID]string)
			}
			scene.LayerErrors[l.ID] = err.Error()
			continue
		}
		if len(feats) == 0 {
			continue
		}
		scene.Layers = append(scene.Layers, SceneLayer{ID: l.ID, ZOrder: l.ZOrder, Features: feats})
	}

	if scene.Center == nil && len(scene.Layers) == 0 {
		scene.NoPositionalData = true
	}
	return scene
}

// CenterFor picks a map center from a movement envelope: the last-known
// position when present, else the first position after the gap. Returns nil
// when neither exists.
func CenterFor(env *backend.MovementEnvelope) *Point {
	if env == nil {
		return nil
	}
	if env.LastKnown != nil {
		return &Point{Lat: env.LastKnown.Lat, Lon: env.LastKnown.Lon}
	}
	if env.FirstAfterGap != nil {
		return &Point{Lat: env.FirstAfterGap.Lat, Lon: env.FirstAfterGap.Lon}
	}
	return nil
}
