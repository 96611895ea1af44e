package mapview

import (
	"context"
	"fmt"
	"strconv"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
)

// Cache kinds for map geometry sources.
const (
	KindCorridors = "corridors"
	KindMapPoints = "map-points"
	KindEnvelope  = "envelope"
)

// GeoSource is the backend surface map layers fetch from.
type GeoSource interface {
	ListCorridors(ctx context.Context) ([]backend.Corridor, error)
	MapPoints(ctx context.Context) ([]backend.MapPoint, error)
	GetMovementEnvelope(ctx context.Context, id int64) (*backend.MovementEnvelope, error)
}

// CorridorLayer draws corridor polygons styled by type, fetched once through
// the cache.
func CorridorLayer(cache *rescache.Cache, src GeoSource) Layer {
	return Layer{
		ID:     LayerCorridors,
		ZOrder: zCorridors,
		Fetch: func(ctx context.Context) ([]Feature, error) {
			key := rescache.Key{Kind: KindCorridors, Params: ""}
			v, err := cache.Get(ctx, key, func(ctx context.Context) (any, error) {
				return src.ListCorridors(ctx)
			})
			if err != nil {
				return nil, err
			}
			corridors, ok := v.([]backend.Corridor)
			if !ok {
				return nil, fmt.Errorf("unexpected cache payload %T for kind %q", v, KindCorridors)
			}
			feats := make([]Feature, 0, len(corridors))
			for _, c := range corridors {
				if len(c.Geometry) == 0 {
					continue
				}
				feats = append(feats, Feature{
					Kind:     "polygon",
					Style:    StyleForCorridor(c),
					Geometry: c.Geometry,
					Label:    c.Name,
				})
			}
			return feats, nil
		},
	}
}

// MarkerLayer draws alert point markers, color-bucketed by risk score.
func MarkerLayer(cache *rescache.Cache, src GeoSource) Layer {
	return Layer{
		ID:     LayerMarkers,
		ZOrder: zMarkers,
		Fetch: func(ctx context.Context) ([]Feature, error) {
			key := rescache.Key{Kind: KindMapPoints, Params: ""}
			v, err := cache.Get(ctx, key, func(ctx context.Context) (any, error) {
				return src.MapPoints(ctx)
			})
			if err != nil {
				return nil, err
			}
			points, ok := v.([]backend.MapPoint)
			if !ok {
				return nil, fmt.Errorf("unexpected cache payload %T for kind %q", v, KindMapPoints)
			}
			feats := make([]Feature, 0, len(points))
			for _, p := range points {
				feats = append(feats, Feature{
					Kind:  "point",
					Style: string(BucketForScore(p.RiskScore)),
					Point: &Point{Lat: p.Lat, Lon: p.Lon},
					Label: p.VesselName,
				})
			}
			return feats, nil
		},
	}
}

// SingleMarkerLayer draws just one alert's marker, for the detail map.
func SingleMarkerLayer(al *backend.Alert, pos *backend.Position) Layer {
	return Layer{
		ID:     LayerMarkers,
		ZOrder: zMarkers,
		Fetch: func(_ context.Context) ([]Feature, error) {
			if pos == nil {
				return nil, nil
			}
			return []Feature{{
				Kind:  "point",
				Style: string(BucketForScore(al.RiskScore)),
				Point: &Point{Lat: pos.Lat, Lon: pos.Lon},
				Label: al.VesselName,
			}}, nil
		},
	}
}

func envelopeFromCache(ctx context.Context, cache *rescache.Cache, src GeoSource, alertID int64) (*backend.MovementEnvelope, error) {
	key := rescache.Key{Kind: KindEnvelope, Params: strconv.FormatInt(alertID, 10)}
	v, err := cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return src.GetMovementEnvelope(ctx, alertID)
	})
	if err != nil {
		return nil, err
	}
	env, ok := v.(*backend.MovementEnvelope)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload %T for kind %q", v, KindEnvelope)
	}
	return env, nil
}

// EllipseLayer draws one alert's confidence-ellipse polygon.
func EllipseLayer(cache *rescache.Cache, src GeoSource, alertID int64) Layer {
	return Layer{
		ID:     LayerEllipse,
		ZOrder: zEllipse,
		Fetch: func(ctx context.Context) ([]Feature, error) {
			env, err := envelopeFromCache(ctx, cache, src, alertID)
			if err != nil {
				return nil, err
			}
			if len(env.Ellipse) == 0 {
				return nil, nil
			}
			return []Feature{{
				Kind:     "polygon",
				Style:    "confidence-ellipse",
				Geometry: env.Ellipse,
				Label:    env.Method,
			}}, nil
		},
	}
}

// TrackLayer draws one alert's interpolated track polyline. A track needs at
// least two points to draw a line; fewer renders nothing.
func TrackLayer(cache *rescache.Cache, src GeoSource, alertID int64) Layer {
	return Layer{
		ID:     LayerTrack,
		ZOrder: zTrack,
		Fetch: func(ctx context.Context) ([]Feature, error) {
			env, err := envelopeFromCache(ctx, cache, src, alertID)
			if err != nil {
				return nil, err
			}
			if len(env.Interpolated) < 2 {
				return nil, nil
			}
			line := make([][2]float64, len(env.Interpolated))
			for i, p := range env.Interpolated {
				line[i] = [2]float64{p.Lat, p.Lon}
			}
			return []Feature{{
				Kind:     "polyline",
				Style:    "interpolated-track",
				Geometry: line,
			}}, nil
		},
	}
}
