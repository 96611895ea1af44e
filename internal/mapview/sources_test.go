package mapview

import (
	"context"
	"testing"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
)

// mockGeoSource serves preconfigured geometry.
type mockGeoSource struct {
	corridors []backend.Corridor
	points    []backend.MapPoint
	envelope  *backend.MovementEnvelope
	envCalls  int
}

func (m *mockGeoSource) ListCorridors(_ context.Context) ([]backend.Corridor, error) {
	return m.corridors, nil
}

func (m *mockGeoSource) MapPoints(_ context.Context) ([]backend.MapPoint, error) {
	return m.points, nil
}

func (m *mockGeoSource) GetMovementEnvelope(_ context.Context, _ int64) (*backend.MovementEnvelope, error) {
	m.envCalls++
	return m.envelope, nil
}

func TestCorridorLayer(t *testing.T) {
	t.Parallel()

	src := &mockGeoSource{corridors: []backend.Corridor{
		{Name: "Kerch Strait", Type: backend.CorridorTransit, Geometry: [][2]float64{{45, 36}, {45.1, 36.2}, {45, 36.4}}},
		{Name: "Laconian Gulf", Type: backend.CorridorSTSZone, IsJamming: true, Geometry: [][2]float64{{36, 22}, {36.2, 22.4}, {36.1, 22.6}}},
		{Name: "no geometry", Type: backend.CorridorTransit},
	}}
	l := CorridorLayer(rescache.New(nil, nil), src)

	feats, err := l.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feats) != 2 {
		t.Fatalf("feature count = %d, want 2 (empty geometry skipped)", len(feats))
	}
	if feats[0].Kind != "polygon" || feats[0].Style != "transit" || feats[0].Label != "Kerch Strait" {
		t.Errorf("first feature = %+v, want transit polygon", feats[0])
	}
	if feats[1].Style != StyleJamming {
		t.Errorf("jamming corridor style = %q, want %q", feats[1].Style, StyleJamming)
	}
}

func TestMarkerLayer_BucketsByRisk(t *testing.T) {
	t.Parallel()

	src := &mockGeoSource{points: []backend.MapPoint{
		{VesselName: "KRAKEN", Lat: 1, Lon: 2, RiskScore: 90},
		{VesselName: "MINNOW", Lat: 3, Lon: 4, RiskScore: 10},
	}}
	l := MarkerLayer(rescache.New(nil, nil), src)

	feats, err := l.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feats) != 2 {
		t.Fatalf("feature count = %d, want 2", len(feats))
	}
	if feats[0].Style != string(RiskCritical) || feats[0].Label != "KRAKEN" {
		t.Errorf("first marker = %+v, want critical KRAKEN", feats[0])
	}
	if feats[1].Style != string(RiskLow) {
		t.Errorf("second marker style = %q, want low", feats[1].Style)
	}
	if feats[0].Point == nil || feats[0].Point.Lat != 1 {
		t.Errorf("first marker point = %+v, want lat 1", feats[0].Point)
	}
}

func TestSingleMarkerLayer(t *testing.T) {
	t.Parallel()

	al := &backend.Alert{VesselName: "KRAKEN", RiskScore: 60}

	feats, err := SingleMarkerLayer(al, &backend.Position{Lat: 5, Lon: 6}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feats) != 1 || feats[0].Style != string(RiskHigh) || feats[0].Point.Lat != 5 {
		t.Errorf("features = %+v, want one high marker at lat 5", feats)
	}

	// no position renders nothing, not an error
	feats, err = SingleMarkerLayer(al, nil).Fetch(context.Background())
	if err != nil || len(feats) != 0 {
		t.Errorf("nil position: feats=%v err=%v, want empty and nil", feats, err)
	}
}

func TestEllipseLayer(t *testing.T) {
	t.Parallel()

	src := &mockGeoSource{envelope: &backend.MovementEnvelope{
		Ellipse: [][2]float64{{1, 2}, {3, 4}, {5, 6}},
		Method:  "dead_reckoning",
	}}
	l := EllipseLayer(rescache.New(nil, nil), src, 42)

	feats, err := l.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feats) != 1 || feats[0].Kind != "polygon" || feats[0].Style != "confidence-ellipse" {
		t.Fatalf("features = %+v, want one confidence-ellipse polygon", feats)
	}
	if len(feats[0].Geometry) != 3 {
		t.Errorf("geometry points = %d, want 3", len(feats[0].Geometry))
	}
}

func TestEllipseLayer_EmptyEllipseRendersNothing(t *testing.T) {
	t.Parallel()

	src := &mockGeoSource{envelope: &backend.MovementEnvelope{}}
	feats, err := EllipseLayer(rescache.New(nil, nil), src, 42).Fetch(context.Background())
	if err != nil || len(feats) != 0 {
		t.Errorf("feats=%v err=%v, want empty and nil", feats, err)
	}
}

func TestTrackLayer_NeedsTwoPoints(t *testing.T) {
	t.Parallel()

	one := &mockGeoSource{envelope: &backend.MovementEnvelope{
		Interpolated: []backend.Position{{Lat: 1, Lon: 2}},
	}}
	feats, err := TrackLayer(rescache.New(nil, nil), one, 42).Fetch(context.Background())
	if err != nil || len(feats) != 0 {
		t.Errorf("single point: feats=%v err=%v, want nothing drawn", feats, err)
	}

	two := &mockGeoSource{envelope: &backend.MovementEnvelope{
		Interpolated: []backend.Position{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
	}}
	feats, err = TrackLayer(rescache.New(nil, nil), two, 42).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(feats) != 1 || feats[0].Kind != "polyline" {
		t.Fatalf("features = %+v, want one polyline", feats)
	}
	if got := feats[0].Geometry; len(got) != 2 || got[0] != [2]float64{1, 2} || got[1] != [2]float64{3, 4} {
		t.Errorf("geometry = %v, want [[1 2] [3 4]]", got)
	}
}

func TestEllipseAndTrackShareEnvelopeFetch(t *testing.T) {
	t.Parallel()

	src := &mockGeoSource{envelope: &backend.MovementEnvelope{
		Ellipse:      [][2]float64{{1, 2}, {3, 4}, {5, 6}},
		Interpolated: []backend.Position{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}},
	}}
	cache := rescache.New(nil, nil)

	if _, err := EllipseLayer(cache, src, 42).Fetch(context.Background()); err != nil {
		t.Fatalf("ellipse fetch: %v", err)
	}
	if _, err := TrackLayer(cache, src, 42).Fetch(context.Background()); err != nil {
		t.Fatalf("track fetch: %v", err)
	}
	if src.envCalls != 1 {
		t.Errorf("envelope fetched %d times, want 1 via the shared cache", src.envCalls)
	}
}
