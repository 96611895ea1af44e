package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListCorridors fetches all monitored corridors.
func (c *Client) ListCorridors(ctx context.Context) ([]Corridor, error) {
	var out []Corridor
	if err := c.doJSON(ctx, http.MethodGet, "corridors", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCorridor fetches one corridor by ID.
func (c *Client) GetCorridor(ctx context.Context, id int64) (*Corridor, error) {
	var cor Corridor
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("corridors/%d", id), nil, nil, &cor); err != nil {
		return nil, err
	}
	return &cor, nil
}

// CorridorGeoJSON fetches corridor geometry as a raw GeoJSON feature
// collection, passed through to the map untouched.
func (c *Client) CorridorGeoJSON(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "corridors/geojson", nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// CorridorInput holds the mutable corridor fields for create and edit.
type CorridorInput struct {
	Name       string       `json:"name"`
	Type       CorridorType `json:"corridor_type"`
	Geometry   [][2]float64 `json:"geometry,omitempty"`
	RiskWeight float64      `json:"risk_weight"`
	IsJamming  bool         `json:"is_jamming"`
}

// CreateCorridor creates a corridor.
func (c *Client) CreateCorridor(ctx context.Context, in CorridorInput) (*Corridor, error) {
	var cor Corridor
	if err := c.doJSON(ctx, http.MethodPost, "corridors", nil, in, &cor); err != nil {
		return nil, err
	}
	return &cor, nil
}

// UpdateCorridor patches a corridor.
func (c *Client) UpdateCorridor(ctx context.Context, id int64, in CorridorInput) (*Corridor, error) {
	var cor Corridor
	if err := c.doJSON(ctx, http.MethodPatch, fmt.Sprintf("corridors/%d", id), nil, in, &cor); err != nil {
		return nil, err
	}
	return &cor, nil
}

// DeleteCorridor removes a corridor.
func (c *Client) DeleteCorridor(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("corridors/%d", id), nil, nil, nil)
}
