package models

import (
	"encoding/json"
	"fmt"
)

// Ring is a closed linear ring of GeoJSON positions (lon, lat order).
type Ring [][]float64

// PolygonCoords is one polygon: an outer ring plus optional holes.
type PolygonCoords []Ring

// Geometry is a GeoJSON geometry. Coordinates stay raw so Polygon and
// MultiPolygon pass through the normalizer untouched.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// NewPolygonGeometry builds a Polygon geometry from coordinate rings.
func NewPolygonGeometry(coords PolygonCoords) Geometry {
	raw, _ := json.Marshal(coords)
	return Geometry{Type: "Polygon", Coordinates: raw}
}

// Polygons decodes the geometry into a list of polygons. A Polygon yields
// one entry, a MultiPolygon one per member. Other types are rejected.
func (g Geometry) Polygons() ([]PolygonCoords, error) {
	switch g.Type {
	case "Polygon":
		var coords PolygonCoords
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decode polygon coordinates: %w", err)
		}
		return []PolygonCoords{coords}, nil
	case "MultiPolygon":
		var coords []PolygonCoords
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decode multipolygon coordinates: %w", err)
		}
		return coords, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

// Feature is a GeoJSON feature emitted by the geometry normalizer.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is the public GeoJSON feed payload.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features, normalizing nil to an empty list so
// the feed always serializes a features array.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
