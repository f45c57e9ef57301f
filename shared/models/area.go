package models

import (
	"encoding/json"
	"fmt"
)

// Area is the polymorphic area descriptor: exactly one of the geocode,
// polygon or circle variants. The sealed interface keeps the one-variant
// invariant a compile-time property instead of a bag of nilable fields.
type Area interface {
	// Desc is the human-readable label shared by all variants.
	Desc() string
	variant() string
}

// GeocodeArea references an external boundary registry entry instead of
// carrying inline geometry.
type GeocodeArea struct {
	AreaDesc  string `json:"areaDesc"`
	ValueName string `json:"valueName"`
	Value     string `json:"value"`
}

func (a GeocodeArea) Desc() string    { return a.AreaDesc }
func (a GeocodeArea) variant() string { return "geocode" }

// PolygonArea carries inline Polygon or MultiPolygon geometry.
type PolygonArea struct {
	AreaDesc string   `json:"areaDesc"`
	Geometry Geometry `json:"geometry"`
}

func (a PolygonArea) Desc() string    { return a.AreaDesc }
func (a PolygonArea) variant() string { return "polygon" }

// CircleArea is a center point plus radius in kilometers.
type CircleArea struct {
	AreaDesc string  `json:"areaDesc"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radiusKm"`
}

func (a CircleArea) Desc() string    { return a.AreaDesc }
func (a CircleArea) variant() string { return "circle" }

// AreaList serializes the sum type as {"kind": ..., "area": {...}}
// envelopes so the aggregate survives jsonb storage and the HTTP edge.
type AreaList []Area

type areaEnvelope struct {
	Kind string          `json:"kind"`
	Area json.RawMessage `json:"area"`
}

func (l AreaList) MarshalJSON() ([]byte, error) {
	envelopes := make([]areaEnvelope, 0, len(l))
	for _, area := range l {
		raw, err := json.Marshal(area)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, areaEnvelope{Kind: area.variant(), Area: raw})
	}
	return json.Marshal(envelopes)
}

func (l *AreaList) UnmarshalJSON(b []byte) error {
	var envelopes []areaEnvelope
	if err := json.Unmarshal(b, &envelopes); err != nil {
		return err
	}
	areas := make(AreaList, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Kind {
		case "geocode":
			var a GeocodeArea
			if err := json.Unmarshal(env.Area, &a); err != nil {
				return err
			}
			areas = append(areas, a)
		case "polygon":
			var a PolygonArea
			if err := json.Unmarshal(env.Area, &a); err != nil {
				return err
			}
			areas = append(areas, a)
		case "circle":
			var a CircleArea
			if err := json.Unmarshal(env.Area, &a); err != nil {
				return err
			}
			areas = append(areas, a)
		default:
			return fmt.Errorf("unknown area kind %q", env.Kind)
		}
	}
	*l = areas
	return nil
}
