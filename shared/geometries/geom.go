package geometries

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/wmo-raf/capwire/shared/models"
)

const radConv = math.Pi / float64(180)
const degConv = float64(180) / math.Pi

// Kilometers per degree of latitude, and per degree of longitude at the
// equator. Longitude spacing shrinks with cos(lat).
const latScalar = float64(110.574)
const longScalar = float64(88.5959965)

// BBRect is a lat/lng aligned bounding rectangle.
type BBRect struct {
	LatLo float64
	LatHi float64
	LngLo float64
	LngHi float64
}

// Scale grows the rectangle by scaleFactorKm on every side.
func (b *BBRect) Scale(scaleFactorKm float64) {
	scaleLatKmToDegrees := scaleFactorKm / latScalar
	b.LatLo = b.LatLo - scaleLatKmToDegrees
	b.LatHi = b.LatHi + scaleLatKmToDegrees
	// go with larger lat scale
	scaleLongKmToDegrees := scaleFactorKm / (math.Cos(b.LatLo*radConv) * longScalar)
	b.LngLo = b.LngLo - scaleLongKmToDegrees
	b.LngHi = b.LngHi + scaleLongKmToDegrees
}

// Bounds returns the rectangle as [west, south, east, north], the order map
// renderers expect.
func (b *BBRect) Bounds() []float64 {
	return []float64{b.LngLo, b.LatLo, b.LngHi, b.LatHi}
}

// BoundsOfFeatures computes the combined bounding rectangle of all polygon
// vertices across the given features.
func BoundsOfFeatures(features []models.Feature) (*BBRect, error) {
	rect := s2.EmptyRect()
	points := 0

	for _, feature := range features {
		polygons, err := feature.Geometry.Polygons()
		if err != nil {
			return nil, fmt.Errorf("feature geometry: %w", err)
		}
		for _, polygon := range polygons {
			for _, ring := range polygon {
				for _, position := range ring {
					if len(position) < 2 {
						return nil, fmt.Errorf("position has %d coordinates, need 2", len(position))
					}
					// GeoJSON positions are lon,lat
					rect = rect.AddPoint(s2.LatLngFromDegrees(position[1], position[0]))
					points++
				}
			}
		}
	}

	if points == 0 {
		return nil, fmt.Errorf("no polygon vertices in %d features", len(features))
	}

	return &BBRect{
		LatLo: rect.Lat.Lo * degConv,
		LatHi: rect.Lat.Hi * degConv,
		LngLo: rect.Lng.Lo * degConv,
		LngHi: rect.Lng.Hi * degConv,
	}, nil
}
