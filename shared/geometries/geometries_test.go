package geometries

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/wmo-raf/capwire/shared/models"
)

func TestCirclePolygon(t *testing.T) {
	t.Run("produces a closed ring", func(t *testing.T) {
		geom := CirclePolygon(-1.25, 36.85, 5, 32)
		polygons, err := geom.Polygons()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(polygons) != 1 || len(polygons[0]) != 1 {
			t.Fatalf("expected a single ring, got %+v", polygons)
		}

		ring := polygons[0][0]
		if len(ring) != 33 {
			t.Fatalf("expected 33 positions (32 segments + closure), got %d", len(ring))
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			t.Fatalf("expected closed ring, got first %v last %v", first, last)
		}
	})

	t.Run("clamps the segment floor", func(t *testing.T) {
		geom := CirclePolygon(0, 0, 10, 4)
		polygons, _ := geom.Polygons()
		if len(polygons[0][0]) != MinCircleSegments+1 {
			t.Fatalf("expected %d positions, got %d", MinCircleSegments+1, len(polygons[0][0]))
		}
	})

	t.Run("vertices sit roughly one radius from center", func(t *testing.T) {
		lat, lon, radius := 10.0, 20.0, 25.0
		geom := CirclePolygon(lat, lon, radius, 32)
		polygons, _ := geom.Polygons()

		for _, position := range polygons[0][0] {
			dLatKm := (position[1] - lat) * latScalar
			dLonKm := (position[0] - lon) * math.Cos(lat*radConv) * longScalar
			dist := math.Sqrt(dLatKm*dLatKm + dLonKm*dLonKm)
			if math.Abs(dist-radius) > 0.5 {
				t.Fatalf("vertex %v is %fkm from center, expected ~%fkm", position, dist, radius)
			}
		}
	})

	t.Run("ring stays finite at the poles", func(t *testing.T) {
		for _, lat := range []float64{90, -90, 89.9} {
			geom := CirclePolygon(lat, 0, 5, 32)
			polygons, _ := geom.Polygons()
			for _, position := range polygons[0][0] {
				for _, coord := range position {
					if math.IsInf(coord, 0) || math.IsNaN(coord) {
						t.Fatalf("non-finite coordinate %v for center latitude %f", position, lat)
					}
				}
			}
		}
	})
}

func TestBBRect(t *testing.T) {
	t.Run("scale grows every side", func(t *testing.T) {
		rect := BBRect{LatLo: -2, LatHi: -1, LngLo: 36, LngHi: 37}
		rect.Scale(16.0)

		if rect.LatLo >= -2 || rect.LatHi <= -1 || rect.LngLo >= 36 || rect.LngHi <= 37 {
			t.Fatalf("expected rectangle to grow on every side, got %+v", rect)
		}
	})

	t.Run("bounds order is west south east north", func(t *testing.T) {
		rect := BBRect{LatLo: -2, LatHi: -1, LngLo: 36, LngHi: 37}
		bounds := rect.Bounds()
		want := []float64{36, -2, 37, -1}
		for i := range want {
			if bounds[i] != want[i] {
				t.Fatalf("expected bounds %v, got %v", want, bounds)
			}
		}
	})
}

func TestBoundsOfFeatures(t *testing.T) {
	feature := func(ring models.Ring) models.Feature {
		return models.Feature{
			Type:     "Feature",
			Geometry: models.NewPolygonGeometry(models.PolygonCoords{ring}),
		}
	}

	t.Run("covers all features", func(t *testing.T) {
		features := []models.Feature{
			feature(models.Ring{{36, -2}, {37, -2}, {37, -1}, {36, -2}}),
			feature(models.Ring{{38, 0}, {39, 0}, {39, 1}, {38, 0}}),
		}

		rect, err := BoundsOfFeatures(features)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if rect.LngLo != 36 || rect.LngHi != 39 {
			t.Fatalf("expected lng [36,39], got [%f,%f]", rect.LngLo, rect.LngHi)
		}
		if math.Abs(rect.LatLo-(-2)) > 1e-9 || math.Abs(rect.LatHi-1) > 1e-9 {
			t.Fatalf("expected lat [-2,1], got [%f,%f]", rect.LatLo, rect.LatHi)
		}
	})

	t.Run("no vertices is an error", func(t *testing.T) {
		if _, err := BoundsOfFeatures(nil); err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}

type fakeResolver struct {
	geometries map[string]*models.Geometry
}

func (r *fakeResolver) ResolveGeocode(ctx context.Context, valueName, value string) (*models.Geometry, error) {
	return r.geometries[valueName+"/"+value], nil
}

func TestNormalizer(t *testing.T) {
	sent := time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)

	boundary := models.NewPolygonGeometry(models.PolygonCoords{
		models.Ring{{36, -2}, {37, -2}, {37, -1}, {36, -2}},
	})
	resolver := &fakeResolver{geometries: map[string]*models.Geometry{
		"ADM1/KE-28": &boundary,
	}}

	coords, _ := json.Marshal([][][]float64{{{36.8, -1.3}, {36.9, -1.3}, {36.9, -1.2}, {36.8, -1.3}}})

	alert := &models.Alert{
		Identifier: "alert-1",
		Sent:       sent,
		Status:     models.StatusActual,
		Infos: []models.AlertInfo{{
			Event:     "Heavy Rainfall",
			Severity:  models.SeveritySevere,
			Urgency:   models.UrgencyExpected,
			Certainty: models.CertaintyLikely,
			Areas: models.AreaList{
				models.GeocodeArea{AreaDesc: "Mombasa county", ValueName: "ADM1", Value: "KE-28"},
				models.PolygonArea{AreaDesc: "Coastal strip", Geometry: models.Geometry{Type: "Polygon", Coordinates: coords}},
				models.CircleArea{AreaDesc: "Harbor zone", Lat: -1.25, Lon: 36.85, RadiusKm: 5},
			},
		}},
	}

	t.Run("one feature per area in stored order", func(t *testing.T) {
		n := NewNormalizer(resolver, 32)
		features := n.Features(context.Background(), alert)

		if len(features) != 3 {
			t.Fatalf("expected 3 features, got %d", len(features))
		}
		wantDescs := []string{"Mombasa county", "Coastal strip", "Harbor zone"}
		for i, want := range wantDescs {
			if got := features[i].Properties["areaDesc"]; got != want {
				t.Fatalf("expected feature %d areaDesc %s, got %v", i, want, got)
			}
		}
	})

	t.Run("carries severity color and alert properties", func(t *testing.T) {
		n := NewNormalizer(resolver, 32)
		features := n.Features(context.Background(), alert)

		props := features[0].Properties
		if props["id"] != "alert-1" {
			t.Fatalf("expected alert id, got %v", props["id"])
		}
		if props["event"] != "Heavy Rainfall" {
			t.Fatalf("expected event, got %v", props["event"])
		}
		want := models.ColorForSeverity(models.SeveritySevere).Fill
		if props["severity_color"] != want {
			t.Fatalf("expected severity color %s, got %v", want, props["severity_color"])
		}
	})

	t.Run("unresolved geocode is skipped not fatal", func(t *testing.T) {
		n := NewNormalizer(&fakeResolver{geometries: map[string]*models.Geometry{}}, 32)
		features := n.Features(context.Background(), alert)

		if len(features) != 2 {
			t.Fatalf("expected 2 features after skipping unresolved geocode, got %d", len(features))
		}
		if features[0].Properties["areaDesc"] != "Coastal strip" {
			t.Fatalf("expected polygon area first, got %v", features[0].Properties["areaDesc"])
		}
	})
}
