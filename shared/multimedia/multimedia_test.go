package multimedia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wmo-raf/capwire/shared/models"
)

func testFeatures() []models.Feature {
	return []models.Feature{{
		Type: "Feature",
		Geometry: models.NewPolygonGeometry(models.PolygonCoords{
			models.Ring{{36, -2}, {37, -2}, {37, -1}, {36, -2}},
		}),
		Properties: map[string]interface{}{"severity": models.SeveritySevere},
	}}
}

func TestHexToRGB(t *testing.T) {
	cases := []struct {
		hex     string
		r, g, b int
	}{
		{"#d72f2a", 215, 47, 42},
		{"#ffff00", 255, 255, 0},
		{"not-a-color", 51, 102, 255},
	}
	for _, c := range cases {
		r, g, b := hexToRGB(c.hex)
		if r != c.r || g != c.g || b != c.b {
			t.Fatalf("%s: expected (%d,%d,%d), got (%d,%d,%d)", c.hex, c.r, c.g, c.b, r, g, b)
		}
	}
}

func TestMapStyle(t *testing.T) {
	style := mapStyle(models.NewFeatureCollection(testFeatures()))

	sources, ok := style["sources"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected sources map, got %T", style["sources"])
	}
	if _, ok := sources["cap_alert"]; !ok {
		t.Fatalf("expected cap_alert source in style")
	}
	if _, ok := sources["carto-light"]; !ok {
		t.Fatalf("expected carto-light basemap in style")
	}

	layers, ok := style["layers"].([]map[string]interface{})
	if !ok || len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %v", style["layers"])
	}
}

func TestRenderMap(t *testing.T) {
	t.Run("posts the renderer payload", func(t *testing.T) {
		png := []byte("\x89PNG fake image bytes")
		var payload map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decoding payload: %s", err)
			}
			w.Write(png)
		}))
		defer srv.Close()

		r := NewRenderer(srv.URL)
		out, err := r.RenderMap(context.Background(), testFeatures())
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if string(out) != string(png) {
			t.Fatalf("expected renderer bytes back, got %q", out)
		}

		if payload["width"] != float64(400) || payload["height"] != float64(400) {
			t.Fatalf("expected 400x400 render, got %v x %v", payload["width"], payload["height"])
		}
		if payload["padding"] != float64(6) {
			t.Fatalf("expected padding 6, got %v", payload["padding"])
		}
		bounds, ok := payload["bounds"].([]interface{})
		if !ok || len(bounds) != 4 {
			t.Fatalf("expected 4-element bounds, got %v", payload["bounds"])
		}
		// padded outward from lng [36,37], lat [-2,-1]
		if bounds[0].(float64) >= 36 || bounds[2].(float64) <= 37 {
			t.Fatalf("expected padded east/west bounds, got %v", bounds)
		}
		if _, ok := payload["style"]; !ok {
			t.Fatalf("expected style in payload")
		}
	})

	t.Run("renderer error propagates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "tile meltdown", http.StatusInternalServerError)
		}))
		defer srv.Close()

		r := NewRenderer(srv.URL)
		if _, err := r.RenderMap(context.Background(), testFeatures()); err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}

func TestBuildPDF(t *testing.T) {
	expires := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	alert := &models.Alert{
		Identifier: "alert-1",
		Sender:     "alerts@meteo.example.org",
		Sent:       time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC),
		Status:     models.StatusActual,
		MsgType:    models.MsgTypeAlert,
		Scope:      models.ScopePublic,
		Infos: []models.AlertInfo{{
			Category:    "Met",
			Event:       "Heavy Rainfall",
			Urgency:     models.UrgencyExpected,
			Severity:    models.SeveritySevere,
			Certainty:   models.CertaintyLikely,
			Expires:     &expires,
			Headline:    "Heavy rainfall expected",
			Description: "More than 50mm of rain expected in 24 hours.",
			Instruction: "Avoid flooded roads.",
		}},
	}
	branding := Branding{
		OrgName:       "Example Met Service",
		SenderContact: "duty@meteo.example.org",
		AlertsURL:     "https://alerts.example.org",
	}

	t.Run("without map image", func(t *testing.T) {
		out, err := BuildPDF(alert, branding, nil)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(out) == 0 || string(out[:5]) != "%PDF-" {
			t.Fatalf("expected a PDF document, got %d bytes", len(out))
		}
	})
}
