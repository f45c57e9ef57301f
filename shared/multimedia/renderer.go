package multimedia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/wmo-raf/capwire/shared/geometries"
	"github.com/wmo-raf/capwire/shared/models"
)

// boundsPaddingKm grows the render window beyond the exact feature extent
// so alert areas do not touch the image edge.
const boundsPaddingKm = 16.0

// Renderer produces static map rasters by POSTing a mapbox-gl style plus
// bounds to an external mbgl-renderer service.
type Renderer struct {
	url    string
	client *http.Client
}

func NewRenderer(url string) *Renderer {
	rC := retryablehttp.NewClient()
	rC.Logger = nil
	rC.RetryMax = 3
	client := rC.StandardClient()
	client.Timeout = 30 * time.Second

	return &Renderer{url: url, client: client}
}

// Configured reports whether a renderer endpoint is set.
func (r *Renderer) Configured() bool { return r.url != "" }

type renderPayload struct {
	Width   int                    `json:"width"`
	Height  int                    `json:"height"`
	Padding int                    `json:"padding"`
	Style   map[string]interface{} `json:"style"`
	Bounds  []float64              `json:"bounds"`
}

// RenderMap renders the features over the basemap and returns PNG bytes.
func (r *Renderer) RenderMap(ctx context.Context, features []models.Feature) ([]byte, error) {
	rect, err := geometries.BoundsOfFeatures(features)
	if err != nil {
		return nil, fmt.Errorf("computing map bounds: %w", err)
	}
	rect.Scale(boundsPaddingKm)

	payload := renderPayload{
		Width:   400,
		Height:  400,
		Padding: 6,
		Style:   mapStyle(models.NewFeatureCollection(features)),
		Bounds:  rect.Bounds(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer request failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, string(b))
	}

	return io.ReadAll(resp.Body)
}
