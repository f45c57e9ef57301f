package multimedia

import "github.com/wmo-raf/capwire/shared/models"

// mapStyle builds the mapbox-gl style sent to the renderer: a carto-light
// raster basemap plus the alert features filled and outlined by severity.
func mapStyle(fc models.FeatureCollection) map[string]interface{} {
	severityFill := []interface{}{
		"match", []interface{}{"get", "severity"},
		models.SeverityExtreme, models.ColorForSeverity(models.SeverityExtreme).Fill,
		models.SeveritySevere, models.ColorForSeverity(models.SeveritySevere).Fill,
		models.SeverityModerate, models.ColorForSeverity(models.SeverityModerate).Fill,
		models.SeverityMinor, models.ColorForSeverity(models.SeverityMinor).Fill,
		models.ColorForSeverity(models.SeverityUnknown).Fill,
	}
	severityLine := []interface{}{
		"match", []interface{}{"get", "severity"},
		models.SeverityExtreme, models.ColorForSeverity(models.SeverityExtreme).Stroke,
		models.SeveritySevere, models.ColorForSeverity(models.SeveritySevere).Stroke,
		models.SeverityModerate, models.ColorForSeverity(models.SeverityModerate).Stroke,
		models.SeverityMinor, models.ColorForSeverity(models.SeverityMinor).Stroke,
		models.ColorForSeverity(models.SeverityUnknown).Stroke,
	}

	return map[string]interface{}{
		"version": 8,
		"sources": map[string]interface{}{
			"carto-light": map[string]interface{}{
				"type": "raster",
				"tiles": []string{
					"https://a.basemaps.cartocdn.com/light_all/{z}/{x}/{y}@2x.png",
					"https://b.basemaps.cartocdn.com/light_all/{z}/{x}/{y}@2x.png",
					"https://c.basemaps.cartocdn.com/light_all/{z}/{x}/{y}@2x.png",
					"https://d.basemaps.cartocdn.com/light_all/{z}/{x}/{y}@2x.png",
				},
			},
			"cap_alert": map[string]interface{}{
				"type": "geojson",
				"data": fc,
			},
		},
		"layers": []map[string]interface{}{
			{
				"id":      "carto-light-layer",
				"source":  "carto-light",
				"type":    "raster",
				"minzoom": 0,
				"maxzoom": 22,
			},
			{
				"id":     "cap_alert_fill",
				"source": "cap_alert",
				"type":   "fill",
				"paint": map[string]interface{}{
					"fill-color":   severityFill,
					"fill-opacity": 1,
				},
			},
			{
				"id":     "cap_alert_line",
				"source": "cap_alert",
				"type":   "line",
				"paint": map[string]interface{}{
					"line-color": severityLine,
					"line-width": 0.1,
				},
			},
		},
	}
}
