package geometries

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wmo-raf/capwire/shared/models"
)

// GeocodeResolver looks up inline geometry for a geocode reference.
// A nil geometry with a nil error means the reference is unknown.
type GeocodeResolver interface {
	ResolveGeocode(ctx context.Context, valueName, value string) (*models.Geometry, error)
}

// Normalizer flattens the three area variants of an alert into a uniform
// GeoJSON feature list for map rendering and the public feed.
type Normalizer struct {
	resolver       GeocodeResolver
	circleSegments int
}

func NewNormalizer(resolver GeocodeResolver, circleSegments int) *Normalizer {
	if circleSegments < MinCircleSegments {
		circleSegments = MinCircleSegments
	}
	return &Normalizer{resolver: resolver, circleSegments: circleSegments}
}

// Features emits one feature per resolvable area, ordered by infos then
// areas within each info. Later features draw on top. Geocode references
// that cannot be resolved are skipped with a warning, never an error.
func (n *Normalizer) Features(ctx context.Context, alert *models.Alert) []models.Feature {
	var features []models.Feature

	for _, info := range alert.Infos {
		props := n.infoProperties(alert, &info)

		for _, area := range info.Areas {
			geom, ok := n.areaGeometry(ctx, alert.Identifier, area)
			if !ok {
				continue
			}

			properties := make(map[string]interface{}, len(props)+1)
			for k, v := range props {
				properties[k] = v
			}
			properties["areaDesc"] = area.Desc()

			features = append(features, models.Feature{
				Type:       "Feature",
				Geometry:   *geom,
				Properties: properties,
			})
		}
	}

	return features
}

func (n *Normalizer) areaGeometry(ctx context.Context, identifier string, area models.Area) (*models.Geometry, bool) {
	switch a := area.(type) {
	case models.GeocodeArea:
		geom, err := n.resolver.ResolveGeocode(ctx, a.ValueName, a.Value)
		if err != nil {
			log.WithFields(log.Fields{
				"alertId": identifier, "valueName": a.ValueName, "value": a.Value, "error": err,
			}).Warn("geocode lookup failed, skipping area")
			return nil, false
		}
		if geom == nil {
			log.WithFields(log.Fields{
				"alertId": identifier, "valueName": a.ValueName, "value": a.Value,
			}).Warn("geocode not found in boundary registry, skipping area")
			return nil, false
		}
		return geom, true
	case models.PolygonArea:
		if a.Geometry.Type != "Polygon" && a.Geometry.Type != "MultiPolygon" {
			log.WithFields(log.Fields{
				"alertId": identifier, "type": a.Geometry.Type,
			}).Warn("area geometry is not Polygon/MultiPolygon, skipping area")
			return nil, false
		}
		geom := a.Geometry
		return &geom, true
	case models.CircleArea:
		geom := CirclePolygon(a.Lat, a.Lon, a.RadiusKm, n.circleSegments)
		return &geom, true
	default:
		log.WithFields(log.Fields{"alertId": identifier}).Warn("unknown area variant, skipping area")
		return nil, false
	}
}

func (n *Normalizer) infoProperties(alert *models.Alert, info *models.AlertInfo) map[string]interface{} {
	props := map[string]interface{}{
		"id":             alert.Identifier,
		"sent":           alert.Sent.Format(time.RFC3339),
		"event":          info.Event,
		"headline":       info.Headline,
		"severity":       info.Severity,
		"urgency":        info.Urgency,
		"certainty":      info.Certainty,
		"description":    info.Description,
		"instruction":    info.Instruction,
		"severity_color": models.ColorForSeverity(info.Severity).Fill,
		"status":         info.DerivedStatus(alert.Sent, time.Now()),
	}
	if info.Onset != nil {
		props["onset"] = info.Onset.Format(time.RFC3339)
	}
	if info.Expires != nil {
		props["expires"] = info.Expires.Format(time.RFC3339)
	}
	if info.Web != "" {
		props["web"] = info.Web
	}
	return props
}
