package geometries

import (
	"math"

	"github.com/wmo-raf/capwire/shared/models"
)

// MinCircleSegments is the floor on circle approximation vertex count.
// Downstream consumers only need a visually-round area, not exact circular
// geometry, so a fixed-vertex polygon is sufficient.
const MinCircleSegments = 32

// maxCircleLat caps the latitude used for the longitude scale. The
// km-per-degree-longitude conversion degenerates at the poles, so centers
// beyond this latitude reuse its scale to keep the ring finite.
const maxCircleLat = 89.5

// CirclePolygon approximates a circle of radiusKm around (lat, lon) as a
// closed polygon with the given number of segments (clamped to
// MinCircleSegments). Radii are converted to degrees with the same km/degree
// scalars used for bounding boxes; the longitude step widens with latitude
// up to maxCircleLat.
func CirclePolygon(lat, lon, radiusKm float64, segments int) models.Geometry {
	if segments < MinCircleSegments {
		segments = MinCircleSegments
	}

	scaleLat := math.Min(math.Abs(lat), maxCircleLat)
	latRadius := radiusKm / latScalar
	lonRadius := radiusKm / (math.Cos(scaleLat*radConv) * longScalar)

	ring := make(models.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, []float64{
			lon + lonRadius*math.Cos(theta),
			lat + latRadius*math.Sin(theta),
		})
	}
	// close the ring
	ring = append(ring, append([]float64(nil), ring[0]...))

	return models.NewPolygonGeometry(models.PolygonCoords{ring})
}
