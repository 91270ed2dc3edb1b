// Package geo provides geodesic distance and geohash cell helpers for the
// proximity query engine.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0

	// StoredPrecision is the geohash precision written to location rows.
	// Cell prefilters compare prefixes of this value, so it must be at
	// least as long as the coarsest prefilter precision.
	StoredPrecision = 9

	kmPerDegreeLat = 110.574
	kmPerDegreeLng = 111.320 // at the equator; scaled by cos(lat)
)

// DistanceKm returns the great-circle distance between two points in
// kilometers (haversine).
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLng := degToRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidCoords reports whether a latitude/longitude pair is a real-world
// coordinate.
func ValidCoords(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lng)
}

// Box is an axis-aligned lat/lng bounding region.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns the box that encloses the circle of radiusKm around
// the given point. Bounds are clamped at the poles; longitude is clamped
// rather than wrapped, which is acceptable for the small radii this
// service supports.
func BoundingBox(lat, lng, radiusKm float64) Box {
	dLat := radiusKm / kmPerDegreeLat
	cos := math.Cos(degToRad(lat))
	if cos < 0.01 {
		cos = 0.01 // near-pole guard
	}
	dLng := radiusKm / (kmPerDegreeLng * cos)

	return Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: math.Max(lng-dLng, -180),
		MaxLng: math.Min(lng+dLng, 180),
	}
}

// cellDegrees maps geohash precision to cell height and width in degrees.
// Odd precisions give longitude one extra bit, so cells alternate between
// square and 2:1 aspect.
var cellDegrees = map[uint]struct{ Lat, Lng float64 }{
	1: {45, 45},
	2: {5.625, 11.25},
	3: {1.40625, 1.40625},
	4: {0.17578125, 0.3515625},
	5: {0.0439453125, 0.0439453125},
	6: {0.0054931640625, 0.010986328125},
	7: {0.001373291015625, 0.001373291015625},
	8: {0.000171661376953125, 0.00034332275390625},
}

// CellPrecisionForRadius picks the finest precision whose 3x3 neighbor
// block still covers the radius around the given latitude. A cell's
// east-west extent shrinks by cos(latitude), so the same radius needs
// coarser cells toward the poles. Returns 0 when no precision covers the
// radius (callers fall back to the bounding box alone).
func CellPrecisionForRadius(lat, radiusKm float64) uint {
	// Measure cell width at the circle's pole-side edge, where cells are
	// narrowest.
	edgeLat := math.Abs(lat) + radiusKm/kmPerDegreeLat
	if edgeLat >= 90 {
		return 0
	}
	cos := math.Cos(degToRad(edgeLat))

	var best uint
	for p := uint(1); p <= 8; p++ {
		h := cellDegrees[p].Lat * kmPerDegreeLat
		w := cellDegrees[p].Lng * kmPerDegreeLng * cos
		if math.Min(h, w) >= radiusKm {
			best = p
		}
	}
	return best
}

// CoverCells returns the geohash prefixes (center cell plus neighbors)
// covering the circle of radiusKm around the point, or nil when no
// precision's neighbor ring can cover the radius at that latitude.
func CoverCells(lat, lng, radiusKm float64) []string {
	p := CellPrecisionForRadius(lat, radiusKm)
	if p == 0 {
		return nil
	}
	center := geohash.EncodeWithPrecision(lat, lng, p)
	cells := append([]string{center}, geohash.Neighbors(center)...)
	return cells
}

// Encode returns the stored-precision geohash for a point.
func Encode(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, StoredPrecision)
}
