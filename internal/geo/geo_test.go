package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	t.Run("Same point", func(t *testing.T) {
		assert.Zero(t, DistanceKm(40.0, -74.0, 40.0, -74.0))
	})

	t.Run("Close points", func(t *testing.T) {
		// ~140m apart in midtown-ish New Jersey
		d := DistanceKm(40.0, -74.0, 40.001, -74.001)
		assert.InDelta(t, 0.14, d, 0.01)
	})

	t.Run("Known city pair", func(t *testing.T) {
		// London -> Paris, ~344 km
		d := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
		assert.InDelta(t, 344, d, 5)
	})

	t.Run("Symmetry", func(t *testing.T) {
		a := DistanceKm(10, 20, 30, 40)
		b := DistanceKm(30, 40, 10, 20)
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestValidCoords(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidCoords(0, 0))
	assert.True(t, ValidCoords(-90, 180))
	assert.False(t, ValidCoords(90.1, 0))
	assert.False(t, ValidCoords(0, -180.5))
}

func TestBoundingBox(t *testing.T) {
	t.Parallel()
	box := BoundingBox(40.0, -74.0, 2)

	assert.Less(t, box.MinLat, 40.0)
	assert.Greater(t, box.MaxLat, 40.0)
	assert.Less(t, box.MinLng, -74.0)
	assert.Greater(t, box.MaxLng, -74.0)

	// 2km of latitude is ~0.018 degrees
	assert.InDelta(t, 0.018, box.MaxLat-40.0, 0.002)

	// Every point inside the radius must fall inside the box.
	for _, pt := range [][2]float64{
		{40.017, -74.0}, {40.0, -74.023}, {39.983, -74.0},
	} {
		if DistanceKm(40.0, -74.0, pt[0], pt[1]) <= 2 {
			assert.GreaterOrEqual(t, pt[0], box.MinLat)
			assert.LessOrEqual(t, pt[0], box.MaxLat)
			assert.GreaterOrEqual(t, pt[1], box.MinLng)
			assert.LessOrEqual(t, pt[1], box.MaxLng)
		}
	}
}

func TestCellPrecisionForRadius(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint(5), CellPrecisionForRadius(40.0, 2))
	assert.Equal(t, uint(6), CellPrecisionForRadius(40.0, 0.5))
	assert.Equal(t, uint(4), CellPrecisionForRadius(40.0, 10))
	// Larger than the coarsest useful cell: no prefilter
	assert.Equal(t, uint(1), CellPrecisionForRadius(0, 4000))
	assert.Equal(t, uint(0), CellPrecisionForRadius(0, 6000))
}

func TestCellPrecisionCoarsensTowardPoles(t *testing.T) {
	t.Parallel()

	// Cells narrow east-west by cos(latitude), so the precision that
	// covers 2 km at mid latitudes must not be used near the poles.
	mid := CellPrecisionForRadius(40.0, 2)
	high := CellPrecisionForRadius(80.0, 2)
	assert.Less(t, high, mid)

	// Close enough to the pole no ring covers the radius at all.
	assert.Equal(t, uint(0), CellPrecisionForRadius(89.99, 2))
}

func coveredBy(stored string, cells []string) bool {
	for _, c := range cells {
		if strings.HasPrefix(stored, c) {
			return true
		}
	}
	return false
}

func TestCoverCells(t *testing.T) {
	t.Parallel()

	cells := CoverCells(40.0, -74.0, 2)
	assert.Len(t, cells, 9)

	// The stored hash of any point within the radius must be prefixed by
	// one of the cover cells.
	stored := Encode(40.001, -74.001)
	assert.True(t, coveredBy(stored, cells), "stored hash %s not covered by %v", stored, cells)

	assert.Nil(t, CoverCells(0, 0, 6000))
}

func TestCoverCellsHighLatitude(t *testing.T) {
	t.Parallel()

	// At 80N, 0.09 degrees of longitude is only ~1.7 km; the ring must
	// still cover points near the radius in every direction.
	cells := CoverCells(80.0, 0.0, 2)
	if cells == nil {
		return // box-only fallback is also correct
	}
	for _, pt := range [][2]float64{
		{80.0, 0.09}, {80.0, -0.09}, {80.017, 0.0}, {79.983, 0.05},
	} {
		if DistanceKm(80.0, 0.0, pt[0], pt[1]) <= 2 {
			stored := Encode(pt[0], pt[1])
			assert.True(t, coveredBy(stored, cells),
				"stored hash %s at (%v,%v) not covered by %v", stored, pt[0], pt[1], cells)
		}
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()
	h := Encode(40.0, -74.0)
	assert.Len(t, h, StoredPrecision)
}
