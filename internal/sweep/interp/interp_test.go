package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// square is a 2x2 unit grid plus a center query row, the smallest layout
// that exercises hull membership, blending, and the fallbacks together.
func square(center []float64) (*mat.Dense, []float64) {
	points := mat.NewDense(5, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		center[0], center[1],
	})
	return points, []float64{10, 20, 30, 40, math.NaN()}
}

func TestFillNaNCentroidIsMean(t *testing.T) {
	points, results := square([]float64{0.5, 0.5})

	filled, err := FillNaN(points, results)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, filled[4], 1e-9,
		"the centroid of a hypercube interpolates to the arithmetic mean of its corners")
}

func TestFillNaNCubeCentroidIsMean(t *testing.T) {
	// All 8 corners of the unit cube known, centroid missing.
	data := make([]float64, 0, 9*3)
	results := make([]float64, 0, 9)
	sum := 0.0
	for i := 0; i < 8; i++ {
		x := float64(i & 1)
		y := float64((i >> 1) & 1)
		z := float64((i >> 2) & 1)
		data = append(data, x, y, z)
		v := float64(10 * (i + 1))
		results = append(results, v)
		sum += v
	}
	data = append(data, 0.5, 0.5, 0.5)
	results = append(results, math.NaN())
	points := mat.NewDense(9, 3, data)

	filled, err := FillNaN(points, results)
	require.NoError(t, err)
	assert.InDelta(t, sum/8, filled[8], 1e-9)
}

func TestFillNaNLinearFieldExact(t *testing.T) {
	// f(x, y) = 2x + 3y + 1 sampled at the corners; any interior point
	// must reproduce the linear field.
	f := func(x, y float64) float64 { return 2*x + 3*y + 1 }
	points := mat.NewDense(5, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		0.25, 0.75,
	})
	results := []float64{f(0, 0), f(0, 1), f(1, 0), f(1, 1), math.NaN()}

	filled, err := FillNaN(points, results)
	require.NoError(t, err)
	assert.InDelta(t, f(0.25, 0.75), filled[4], 1e-9)
}

func TestFillNaNExactCoincidenceUsesControlValue(t *testing.T) {
	points := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 1,
		1, 1,
	})
	results := []float64{10, 40, math.NaN()}

	filled, err := FillNaN(points, results)
	require.NoError(t, err)
	assert.Equal(t, 40.0, filled[2],
		"a query coinciding with a control point takes that control's value")
}

func TestFillNaNOutsideHullUsesNearest(t *testing.T) {
	points, results := square([]float64{2, 2})

	filled, err := FillNaN(points, results)
	require.NoError(t, err)
	assert.Equal(t, 40.0, filled[4], "outside the hull the nearest control value wins")
}

func TestFillNaNControlsUntouched(t *testing.T) {
	points, results := square([]float64{0.5, 0.5})

	filled, err := FillNaN(points, results)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.Equal(t, results[i], filled[i], "control entries must pass through unchanged")
	}
}

func TestFillNaNDegenerateControlSets(t *testing.T) {
	t.Run("no successes", func(t *testing.T) {
		points := mat.NewDense(2, 1, []float64{0, 1})
		results := []float64{math.NaN(), math.NaN()}
		filled, err := FillNaN(points, results)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(filled[0]))
		assert.True(t, math.IsNaN(filled[1]))
	})

	t.Run("no failures", func(t *testing.T) {
		points := mat.NewDense(2, 1, []float64{0, 1})
		results := []float64{3, 4}
		filled, err := FillNaN(points, results)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 4}, filled)
	})

	t.Run("length mismatch", func(t *testing.T) {
		points := mat.NewDense(2, 1, []float64{0, 1})
		_, err := FillNaN(points, []float64{1})
		assert.Error(t, err)
	})
}

func TestFillNaNColumnsIndependentControlSets(t *testing.T) {
	points := mat.NewDense(3, 1, []float64{0, 1, 0.5})
	results := mat.NewDense(3, 2, []float64{
		10, math.NaN(),
		20, 2,
		math.NaN(), 4,
	})

	filled, err := FillNaNColumns(points, results)
	require.NoError(t, err)

	// Column 0: midpoint of 10 and 20. Column 1: its controls sit at
	// x=1 and x=0.5, so x=0 is outside their hull and snaps to the
	// nearest control.
	assert.InDelta(t, 15.0, filled.At(2, 0), 1e-9)
	assert.Equal(t, 4.0, filled.At(0, 1))
	assert.Equal(t, 2.0, filled.At(1, 1))
	assert.Equal(t, 20.0, filled.At(1, 0))
}
