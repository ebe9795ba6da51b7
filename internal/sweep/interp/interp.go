// Package interp repairs failed sweep cases by scattered-data
// interpolation over the cases that evaluated successfully.
//
// A query point inside the convex hull of the control points receives a
// linear blend of control values; a point outside the hull, or one that
// coincides exactly with a control point, receives the value of the
// nearest control point by Euclidean distance. Control entries are never
// modified.
package interp

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

// hullTol is the feasibility tolerance for the convex hull membership
// program.
const hullTol = 1e-10

// FillNaN returns a copy of results with every NaN entry replaced by an
// interpolated value. points holds the input-parameter coordinates, one
// row per case; results holds one value per case, aligned by row. Entries
// that are not NaN are returned untouched. If no case evaluated
// successfully there is nothing to interpolate from and the input is
// returned as-is.
func FillNaN(points *mat.Dense, results []float64) ([]float64, error) {
	const op = "FillNaN"

	rows, dims := points.Dims()
	if len(results) != rows {
		return nil, sweep.NewErrorf("results length %d does not match %d input rows", len(results), rows).
			WithComponent("interp").WithOperation(op)
	}

	out := make([]float64, len(results))
	copy(out, results)

	var controls []int
	for i, v := range results {
		if !math.IsNaN(v) {
			controls = append(controls, i)
		}
	}
	if len(controls) == 0 || len(controls) == rows {
		return out, nil
	}

	// Equality-constraint matrix for both hull membership and the weight
	// solve: convex weights w satisfy sum(w) = 1 and sum(w*x_i) = q.
	m := len(controls)
	a := mat.NewDense(dims+1, m, nil)
	for k, ci := range controls {
		a.Set(0, k, 1)
		for d := 0; d < dims; d++ {
			a.Set(d+1, k, points.At(ci, d))
		}
	}
	zeroCost := make([]float64, m)

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, sweep.NewError("SVD factorization of control points failed").
			WithComponent("interp").WithOperation(op)
	}
	rank := svd.Rank(1e-12)

	query := make([]float64, dims)
	for i := range out {
		if !math.IsNaN(out[i]) {
			continue
		}
		mat.Row(query, i, points)

		if ci, ok := exactMatch(points, controls, query); ok {
			out[i] = results[ci]
			continue
		}

		b := make([]float64, dims+1)
		b[0] = 1
		copy(b[1:], query)

		if _, _, err := lp.Simplex(zeroCost, a, b, hullTol, nil); err != nil {
			// Outside the hull (or the program is degenerate): fall back
			// to the nearest control point.
			out[i] = results[nearest(points, controls, query)]
			continue
		}

		val, err := blend(&svd, rank, b, results, controls)
		if err != nil {
			out[i] = results[nearest(points, controls, query)]
			continue
		}
		out[i] = val
	}
	return out, nil
}

// FillNaNColumns applies FillNaN independently to every column of results.
// Each column's control set is the rows where that column is non-NaN.
func FillNaNColumns(points *mat.Dense, results *mat.Dense) (*mat.Dense, error) {
	rows, cols := results.Dims()
	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, results)
		filled, err := FillNaN(points, col)
		if err != nil {
			return nil, err
		}
		out.SetCol(j, filled)
	}
	return out, nil
}

// exactMatch returns the first control row whose coordinates equal the
// query exactly.
func exactMatch(points *mat.Dense, controls []int, query []float64) (int, bool) {
	_, dims := points.Dims()
	for _, ci := range controls {
		same := true
		for d := 0; d < dims; d++ {
			if points.At(ci, d) != query[d] {
				same = false
				break
			}
		}
		if same {
			return ci, true
		}
	}
	return 0, false
}

// nearest returns the control row closest to the query by Euclidean
// distance, ties broken by first occurrence.
func nearest(points *mat.Dense, controls []int, query []float64) int {
	_, dims := points.Dims()
	best := controls[0]
	bestDist := math.Inf(1)
	for _, ci := range controls {
		var d2 float64
		for d := 0; d < dims; d++ {
			diff := points.At(ci, d) - query[d]
			d2 += diff * diff
		}
		if d2 < bestDist {
			bestDist = d2
			best = ci
		}
	}
	return best
}

// blend computes the interpolated value from the minimum-norm weights
// satisfying the convex combination constraints. The minimum-norm solution
// reproduces the query point exactly, so the blend is exact for any result
// field that is linear in the input parameters.
func blend(svd *mat.SVD, rank int, b []float64, results []float64, controls []int) (float64, error) {
	if rank == 0 {
		return 0, sweep.NewError("control point system has rank zero").WithComponent("interp")
	}
	var w mat.Dense
	bVec := mat.NewDense(len(b), 1, b)
	svd.SolveTo(&w, bVec, rank)

	var val float64
	for k, ci := range controls {
		val += w.At(k, 0) * results[ci]
	}
	return val, nil
}
