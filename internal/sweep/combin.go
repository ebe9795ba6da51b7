package sweep

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DeriveSamplingType inspects the supplied parameters and returns the
// sampling type they collectively imply. Linear specs imply fixed
// sampling, uniform and normal specs imply random sampling, and fixed
// specs are compatible with either. Mixing grid and random specs is a
// construction error.
func DeriveSamplingType(params []Parameter) (SamplingType, error) {
	const op = "DeriveSamplingType"

	if len(params) == 0 {
		return SamplingFixed, NewError("at least one sweep parameter is required").WithComponent("combin").WithOperation(op)
	}

	hasGrid := false
	hasRandom := false
	for _, p := range params {
		if p.Sample == nil {
			return SamplingFixed, NewErrorf("parameter %q has no sample spec", p.Name).WithComponent("combin").WithOperation(op)
		}
		switch p.Sample.(type) {
		case *LinearSample:
			hasGrid = true
		case *UniformSample, *NormalSample:
			hasRandom = true
		}
	}
	if hasGrid && hasRandom {
		return SamplingFixed, NewError("cannot mix grid (linear) and random (uniform/normal) sample specs").WithComponent("combin").WithOperation(op)
	}
	if hasRandom {
		return SamplingRandom, nil
	}
	return SamplingFixed, nil
}

// CountCases returns the number of rows BuildCombinations would produce
// without materializing the matrix.
func CountCases(params []Parameter, st SamplingType, numSamples int) (int, error) {
	const op = "CountCases"

	if len(params) == 0 {
		return 0, NewError("at least one sweep parameter is required").WithComponent("combin").WithOperation(op)
	}
	if st == SamplingRandom {
		if numSamples < 1 {
			return 0, NewErrorf("random sampling requires a positive case count, got %d", numSamples).WithComponent("combin").WithOperation(op)
		}
		return numSamples, nil
	}

	total := 1
	for _, p := range params {
		switch spec := p.Sample.(type) {
		case *LinearSample:
			total *= spec.Count()
		case *FixedSample:
			// Constant column, one grid point.
		default:
			return 0, NewErrorf("parameter %q is a random spec in a fixed sweep", p.Name).WithComponent("combin").WithOperation(op)
		}
	}
	return total, nil
}

// BuildCombinations materializes the full global combination matrix: one
// row per case, one column per parameter, in the parameter order given.
//
// In fixed mode the matrix is the Cartesian product of every parameter's
// grid, enumerated with the last parameter varying fastest. In random mode
// the matrix has numSamples rows with every column drawn independently.
//
// Generation is fully deterministic for a given seed, so every worker in a
// collective run computes the identical matrix without any communication.
func BuildCombinations(params []Parameter, st SamplingType, numSamples int, seed int64) (*mat.Dense, error) {
	const op = "BuildCombinations"

	if len(params) == 0 {
		return nil, NewError("at least one sweep parameter is required").WithComponent("combin").WithOperation(op)
	}

	rng := rand.New(rand.NewSource(seed))

	switch st {
	case SamplingFixed:
		return buildFactorial(params, rng)
	case SamplingRandom:
		if numSamples < 1 {
			return nil, NewErrorf("random sampling requires a positive case count, got %d", numSamples).WithComponent("combin").WithOperation(op)
		}
		return buildRandom(params, numSamples, rng)
	default:
		return nil, NewErrorf("unknown sampling type %v", st).WithComponent("combin").WithOperation(op)
	}
}

func buildFactorial(params []Parameter, rng *rand.Rand) (*mat.Dense, error) {
	const op = "buildFactorial"

	cols := make([][]float64, len(params))
	total := 1
	for j, p := range params {
		if p.Sample.Type() != SamplingFixed {
			return nil, NewErrorf("parameter %q is a random spec in a fixed sweep", p.Name).WithComponent("combin").WithOperation(op)
		}
		cols[j] = p.Sample.Column(0, rng)
		total *= len(cols[j])
	}

	out := mat.NewDense(total, len(params), nil)
	// Standard nested enumeration: column j repeats each value for the
	// product of all later grid sizes.
	stride := total
	for j, col := range cols {
		stride /= len(col)
		for i := 0; i < total; i++ {
			out.Set(i, j, col[(i/stride)%len(col)])
		}
	}
	return out, nil
}

func buildRandom(params []Parameter, numSamples int, rng *rand.Rand) (*mat.Dense, error) {
	out := mat.NewDense(numSamples, len(params), nil)
	for j, p := range params {
		col := p.Sample.Column(numSamples, rng)
		for i := 0; i < numSamples; i++ {
			out.Set(i, j, col[i])
		}
	}
	return out, nil
}
