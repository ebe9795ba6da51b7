package sweep

import (
	"errors"
	"math/rand"
)

// ErrAmbiguousTarget is returned when a sample spec's target name resolves
// to more than one scalar. Binding to an ambiguous target is a
// construction error; it is never deferred to evaluation time.
var ErrAmbiguousTarget = errors.New("target resolves to more than one scalar")

// LinearSample generates count evenly spaced values from lower to upper
// inclusive. Linear specs imply fixed (full factorial) sampling.
type LinearSample struct {
	target string
	lower  float64
	upper  float64
	count  int
}

// NewLinearSample binds a linear grid to the named mutable scalar of m.
func NewLinearSample(m Model, target string, lower, upper float64, count int) (*LinearSample, error) {
	const op = "NewLinearSample"

	t, err := m.ResolveMutable(target)
	if err != nil {
		return nil, WrapError(err, "invalid sample target").WithComponent("samples").WithOperation(op)
	}
	if count < 1 {
		return nil, NewErrorf("count must be at least 1, got %d", count).WithComponent("samples").WithOperation(op)
	}
	return &LinearSample{target: t.Name(), lower: lower, upper: upper, count: count}, nil
}

// TargetName returns the canonical name of the bound scalar.
func (s *LinearSample) TargetName() string { return s.target }

// Type returns SamplingFixed.
func (s *LinearSample) Type() SamplingType { return SamplingFixed }

// Count returns the grid size.
func (s *LinearSample) Count() int { return s.count }

// Column returns the grid. The first value is exactly lower and the last
// exactly upper; count == 1 degenerates to {lower}.
func (s *LinearSample) Column(n int, rng *rand.Rand) []float64 {
	col := make([]float64, s.count)
	if s.count == 1 {
		col[0] = s.lower
		return col
	}
	step := (s.upper - s.lower) / float64(s.count-1)
	for i := range col {
		col[i] = s.lower + float64(i)*step
	}
	col[s.count-1] = s.upper
	return col
}

// UniformSample draws values strictly within (lower, upper). Uniform specs
// imply random sampling.
type UniformSample struct {
	target string
	lower  float64
	upper  float64
}

// NewUniformSample binds a uniform distribution to the named mutable
// scalar of m.
func NewUniformSample(m Model, target string, lower, upper float64) (*UniformSample, error) {
	const op = "NewUniformSample"

	t, err := m.ResolveMutable(target)
	if err != nil {
		return nil, WrapError(err, "invalid sample target").WithComponent("samples").WithOperation(op)
	}
	if upper <= lower {
		return nil, NewErrorf("upper bound %v must exceed lower bound %v", upper, lower).WithComponent("samples").WithOperation(op)
	}
	return &UniformSample{target: t.Name(), lower: lower, upper: upper}, nil
}

// TargetName returns the canonical name of the bound scalar.
func (s *UniformSample) TargetName() string { return s.target }

// Type returns SamplingRandom.
func (s *UniformSample) Type() SamplingType { return SamplingRandom }

// Column returns n draws strictly inside the open interval.
func (s *UniformSample) Column(n int, rng *rand.Rand) []float64 {
	col := make([]float64, n)
	for i := range col {
		f := rng.Float64()
		for f == 0 {
			f = rng.Float64()
		}
		col[i] = s.lower + f*(s.upper-s.lower)
	}
	return col
}

// NormalSample draws values from a normal distribution. A zero standard
// deviation degenerates to a constant column equal to the mean.
type NormalSample struct {
	target string
	mean   float64
	stdDev float64
}

// NewNormalSample binds a normal distribution to the named mutable scalar
// of m.
func NewNormalSample(m Model, target string, mean, stdDev float64) (*NormalSample, error) {
	const op = "NewNormalSample"

	t, err := m.ResolveMutable(target)
	if err != nil {
		return nil, WrapError(err, "invalid sample target").WithComponent("samples").WithOperation(op)
	}
	if stdDev < 0 {
		return nil, NewErrorf("standard deviation must be non-negative, got %v", stdDev).WithComponent("samples").WithOperation(op)
	}
	return &NormalSample{target: t.Name(), mean: mean, stdDev: stdDev}, nil
}

// TargetName returns the canonical name of the bound scalar.
func (s *NormalSample) TargetName() string { return s.target }

// Type returns SamplingRandom.
func (s *NormalSample) Type() SamplingType { return SamplingRandom }

// Column returns n normal draws.
func (s *NormalSample) Column(n int, rng *rand.Rand) []float64 {
	col := make([]float64, n)
	for i := range col {
		if s.stdDev == 0 {
			col[i] = s.mean
			continue
		}
		col[i] = s.mean + s.stdDev*rng.NormFloat64()
	}
	return col
}

// FixedSample holds the target at a single constant value so the current
// model state is still recorded per case. It is compatible with both
// sampling types.
type FixedSample struct {
	target string
	value  float64
}

// NewFixedSample binds a constant to the named mutable scalar of m.
func NewFixedSample(m Model, target string, value float64) (*FixedSample, error) {
	const op = "NewFixedSample"

	t, err := m.ResolveMutable(target)
	if err != nil {
		return nil, WrapError(err, "invalid sample target").WithComponent("samples").WithOperation(op)
	}
	return &FixedSample{target: t.Name(), value: value}, nil
}

// TargetName returns the canonical name of the bound scalar.
func (s *FixedSample) TargetName() string { return s.target }

// Type returns SamplingFixed. Fixed specs also participate in random
// sweeps, where they contribute a constant column.
func (s *FixedSample) Type() SamplingType { return SamplingFixed }

// Column returns a constant column. In a fixed sweep the column has a
// single entry; in a random sweep it has n.
func (s *FixedSample) Column(n int, rng *rand.Rand) []float64 {
	if n < 1 {
		n = 1
	}
	col := make([]float64, n)
	for i := range col {
		col[i] = s.value
	}
	return col
}
