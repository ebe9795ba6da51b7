// Package sweep implements the core of a distributed parameter sweep:
// sample generation, combination building, workload partitioning, and the
// contracts the evaluation engine depends on. The model under study is an
// external collaborator reached only through the Model interface; the sweep
// never assumes anything about how it computes its outputs.
package sweep

import "math/rand"

// SamplingType selects how the global combination matrix is generated.
type SamplingType int

const (
	// SamplingFixed builds the full factorial (Cartesian product) of every
	// parameter's grid.
	SamplingFixed SamplingType = iota
	// SamplingRandom draws one independent random row per requested case.
	SamplingRandom
)

// String returns a human-readable name for the sampling type.
func (t SamplingType) String() string {
	switch t {
	case SamplingFixed:
		return "fixed"
	case SamplingRandom:
		return "random"
	default:
		return "unknown"
	}
}

// SolveStatus is the terminal classification of a single case evaluation.
type SolveStatus string

const (
	// StatusOptimal marks a case that solved on the first attempt.
	StatusOptimal SolveStatus = "optimal"
	// StatusRecovered marks a case that failed once, was recovered by the
	// caller-supplied recovery callback, and then solved on the retry.
	StatusRecovered SolveStatus = "recovered"
	// StatusInfeasible marks a case whose evaluation reported infeasibility.
	StatusInfeasible SolveStatus = "infeasible"
	// StatusError marks a case whose evaluation returned or raised an error.
	StatusError SolveStatus = "error"
)

// OK reports whether the status represents a successful evaluation.
func (s SolveStatus) OK() bool {
	return s == StatusOptimal || s == StatusRecovered
}

// Scalar is a readable leaf of the model: one named float64 together with
// its declared bounds and units.
type Scalar interface {
	// Name returns the canonical, fully qualified name of the scalar.
	Name() string
	// Value returns the current value.
	Value() float64
	// Bounds returns the declared lower and upper bound.
	Bounds() (lower, upper float64)
	// Units returns the declared unit string.
	Units() string
}

// Mutable is a Scalar that a sweep may write to. Sample specs bind to
// mutable targets; one value is written per target per case.
type Mutable interface {
	Scalar
	SetValue(v float64)
}

// Model is the capability interface to the system under study. Names are
// resolved to scalar leaves; a name that matches more than one leaf is
// ambiguous and must return an error rather than guess.
type Model interface {
	// Resolve returns the read-only scalar addressed by name. A name that
	// addresses an indexed quantity with exactly one element resolves to
	// that element.
	Resolve(name string) (Scalar, error)
	// ResolveMutable is Resolve for writable scalars.
	ResolveMutable(name string) (Mutable, error)
}

// ModelFactory creates an independent model instance. Each worker in a
// sweep operates on its own instance; instances must not share state.
type ModelFactory func() (Model, error)

// EvaluateFunc solves the model in its current state and reports the
// outcome. Implementations may return an error (or panic); the harness
// converts both into a failed case rather than aborting the sweep.
type EvaluateFunc func(m Model, opts map[string]any) (SolveStatus, error)

// RecoverFunc is invoked once after a failed evaluation to move the model
// back into a solvable region before the single retry.
type RecoverFunc func(m Model, opts map[string]any) error

// Parameter pairs a sweep parameter's display name with its sample spec.
// The order of a Parameter slice fixes the column order of the combination
// matrix and of every downstream table.
type Parameter struct {
	Name   string
	Sample SampleSpec
}

// SampleSpec describes how one parameter's column of sample values is
// generated. Specs are immutable after construction and always address
// exactly one mutable scalar.
type SampleSpec interface {
	// TargetName returns the canonical name of the bound scalar, as
	// resolved at construction time.
	TargetName() string
	// Type returns the sampling type this spec implies.
	Type() SamplingType
	// Column produces the spec's sample values. Grid specs ignore n and
	// return their own grid; random specs return n draws from rng.
	Column(n int, rng *rand.Rand) []float64
}
