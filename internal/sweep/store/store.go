// Package store defines the annotated result schema for a parameter sweep
// and its persistence: a nested per-variable structure serialized with
// msgpack (lossless for NaN and exact float64 values) and flat CSV tables.
package store

import (
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

// VarRecord annotates one variable's value series with the bounds and
// units declared by the model.
type VarRecord struct {
	LowerBound float64   `msgpack:"lower_bound"`
	UpperBound float64   `msgpack:"upper_bound"`
	Units      string    `msgpack:"units"`
	Values     []float64 `msgpack:"value"`
}

// Output is the nested result structure for a sweep at a given case
// count. SweepParams holds the swept input variables, Outputs holds the
// requested outputs plus the swept inputs (so the output section is
// self-contained), and SolveStatus holds one status string per case in
// case order.
//
// An Output built at a worker's local case count covers only that worker's
// partition. Only the coordinator ever holds an Output at the global case
// count; see the engine package.
type Output struct {
	SweepParams map[string]*VarRecord `msgpack:"sweep_params"`
	Outputs     map[string]*VarRecord `msgpack:"outputs"`
	SolveStatus []string              `msgpack:"solve_status"`
}

// NewSkeleton pre-allocates an Output for numCases cases. Bounds and units
// are read from the model for every swept input and requested output;
// value series are zero-initialized and mutated in place as cases
// complete. The skeleton is never resized.
func NewSkeleton(m sweep.Model, params []sweep.Parameter, outputs []string, numCases int) (*Output, error) {
	const op = "NewSkeleton"

	out := &Output{
		SweepParams: make(map[string]*VarRecord, len(params)),
		Outputs:     make(map[string]*VarRecord, len(params)+len(outputs)),
		SolveStatus: make([]string, numCases),
	}

	for _, p := range params {
		s, err := m.Resolve(p.Sample.TargetName())
		if err != nil {
			return nil, sweep.WrapErrorf(err, "cannot resolve sweep input %q", p.Sample.TargetName()).
				WithComponent("store").WithOperation(op)
		}
		out.SweepParams[s.Name()] = newRecord(s, numCases)
		out.Outputs[s.Name()] = newRecord(s, numCases)
	}

	for _, name := range outputs {
		s, err := m.Resolve(name)
		if err != nil {
			return nil, sweep.WrapErrorf(err, "cannot resolve output %q", name).
				WithComponent("store").WithOperation(op)
		}
		if _, exists := out.Outputs[s.Name()]; !exists {
			out.Outputs[s.Name()] = newRecord(s, numCases)
		}
	}

	return out, nil
}

func newRecord(s sweep.Scalar, numCases int) *VarRecord {
	lo, hi := s.Bounds()
	return &VarRecord{
		LowerBound: lo,
		UpperBound: hi,
		Units:      s.Units(),
		Values:     make([]float64, numCases),
	}
}

// NumCases returns the case count the structure was allocated for.
func (o *Output) NumCases() int { return len(o.SolveStatus) }

// SetNaN writes NaN into every output record at the given case index.
// Sweep input records are left alone; inputs are known even when a case
// fails.
func (o *Output) SetNaN(idx int) {
	nan := math.NaN()
	for name, rec := range o.Outputs {
		if _, isInput := o.SweepParams[name]; isInput {
			continue
		}
		rec.Values[idx] = nan
	}
}

// WriteFile serializes the structure to path with msgpack. Float64 values,
// NaN entries included, survive the round trip bit-exactly.
func (o *Output) WriteFile(path string) error {
	const op = "Output.WriteFile"

	data, err := msgpack.Marshal(o)
	if err != nil {
		return sweep.WrapError(err, "cannot encode results").WithComponent("store").WithOperation(op)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sweep.WrapError(err, "cannot write results file").WithComponent("store").WithOperation(op)
	}
	return nil
}

// ReadFile reads a structure previously written with WriteFile.
func ReadFile(path string) (*Output, error) {
	const op = "ReadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sweep.WrapError(err, "cannot read results file").WithComponent("store").WithOperation(op)
	}
	out := &Output{}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return nil, sweep.WrapError(err, "cannot decode results file").WithComponent("store").WithOperation(op)
	}
	return out, nil
}
