// Package sweeptest provides a small algebraic model with a closed-form
// solve, used by the engine tests and the demo registration in sweepd.
//
// The model has two unit-interval inputs and two unit-interval outputs
// coupled by c = 2a and d = 3b through zero-bounded slack variables. With
// the slacks pinned at zero the model is infeasible whenever 2a or 3b
// exceeds one; relaxing the slacks makes every case solvable at a penalty
// charged to the objective.
package sweeptest

import (
	"fmt"
	"math"
	"strings"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

// Canonical variable names.
const (
	InputA      = "fs.input[a]"
	InputB      = "fs.input[b]"
	OutputC     = "fs.output[c]"
	OutputD     = "fs.output[d]"
	SlackAB     = "fs.slack[ab]"
	SlackCD     = "fs.slack[cd]"
	Performance = "fs.performance"
	Objective   = "objective"
)

// Var is one scalar leaf of the model.
type Var struct {
	name   string
	value  float64
	lower  float64
	upper  float64
	units  string
}

// Name returns the canonical variable name.
func (v *Var) Name() string { return v.name }

// Value returns the current value.
func (v *Var) Value() float64 { return v.value }

// SetValue overwrites the current value.
func (v *Var) SetValue(x float64) { v.value = x }

// Bounds returns the declared bounds.
func (v *Var) Bounds() (float64, float64) { return v.lower, v.upper }

// Units returns the declared unit string.
func (v *Var) Units() string { return v.units }

// Model is the reference system under study.
type Model struct {
	vars map[string]*Var

	// SlackPenalty is the objective penalty per unit of slack.
	SlackPenalty float64

	relaxed bool
}

// New builds a fresh model with inputs and outputs initialized to 0.5,
// slacks pinned at zero, and a slack penalty of 1000.
func New() *Model {
	m := &Model{
		vars:         make(map[string]*Var),
		SlackPenalty: 1000,
	}
	add := func(name string, value, lower, upper float64) {
		m.vars[name] = &Var{name: name, value: value, lower: lower, upper: upper, units: "non-dimensional"}
	}
	add(InputA, 0.5, 0, 1)
	add(InputB, 0.5, 0, 1)
	add(OutputC, 0.5, 0, 1)
	add(OutputD, 0.5, 0, 1)
	add(SlackAB, 0, 0, 0)
	add(SlackCD, 0, 0, 0)
	add(Performance, 0, 0, 2)
	add(Objective, 0, math.Inf(-1), math.Inf(1))
	return m
}

// Factory returns an independent model instance; it satisfies
// sweep.ModelFactory.
func Factory() (sweep.Model, error) { return New(), nil }

// RelaxSlack lifts the zero upper bound on the slack variables so every
// case becomes solvable.
func (m *Model) RelaxSlack() { m.relaxed = true }

// Relaxed reports whether the slacks have been relaxed.
func (m *Model) Relaxed() bool { return m.relaxed }

// Resolve returns the scalar addressed by name. A bare indexed name such
// as "fs.input" resolves only when exactly one element exists; otherwise
// the target is ambiguous.
func (m *Model) Resolve(name string) (sweep.Scalar, error) {
	v, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ResolveMutable is Resolve for writable scalars. Every leaf of this model
// is writable.
func (m *Model) ResolveMutable(name string) (sweep.Mutable, error) {
	return m.lookup(name)
}

func (m *Model) lookup(name string) (*Var, error) {
	if v, ok := m.vars[name]; ok {
		return v, nil
	}
	var matches []*Var
	prefix := name + "["
	for n, v := range m.vars {
		if strings.HasPrefix(n, prefix) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no scalar named %q", name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q: %w", name, sweep.ErrAmbiguousTarget)
	}
}

// Solve evaluates the model in closed form; it satisfies
// sweep.EvaluateFunc. The option "relax_feasibility" lifts the slack
// bounds before solving.
func Solve(model sweep.Model, opts map[string]any) (sweep.SolveStatus, error) {
	m, ok := model.(*Model)
	if !ok {
		return sweep.StatusError, fmt.Errorf("sweeptest.Solve requires *sweeptest.Model, got %T", model)
	}
	if relax, _ := opts["relax_feasibility"].(bool); relax {
		m.RelaxSlack()
	}

	a := m.vars[InputA].value
	b := m.vars[InputB].value
	cStar := 2 * a
	dStar := 3 * b

	var c, d, slackAB, slackCD float64
	if m.relaxed {
		c = math.Min(cStar, 1)
		d = math.Min(dStar, 1)
		slackAB = cStar - c
		slackCD = dStar - d
	} else {
		if cStar > 1 || dStar > 1 {
			return sweep.StatusInfeasible, nil
		}
		c, d = cStar, dStar
	}

	m.vars[OutputC].value = c
	m.vars[OutputD].value = d
	m.vars[SlackAB].value = slackAB
	m.vars[SlackCD].value = slackCD
	m.vars[Performance].value = c + d
	m.vars[Objective].value = c + d - m.SlackPenalty*(slackAB+slackCD)
	return sweep.StatusOptimal, nil
}

// Relax is a recovery callback that lifts the slack bounds and lowers the
// slack penalty; it satisfies sweep.RecoverFunc. The option
// "slack_penalty" overrides the default of 10.
func Relax(model sweep.Model, opts map[string]any) error {
	m, ok := model.(*Model)
	if !ok {
		return fmt.Errorf("sweeptest.Relax requires *sweeptest.Model, got %T", model)
	}
	m.RelaxSlack()
	m.SlackPenalty = 10
	if p, ok := opts["slack_penalty"].(float64); ok {
		m.SlackPenalty = p
	}
	return nil
}

// NoopRecover is a recovery callback that changes nothing, so the retry
// fails the same way the first attempt did.
func NoopRecover(model sweep.Model, opts map[string]any) error { return nil }
