package engine

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
	"github.com/copyleftdev/SWEEPR/internal/sweep/store"
)

// worker evaluates one contiguous partition of the global combination
// matrix against its own model instance. Each case moves through apply →
// evaluate → (recover → retry) → record; every case terminates recorded,
// failures as NaN rows with a non-optimal status.
type worker struct {
	rank  int
	model sweep.Model

	// Resolved once at setup; resolution failures here are fatal before
	// any evaluation starts.
	targets       []sweep.Mutable
	outputScalars []sweep.Scalar
	inputNames    []string
	outputNames   []string

	local *mat.Dense
	out   *store.Output
	log   *store.LocalLog

	evaluate    sweep.EvaluateFunc
	recoverFn   sweep.RecoverFunc
	evalOpts    map[string]any
	recoverOpts map[string]any

	onCase func(rank int, status sweep.SolveStatus)
	logger *zap.Logger
}

func newWorker(rank, numWorkers int, factory sweep.ModelFactory, params []sweep.Parameter, outputs []string, global *mat.Dense, opts Options) (*worker, error) {
	const op = "newWorker"

	model, err := factory()
	if err != nil {
		return nil, sweep.WrapErrorf(err, "cannot create model for worker %d", rank).WithComponent("engine").WithOperation(op)
	}

	w := &worker{
		rank:        rank,
		model:       model,
		evaluate:    opts.Evaluate,
		recoverFn:   opts.Recover,
		evalOpts:    opts.EvaluateOptions,
		recoverOpts: opts.RecoverOptions,
		onCase:      opts.OnCaseDone,
		logger:      opts.Logger.Named("worker").With(zap.Int("rank", rank)),
	}

	for _, p := range params {
		t, err := model.ResolveMutable(p.Sample.TargetName())
		if err != nil {
			return nil, sweep.WrapErrorf(err, "worker %d cannot bind sweep input %q", rank, p.Sample.TargetName()).
				WithComponent("engine").WithOperation(op)
		}
		w.targets = append(w.targets, t)
		w.inputNames = append(w.inputNames, t.Name())
	}
	for _, name := range outputs {
		s, err := model.Resolve(name)
		if err != nil {
			return nil, sweep.WrapErrorf(err, "worker %d cannot bind output %q", rank, name).
				WithComponent("engine").WithOperation(op)
		}
		w.outputScalars = append(w.outputScalars, s)
		w.outputNames = append(w.outputNames, s.Name())
	}

	w.local = sweep.Partition(global, rank, numWorkers)
	localCases := 0
	if w.local != nil {
		localCases, _ = w.local.Dims()
	}

	w.out, err = store.NewSkeleton(model, params, outputs, localCases)
	if err != nil {
		return nil, err
	}
	w.log, err = store.NewLocalLog(opts.OutputDir, rank, w.inputNames, w.outputNames)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// run evaluates the worker's partition in row order. Only infrastructure
// failures (log I/O) are returned; evaluation failures are contained per
// case.
func (w *worker) run() error {
	defer w.log.Close()

	if w.local == nil {
		w.logger.Debug("no cases assigned")
		return nil
	}
	n, _ := w.local.Dims()
	w.logger.Info("starting partition", zap.Int("cases", n))

	row := make([]float64, len(w.targets))
	for i := 0; i < n; i++ {
		mat.Row(row, i, w.local)
		if err := w.runCase(i, row); err != nil {
			return err
		}
	}
	w.logger.Info("partition complete")
	return nil
}

func (w *worker) runCase(idx int, row []float64) error {
	start := time.Now()

	for j, t := range w.targets {
		t.SetValue(row[j])
	}

	status := w.solveOnce()
	if !status.OK() && w.recoverFn != nil {
		caseRetries.Inc()
		w.logger.Debug("case failed, attempting recovery",
			zap.Int("case", idx),
			zap.String("status", string(status)))
		if err := safeRecover(w.recoverFn, w.model, w.recoverOpts); err != nil {
			w.logger.Warn("recovery callback failed", zap.Int("case", idx), zap.Error(err))
		} else if retry := w.solveOnce(); retry.OK() {
			status = sweep.StatusRecovered
		} else {
			status = retry
		}
	}

	// Inputs are known regardless of the outcome; only outputs go NaN on
	// failure.
	for j, name := range w.inputNames {
		v := w.targets[j].Value()
		w.out.SweepParams[name].Values[idx] = v
		w.out.Outputs[name].Values[idx] = v
	}

	outVals := make([]float64, len(w.outputScalars))
	if status.OK() {
		for k, s := range w.outputScalars {
			outVals[k] = s.Value()
			w.out.Outputs[w.outputNames[k]].Values[idx] = outVals[k]
		}
	} else {
		w.out.SetNaN(idx)
		for k := range outVals {
			outVals[k] = math.NaN()
		}
	}
	w.out.SolveStatus[idx] = string(status)

	casesEvaluated.WithLabelValues(string(status)).Inc()
	caseDuration.Observe(time.Since(start).Seconds())
	if w.onCase != nil {
		w.onCase(w.rank, status)
	}
	return w.log.Append(row, outVals, status)
}

func (w *worker) solveOnce() sweep.SolveStatus {
	status, err := safeEvaluate(w.evaluate, w.model, w.evalOpts)
	if err != nil {
		w.logger.Debug("evaluate callback error", zap.Error(err))
		return sweep.StatusError
	}
	return status
}

// safeEvaluate shields the sweep from a panicking evaluate callback; a
// panic is classified as a failed case, never a crashed worker.
func safeEvaluate(fn sweep.EvaluateFunc, m sweep.Model, opts map[string]any) (status sweep.SolveStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			status = sweep.StatusError
			err = fmt.Errorf("evaluate callback panicked: %v", r)
		}
	}()
	return fn(m, opts)
}

func safeRecover(fn sweep.RecoverFunc, m sweep.Model, opts map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovery callback panicked: %v", r)
		}
	}()
	return fn(m, opts)
}
