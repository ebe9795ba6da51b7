// Package engine orchestrates a distributed parameter sweep: it
// materializes the global combination matrix, partitions it across
// cooperating workers, runs the per-case evaluation harness on each
// partition, gathers the results back into a single globally ordered
// output, optionally repairs failed cases by interpolation, and persists
// the flat and structured result files.
package engine

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
	"github.com/copyleftdev/SWEEPR/internal/sweep/interp"
	"github.com/copyleftdev/SWEEPR/internal/sweep/store"
)

// Options configures a sweep run. Zero values get sensible defaults from
// Run; only Evaluate is mandatory.
type Options struct {
	// Evaluate solves the model for the current case. Required.
	Evaluate sweep.EvaluateFunc
	// Recover, when set, is invoked once after a failed case before the
	// single retry.
	Recover sweep.RecoverFunc

	// EvaluateOptions and RecoverOptions are passed through to the
	// callbacks untouched.
	EvaluateOptions map[string]any
	RecoverOptions  map[string]any

	// NumWorkers is the size of the worker collective. Defaults to 1.
	NumWorkers int
	// Seed feeds every worker's combination builder identically, so the
	// collective agrees on the global matrix without communication.
	Seed int64
	// NumSamples is the global case count for random sweeps; ignored for
	// fixed sweeps.
	NumSamples int

	// OutputDir receives the per-worker local logs and, unless the file
	// options below are absolute paths, the merged global files.
	OutputDir string
	// CSVResultsFile is the flat global table. Defaults to
	// "global_results.csv".
	CSVResultsFile string
	// ResultsFile is the structured msgpack store. Defaults to
	// "results.msgpack".
	ResultsFile string
	// XLSXResultsFile, when set, additionally exports the flat table as a
	// workbook.
	XLSXResultsFile string
	// InterpolateNaN writes an additional "interpolated_" table with
	// failed cases repaired from the successful ones. The primary table
	// keeps its NaN cells.
	InterpolateNaN bool

	// OnCaseDone, when set, is called after every recorded case.
	OnCaseDone func(rank int, status sweep.SolveStatus)
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Run executes the sweep and returns the globally ordered output.
//
// The returned structure is the coordinator's view and is the only
// full-length result of the run; each worker's local output covers just
// its own partition and is not rewritten by the gather. Result files are
// likewise written only by the coordinator.
//
// A failing evaluate or recover callback never aborts the run; an
// infrastructure failure on any worker (model construction, log I/O) is
// fatal to the whole collective, since the gather needs full
// participation.
func Run(ctx context.Context, factory sweep.ModelFactory, params []sweep.Parameter, outputs []string, opts Options) (*store.Output, error) {
	const op = "Run"

	if err := ctx.Err(); err != nil {
		return nil, sweep.WrapError(err, "run cancelled before start").WithComponent("engine").WithOperation(op)
	}
	if opts.Evaluate == nil {
		return nil, sweep.NewError("an evaluate callback is required").WithComponent("engine").WithOperation(op)
	}
	if factory == nil {
		return nil, sweep.NewError("a model factory is required").WithComponent("engine").WithOperation(op)
	}
	if opts.NumWorkers < 1 {
		opts.NumWorkers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CSVResultsFile == "" {
		opts.CSVResultsFile = "global_results.csv"
	}
	if opts.ResultsFile == "" {
		opts.ResultsFile = "results.msgpack"
	}
	logger := opts.Logger.Named("engine")

	samplingType, err := sweep.DeriveSamplingType(params)
	if err != nil {
		return nil, err
	}
	global, err := sweep.BuildCombinations(params, samplingType, opts.NumSamples, opts.Seed)
	if err != nil {
		return nil, err
	}
	totalCases, _ := global.Dims()

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			sweepsCompleted.WithLabelValues("error").Inc()
			return nil, sweep.WrapError(err, "cannot create output directory").WithComponent("engine").WithOperation(op)
		}
	}

	logger.Info("starting sweep",
		zap.String("sampling", samplingType.String()),
		zap.Int("cases", totalCases),
		zap.Int("workers", opts.NumWorkers),
		zap.Int64("seed", opts.Seed))

	// Setup failures are fatal before any evaluation begins.
	workers := make([]*worker, opts.NumWorkers)
	for rank := range workers {
		w, err := newWorker(rank, opts.NumWorkers, factory, params, outputs, global, opts)
		if err != nil {
			sweepsCompleted.WithLabelValues("error").Inc()
			return nil, err
		}
		workers[rank] = w
	}

	// The collective: one goroutine per partition, Wait as the gather
	// barrier. Any worker error cancels the run.
	var g errgroup.Group
	for _, w := range workers {
		g.Go(w.run)
	}
	if err := g.Wait(); err != nil {
		sweepsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}

	// Rank 0 acts as coordinator: it alone reconstructs the full-length
	// output and writes the merged files.
	coordinator := workers[0]
	globalOut, err := store.NewSkeleton(coordinator.model, params, outputs, totalCases)
	if err != nil {
		sweepsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}
	locals := make([]*store.Output, len(workers))
	for rank, w := range workers {
		locals[rank] = w.out
	}
	if err := gather(globalOut, locals, totalCases); err != nil {
		sweepsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := writeResults(global, globalOut, coordinator.inputNames, coordinator.outputNames, opts, logger); err != nil {
		sweepsCompleted.WithLabelValues("error").Inc()
		return nil, err
	}

	sweepsCompleted.WithLabelValues("ok").Inc()
	logger.Info("sweep complete", zap.Int("cases", totalCases))
	return globalOut, nil
}

func writeResults(global *mat.Dense, out *store.Output, inputNames, outputNames []string, opts Options, logger *zap.Logger) error {
	totalCases, numInputs := global.Dims()

	header := make([]string, 0, numInputs+len(outputNames))
	header = append(header, inputNames...)
	header = append(header, outputNames...)

	rows := make([][]float64, totalCases)
	for i := range rows {
		row := make([]float64, 0, len(header))
		for j := 0; j < numInputs; j++ {
			row = append(row, global.At(i, j))
		}
		for _, name := range outputNames {
			row = append(row, out.Outputs[name].Values[i])
		}
		rows[i] = row
	}

	csvPath := resolvePath(opts.OutputDir, opts.CSVResultsFile)
	if err := store.WriteCSV(csvPath, header, rows); err != nil {
		return err
	}
	logger.Info("wrote global table", zap.String("path", csvPath))

	if opts.InterpolateNaN {
		results := mat.NewDense(totalCases, len(outputNames), nil)
		for j, name := range outputNames {
			results.SetCol(j, out.Outputs[name].Values)
		}
		filled, err := interp.FillNaNColumns(global, results)
		if err != nil {
			return err
		}
		interpRows := make([][]float64, totalCases)
		for i := range interpRows {
			row := make([]float64, 0, len(header))
			for j := 0; j < numInputs; j++ {
				row = append(row, global.At(i, j))
			}
			for j := range outputNames {
				row = append(row, filled.At(i, j))
			}
			interpRows[i] = row
		}
		interpPath := filepath.Join(filepath.Dir(csvPath), "interpolated_"+filepath.Base(csvPath))
		if err := store.WriteCSV(interpPath, header, interpRows); err != nil {
			return err
		}
		logger.Info("wrote interpolated table", zap.String("path", interpPath))
	}

	storePath := resolvePath(opts.OutputDir, opts.ResultsFile)
	if err := out.WriteFile(storePath); err != nil {
		return err
	}
	logger.Info("wrote structured results", zap.String("path", storePath))

	if opts.XLSXResultsFile != "" {
		xlsxPath := resolvePath(opts.OutputDir, opts.XLSXResultsFile)
		if err := store.WriteXLSX(xlsxPath, header, rows); err != nil {
			return err
		}
		logger.Info("wrote workbook", zap.String("path", xlsxPath))
	}
	return nil
}

func resolvePath(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
