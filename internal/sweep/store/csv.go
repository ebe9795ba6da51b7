package store

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

// LocalLog is a worker's incremental result log: one CSV file per worker
// rank, appended row-by-row as cases complete and flushed after every row
// so partial progress survives a crash on a later case.
type LocalLog struct {
	file *os.File
	w    *csv.Writer
	cols int
}

// LocalLogName returns the per-rank log file name used inside a run's
// output directory.
func LocalLogName(rank int) string {
	return fmt.Sprintf("local_results_%03d.csv", rank)
}

// NewLocalLog creates the rank's log file in dir and writes the header:
// sweep-input names, then requested-output names, then the solve status.
func NewLocalLog(dir string, rank int, inputs, outputs []string) (*LocalLog, error) {
	const op = "NewLocalLog"

	path := filepath.Join(dir, LocalLogName(rank))
	f, err := os.Create(path)
	if err != nil {
		return nil, sweep.WrapError(err, "cannot create local log").WithComponent("store").WithOperation(op)
	}

	header := make([]string, 0, len(inputs)+len(outputs)+1)
	header = append(header, inputs...)
	header = append(header, outputs...)
	header = append(header, "solve_status")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, sweep.WrapError(err, "cannot write local log header").WithComponent("store").WithOperation(op)
	}
	w.Flush()
	return &LocalLog{file: f, w: w, cols: len(header)}, nil
}

// Append writes one completed case and flushes immediately.
func (l *LocalLog) Append(inputs, outputs []float64, status sweep.SolveStatus) error {
	const op = "LocalLog.Append"

	row := make([]string, 0, l.cols)
	for _, v := range inputs {
		row = append(row, formatFloat(v))
	}
	for _, v := range outputs {
		row = append(row, formatFloat(v))
	}
	row = append(row, string(status))

	if err := l.w.Write(row); err != nil {
		return sweep.WrapError(err, "cannot append to local log").WithComponent("store").WithOperation(op)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the log file.
func (l *LocalLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// WriteCSV writes a flat table: a header row followed by one row per case
// in the given order. NaN cells are written as "NaN".
func WriteCSV(path string, header []string, rows [][]float64) error {
	const op = "WriteCSV"

	f, err := os.Create(path)
	if err != nil {
		return sweep.WrapError(err, "cannot create table file").WithComponent("store").WithOperation(op)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return sweep.WrapError(err, "cannot write table header").WithComponent("store").WithOperation(op)
	}
	rec := make([]string, len(header))
	for _, row := range rows {
		for j, v := range row {
			rec[j] = formatFloat(v)
		}
		if err := w.Write(rec); err != nil {
			return sweep.WrapError(err, "cannot write table row").WithComponent("store").WithOperation(op)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return sweep.WrapError(err, "cannot flush table").WithComponent("store").WithOperation(op)
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV, parsing "NaN" cells back into
// NaN values.
func ReadCSV(path string) ([]string, [][]float64, error) {
	const op = "ReadCSV"

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, sweep.WrapError(err, "cannot open table file").WithComponent("store").WithOperation(op)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, sweep.WrapError(err, "cannot parse table file").WithComponent("store").WithOperation(op)
	}
	if len(records) == 0 {
		return nil, nil, sweep.NewError("table file is empty").WithComponent("store").WithOperation(op)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, sweep.WrapErrorf(err, "cannot parse cell %q", cell).WithComponent("store").WithOperation(op)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
