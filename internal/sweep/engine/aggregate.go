package engine

import (
	"github.com/copyleftdev/SWEEPR/internal/sweep"
	"github.com/copyleftdev/SWEEPR/internal/sweep/store"
)

// gather reconstructs the global output from every worker's local output,
// placing each contribution at the row offset of its rank's partition.
// The caller designates the destination; after the gather only that
// structure reflects the whole sweep, while the local outputs keep their
// partition-sized view.
func gather(global *store.Output, locals []*store.Output, totalCases int) error {
	const op = "gather"

	workers := len(locals)
	for rank, local := range locals {
		off := sweep.PartitionOffset(totalCases, workers, rank)

		for name, rec := range local.SweepParams {
			dst, ok := global.SweepParams[name]
			if !ok {
				return sweep.NewErrorf("worker %d has unknown sweep input %q", rank, name).
					WithComponent("engine").WithOperation(op)
			}
			copy(dst.Values[off:off+len(rec.Values)], rec.Values)
		}
		for name, rec := range local.Outputs {
			dst, ok := global.Outputs[name]
			if !ok {
				return sweep.NewErrorf("worker %d has unknown output %q", rank, name).
					WithComponent("engine").WithOperation(op)
			}
			copy(dst.Values[off:off+len(rec.Values)], rec.Values)
		}
		copy(global.SolveStatus[off:off+len(local.SolveStatus)], local.SolveStatus)
	}
	return nil
}
