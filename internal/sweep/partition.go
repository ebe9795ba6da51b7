package sweep

import "gonum.org/v1/gonum/mat"

// PartitionSizes splits total cases across workers into contiguous groups
// of near-equal size. The first total%workers groups carry one extra case,
// so sizes never differ by more than one and concatenating the groups in
// rank order reproduces the original row sequence exactly.
func PartitionSizes(total, workers int) []int {
	sizes := make([]int, workers)
	base := total / workers
	extra := total % workers
	for r := range sizes {
		sizes[r] = base
		if r < extra {
			sizes[r]++
		}
	}
	return sizes
}

// PartitionOffset returns the global row index at which the given rank's
// partition begins: the sum of the sizes of all lower-ranked partitions.
func PartitionOffset(total, workers, rank int) int {
	base := total / workers
	extra := total % workers
	off := rank * base
	if rank < extra {
		off += rank
	} else {
		off += extra
	}
	return off
}

// Partition returns the contiguous slice of the global combination matrix
// assigned to rank. The returned matrix shares backing storage with the
// global matrix and must be treated as read-only. A rank with no assigned
// rows returns nil.
func Partition(global *mat.Dense, rank, workers int) *mat.Dense {
	rows, cols := global.Dims()
	start := PartitionOffset(rows, workers, rank)
	end := PartitionOffset(rows, workers, rank+1)
	if start == end {
		return nil
	}
	return global.Slice(start, end, 0, cols).(*mat.Dense)
}
