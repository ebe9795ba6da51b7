package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

func TestPartitionSizes(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		workers int
		want    []int
	}{
		{"even split", 9, 3, []int{3, 3, 3}},
		{"remainder goes to low ranks", 10, 3, []int{4, 3, 3}},
		{"two extra", 11, 3, []int{4, 4, 3}},
		{"single worker", 7, 1, []int{7}},
		{"more workers than cases", 2, 4, []int{1, 1, 0, 0}},
		{"no cases", 0, 3, []int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sweep.PartitionSizes(tt.total, tt.workers)
			assert.Equal(t, tt.want, got)

			sum := 0
			for _, s := range got {
				sum += s
			}
			assert.Equal(t, tt.total, sum, "sizes must sum to the total")
		})
	}
}

func TestPartitionOffsetMatchesSizes(t *testing.T) {
	for _, total := range []int{0, 1, 5, 10, 23} {
		for _, workers := range []int{1, 2, 3, 7} {
			sizes := sweep.PartitionSizes(total, workers)
			off := 0
			for rank := 0; rank < workers; rank++ {
				assert.Equal(t, off, sweep.PartitionOffset(total, workers, rank),
					"total=%d workers=%d rank=%d", total, workers, rank)
				off += sizes[rank]
			}
		}
	}
}

func TestPartitionCoversGlobalInOrder(t *testing.T) {
	const rows, cols, workers = 10, 2, 3

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = float64(i)
	}
	global := mat.NewDense(rows, cols, data)

	next := 0
	for rank := 0; rank < workers; rank++ {
		part := sweep.Partition(global, rank, workers)
		require.NotNil(t, part)
		n, c := part.Dims()
		assert.Equal(t, cols, c)
		for i := 0; i < n; i++ {
			for j := 0; j < cols; j++ {
				assert.Equal(t, global.At(next+i, j), part.At(i, j))
			}
		}
		next += n
	}
	assert.Equal(t, rows, next, "partitions must cover every row exactly once")
}

func TestPartitionEmptyRank(t *testing.T) {
	global := mat.NewDense(2, 1, []float64{1, 2})

	assert.NotNil(t, sweep.Partition(global, 0, 4))
	assert.NotNil(t, sweep.Partition(global, 1, 4))
	assert.Nil(t, sweep.Partition(global, 2, 4), "a rank beyond the case count gets no rows")
	assert.Nil(t, sweep.Partition(global, 3, 4))
}
