package sweep_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
	"github.com/copyleftdev/SWEEPR/internal/sweep/sweeptest"
)

func linearParam(t *testing.T, m sweep.Model, target string, lower, upper float64, count int) sweep.Parameter {
	t.Helper()
	s, err := sweep.NewLinearSample(m, target, lower, upper, count)
	require.NoError(t, err)
	return sweep.Parameter{Name: target, Sample: s}
}

func uniformParam(t *testing.T, m sweep.Model, target string, lower, upper float64) sweep.Parameter {
	t.Helper()
	s, err := sweep.NewUniformSample(m, target, lower, upper)
	require.NoError(t, err)
	return sweep.Parameter{Name: target, Sample: s}
}

func TestDeriveSamplingType(t *testing.T) {
	m := sweeptest.New()

	fixedSpec, err := sweep.NewFixedSample(m, sweeptest.InputB, 0.5)
	require.NoError(t, err)
	normalSpec, err := sweep.NewNormalSample(m, sweeptest.InputB, 0.5, 0.1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		params  []sweep.Parameter
		want    sweep.SamplingType
		wantErr bool
	}{
		{
			name:   "linear implies fixed",
			params: []sweep.Parameter{linearParam(t, m, sweeptest.InputA, 0, 1, 3)},
			want:   sweep.SamplingFixed,
		},
		{
			name: "linear plus constant stays fixed",
			params: []sweep.Parameter{
				linearParam(t, m, sweeptest.InputA, 0, 1, 3),
				{Name: sweeptest.InputB, Sample: fixedSpec},
			},
			want: sweep.SamplingFixed,
		},
		{
			name: "uniform and normal imply random",
			params: []sweep.Parameter{
				uniformParam(t, m, sweeptest.InputA, 0, 1),
				{Name: sweeptest.InputB, Sample: normalSpec},
			},
			want: sweep.SamplingRandom,
		},
		{
			name: "constant joins a random sweep",
			params: []sweep.Parameter{
				uniformParam(t, m, sweeptest.InputA, 0, 1),
				{Name: sweeptest.InputB, Sample: fixedSpec},
			},
			want: sweep.SamplingRandom,
		},
		{
			name: "mixing grid and random is an error",
			params: []sweep.Parameter{
				linearParam(t, m, sweeptest.InputA, 0, 1, 3),
				uniformParam(t, m, sweeptest.InputB, 0, 1),
			},
			wantErr: true,
		},
		{
			name:    "empty parameter list is an error",
			params:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sweep.DeriveSamplingType(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCombinationsFixedEnumeration(t *testing.T) {
	m := sweeptest.New()
	params := []sweep.Parameter{
		linearParam(t, m, sweeptest.InputA, 0, 1, 2),
		linearParam(t, m, sweeptest.InputB, 0, 1, 3),
	}

	got, err := sweep.BuildCombinations(params, sweep.SamplingFixed, 0, 0)
	require.NoError(t, err)

	// The last parameter varies fastest.
	want := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 0.5,
		0, 1,
		1, 0,
		1, 0.5,
		1, 1,
	})
	assert.True(t, mat.EqualApprox(want, got, 1e-12),
		"got %v", mat.Formatted(got))
}

func TestBuildCombinationsDeterministic(t *testing.T) {
	m := sweeptest.New()
	params := []sweep.Parameter{
		uniformParam(t, m, sweeptest.InputA, 0, 1),
		uniformParam(t, m, sweeptest.InputB, 0, 1),
	}

	first, err := sweep.BuildCombinations(params, sweep.SamplingRandom, 50, 42)
	require.NoError(t, err)
	second, err := sweep.BuildCombinations(params, sweep.SamplingRandom, 50, 42)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first, second), "same seed must reproduce the matrix exactly")

	other, err := sweep.BuildCombinations(params, sweep.SamplingRandom, 50, 43)
	require.NoError(t, err)
	assert.False(t, mat.Equal(first, other), "different seeds should diverge")
}

func TestBuildCombinationsRandomRequiresCount(t *testing.T) {
	m := sweeptest.New()
	params := []sweep.Parameter{uniformParam(t, m, sweeptest.InputA, 0, 1)}

	_, err := sweep.BuildCombinations(params, sweep.SamplingRandom, 0, 0)
	assert.Error(t, err)
}

func TestCountCases(t *testing.T) {
	m := sweeptest.New()
	fixedSpec, err := sweep.NewFixedSample(m, sweeptest.InputB, 0.5)
	require.NoError(t, err)

	params := []sweep.Parameter{
		linearParam(t, m, sweeptest.InputA, 0, 1, 4),
		{Name: sweeptest.InputB, Sample: fixedSpec},
	}
	n, err := sweep.CountCases(params, sweep.SamplingFixed, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	random := []sweep.Parameter{uniformParam(t, m, sweeptest.InputA, 0, 1)}
	n, err = sweep.CountCases(random, sweep.SamplingRandom, 17)
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	_, err = sweep.CountCases(random, sweep.SamplingRandom, 0)
	assert.Error(t, err)
}
