package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specFromRows(t *testing.T, rows [][]float64) *Spectrogram {
	t.Helper()
	spec := NewSpectrogram(len(rows[0]))
	for _, row := range rows {
		require.NoError(t, spec.Append(row))
	}
	return spec
}

func TestEdgeFilter_LaplacianCenterResponse(t *testing.T) {
	// A single bright cell surrounded by zeros responds with 13x the
	// cell value at the center.
	spec := specFromRows(t, [][]float64{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 2, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	})

	out, err := EdgeFilter(spec, EdgeLaplacian)
	require.NoError(t, err)
	assert.Equal(t, 26.0, out.At(2, 2))

	// Direct neighbors see -2*2 and clamp to zero.
	assert.Zero(t, out.At(2, 1))
	assert.Zero(t, out.At(1, 2))
}

func TestEdgeFilter_BorderIsZero(t *testing.T) {
	rows := make([][]float64, 6)
	for i := range rows {
		rows[i] = []float64{5, 5, 5, 5, 5, 5}
	}
	rows[3] = []float64{5, 5, 90, 5, 5, 5}
	spec := specFromRows(t, rows)

	out, err := EdgeFilter(spec, EdgeLaplacian)
	require.NoError(t, err)
	for f := 0; f < out.Bins(); f++ {
		assert.Zero(t, out.At(0, f))
		assert.Zero(t, out.At(out.Frames()-1, f))
	}
	for tt := 0; tt < out.Frames(); tt++ {
		assert.Zero(t, out.At(tt, 0))
		assert.Zero(t, out.At(tt, out.Bins()-1))
	}
}

func TestEdgeFilter_SobelProfile(t *testing.T) {
	// A horizontal step edge has a pure vertical gradient of known
	// magnitude under the Sobel kernels.
	spec := specFromRows(t, [][]float64{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{1, 1, 1, 1},
	})

	out, err := EdgeFilter(spec, EdgeSobel)
	require.NoError(t, err)
	// At (1,1) the bottom Sobel row (-1,-2,-1) covers the ones, so
	// gy = -4 and gx = 0: the magnitude is 4.
	assert.InDelta(t, 4.0, out.At(1, 1), 1e-12)
}

func TestEdgeFilter_TooShort(t *testing.T) {
	spec := specFromRows(t, [][]float64{
		{1, 2, 3},
		{4, 5, 6},
	})
	_, err := EdgeFilter(spec, EdgeLaplacian)
	assert.ErrorIs(t, err, ErrEmptySpectrogram)
}

func TestNormalize_InteriorInUnitRange(t *testing.T) {
	spec := specFromRows(t, [][]float64{
		{0, 0, 0, 0, 0},
		{0, 3, 7, 1, 0},
		{0, 9, 2, 5, 0},
		{0, 4, 6, 8, 0},
		{0, 0, 0, 0, 0},
	})

	require.NoError(t, Normalize(spec))

	sawZero, sawOne := false, false
	for tt := 1; tt < spec.Frames()-1; tt++ {
		for f := 1; f < spec.Bins()-1; f++ {
			v := spec.At(tt, f)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
			if v == 0 {
				sawZero = true
			}
			if v == 1 {
				sawOne = true
			}
		}
	}
	assert.True(t, sawZero)
	assert.True(t, sawOne)

	// Borders untouched.
	assert.Zero(t, spec.At(0, 2))
	assert.Zero(t, spec.At(2, 0))
}

func TestNormalize_UniformSignalsEmptySpectrogram(t *testing.T) {
	rows := make([][]float64, 5)
	for i := range rows {
		rows[i] = []float64{0, 0, 0, 0}
	}
	spec := specFromRows(t, rows)
	assert.ErrorIs(t, Normalize(spec), ErrEmptySpectrogram)
}

func TestNormalize_TooFewFrames(t *testing.T) {
	spec := specFromRows(t, [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	})
	assert.ErrorIs(t, Normalize(spec), ErrEmptySpectrogram)
}
