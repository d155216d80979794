package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/maddyblue/go-dsp/fft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFFT_RejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 3, 100, 4097} {
		_, err := NewFFT(n)
		assert.Error(t, err, "n=%d", n)
	}
}

func TestFFT_SinePeakBin(t *testing.T) {
	const n = 4096
	f, err := NewFFT(n)
	require.NoError(t, err)

	// Exactly 93 cycles per frame, so the energy lands on one bin.
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = 10000 * math.Sin(2*math.Pi*93*float64(i)/n)
	}

	mags := make([]float64, n/2)
	require.NoError(t, f.Magnitudes(frame, mags))

	peak := 0
	for k := range mags {
		if mags[k] > mags[peak] {
			peak = k
		}
	}
	assert.Equal(t, 93, peak)
	// |X[k]| for an on-bin sine is A*N/2.
	assert.InEpsilon(t, 10000*float64(n)/2, mags[93], 1e-6)
}

func TestFFT_MatchesReferenceTransform(t *testing.T) {
	const n = 1024
	f, err := NewFFT(n)
	require.NoError(t, err)

	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Sin(2*math.Pi*17.3*float64(i)/n) + 0.5*math.Cos(2*math.Pi*211*float64(i)/n)
	}

	mags := make([]float64, n/2)
	require.NoError(t, f.Magnitudes(frame, mags))

	ref := fft.FFTReal(frame)
	for k := 0; k < n/2; k++ {
		want := cmplx.Abs(ref[k])
		assert.InDelta(t, want, mags[k], 1e-6+want*1e-9, "bin %d", k)
	}
}

func TestFFT_Deterministic(t *testing.T) {
	const n = 256
	f, err := NewFFT(n)
	require.NoError(t, err)

	frame := make([]float64, n)
	for i := range frame {
		frame[i] = float64(i%37) - 18
	}

	a := make([]float64, n/2)
	b := make([]float64, n/2)
	require.NoError(t, f.Magnitudes(frame, a))
	require.NoError(t, f.Magnitudes(frame, b))
	assert.Equal(t, a, b)
}

func TestFFT_AllocationFreeOnceWarm(t *testing.T) {
	const n = 2048
	f, err := NewFFT(n)
	require.NoError(t, err)

	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Sin(float64(i) / 3)
	}
	out := make([]float64, n/2)
	require.NoError(t, f.Magnitudes(frame, out))

	allocs := testing.AllocsPerRun(50, func() {
		f.Magnitudes(frame, out)
	})
	assert.Zero(t, allocs)
}

func TestFFT_LengthChecks(t *testing.T) {
	f, err := NewFFT(64)
	require.NoError(t, err)

	assert.Error(t, f.Magnitudes(make([]float64, 32), make([]float64, 32)))
	assert.Error(t, f.Magnitudes(make([]float64, 64), make([]float64, 16)))
}
