package dsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickPeaks_SingleMaximum(t *testing.T) {
	const frames, bins = 20, 20
	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	for i := 0; i < frames; i++ {
		for j := range row {
			row[j] = 0.01
		}
		if i == 10 {
			row[8] = 0.9
		}
		require.NoError(t, spec.Append(row))
	}

	peaks := PickPeaks(spec, DefaultPeakThreshold, PeakRadius)
	require.Len(t, peaks, 1)
	assert.Equal(t, Landmark{Freq: 8, Time: 10, Strength: 0.9}, peaks[0])
}

func TestPickPeaks_BelowThresholdIgnored(t *testing.T) {
	const frames, bins = 15, 15
	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	for i := 0; i < frames; i++ {
		for j := range row {
			row[j] = 0
		}
		if i == 7 {
			row[7] = 0.11
		}
		require.NoError(t, spec.Append(row))
	}

	assert.Empty(t, PickPeaks(spec, DefaultPeakThreshold, PeakRadius))
}

func TestPickPeaks_StrongerNeighborSuppresses(t *testing.T) {
	const frames, bins = 20, 20
	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	for i := 0; i < frames; i++ {
		for j := range row {
			row[j] = 0
		}
		switch i {
		case 9:
			row[9] = 0.5
		case 11:
			row[10] = 0.8
		}
		require.NoError(t, spec.Append(row))
	}

	peaks := PickPeaks(spec, DefaultPeakThreshold, PeakRadius)
	require.Len(t, peaks, 1)
	assert.Equal(t, 0.8, peaks[0].Strength)
}

func TestPickPeaks_ExclusionInvariantOnNoise(t *testing.T) {
	const frames, bins = 60, 80
	rng := rand.New(rand.NewSource(42))

	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	for i := 0; i < frames; i++ {
		for j := range row {
			row[j] = rng.Float64()
		}
		require.NoError(t, spec.Append(row))
	}

	peaks := PickPeaks(spec, DefaultPeakThreshold, PeakRadius)
	require.NotEmpty(t, peaks)

	abs := func(x int) int {
		if x < 0 {
			return -x
		}
		return x
	}
	for i := range peaks {
		for j := i + 1; j < len(peaks); j++ {
			a, b := peaks[i], peaks[j]
			if abs(a.Time-b.Time) <= PeakRadius && abs(a.Freq-b.Freq) <= PeakRadius {
				t.Fatalf("peaks %v and %v violate the exclusion radius", a, b)
			}
		}
	}
}

func TestPickPeaks_RasterOrder(t *testing.T) {
	const frames, bins = 40, 40
	rng := rand.New(rand.NewSource(7))

	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	for i := 0; i < frames; i++ {
		for j := range row {
			row[j] = rng.Float64()
		}
		require.NoError(t, spec.Append(row))
	}

	peaks := PickPeaks(spec, DefaultPeakThreshold, PeakRadius)
	for i := 1; i < len(peaks); i++ {
		prev, cur := peaks[i-1], peaks[i]
		ordered := cur.Time > prev.Time || (cur.Time == prev.Time && cur.Freq > prev.Freq)
		assert.True(t, ordered, "peaks not in raster order: %v before %v", prev, cur)
	}
}

func TestPickPeaks_ClipShorterThanWindow(t *testing.T) {
	spec := NewSpectrogram(40)
	row := make([]float64, 40)
	for i := range row {
		row[i] = 1
	}
	for i := 0; i < 2*PeakRadius; i++ {
		require.NoError(t, spec.Append(row))
	}
	assert.Empty(t, PickPeaks(spec, DefaultPeakThreshold, PeakRadius))
}
