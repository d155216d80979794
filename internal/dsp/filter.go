package dsp

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptySpectrogram is returned when the spectrogram is too short to
// filter or carries no contrast at all.
var ErrEmptySpectrogram = errors.New("spectrogram is empty or uniform")

// EdgeProfile selects the 2D filter run before normalization.
type EdgeProfile int

const (
	// EdgeLaplacian is the canonical ridge-enhancement kernel.
	EdgeLaplacian EdgeProfile = iota
	// EdgeSobel is the legacy gradient-magnitude profile used for
	// offline-decoded audio.
	EdgeSobel
)

// laplacian is the 3x3 kernel applied to every interior cell. The heavy
// center makes sharp spectral ridges dominate slowly varying bands.
var laplacian = [3][3]float64{
	{-1, -2, -1},
	{-2, 13, -2},
	{-1, -2, -1},
}

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{1, 2, 1},
		{0, 0, 0},
		{-1, -2, -1},
	}
)

// EdgeFilter applies the selected kernel to every interior cell of the
// spectrogram and returns a new spectrogram of the same shape. Border
// cells within radius 1 are zero; negative responses are clamped to
// zero.
func EdgeFilter(spec *Spectrogram, profile EdgeProfile) (*Spectrogram, error) {
	frames := spec.Frames()
	bins := spec.Bins()
	if frames < 3 || bins < 3 {
		return nil, fmt.Errorf("%w: %d frames x %d bins", ErrEmptySpectrogram, frames, bins)
	}

	out := NewSpectrogram(bins)
	row := make([]float64, bins)
	for t := 0; t < frames; t++ {
		for i := range row {
			row[i] = 0
		}
		if t >= 1 && t < frames-1 {
			for f := 1; f < bins-1; f++ {
				var v float64
				switch profile {
				case EdgeSobel:
					var gx, gy float64
					for dt := -1; dt <= 1; dt++ {
						for df := -1; df <= 1; df++ {
							cell := spec.At(t+dt, f+df)
							gx += cell * sobelX[dt+1][df+1]
							gy += cell * sobelY[dt+1][df+1]
						}
					}
					v = math.Sqrt(gx*gx + gy*gy)
				default:
					for dt := -1; dt <= 1; dt++ {
						for df := -1; df <= 1; df++ {
							v += spec.At(t+dt, f+df) * laplacian[dt+1][df+1]
						}
					}
				}
				if v > 0 {
					row[f] = v
				}
			}
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Normalize rescales every interior cell of the filtered spectrogram to
// [0,1] using the observed interior min and max. Border cells stay
// zero. The spectrogram is modified in place.
func Normalize(spec *Spectrogram) error {
	frames := spec.Frames()
	bins := spec.Bins()
	if frames < 3 || bins < 3 {
		return fmt.Errorf("%w: %d frames x %d bins", ErrEmptySpectrogram, frames, bins)
	}

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for t := 1; t < frames-1; t++ {
		row := spec.Row(t)
		for f := 1; f < bins-1; f++ {
			v := row[f]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	if hi == lo {
		return fmt.Errorf("%w: no contrast after filtering", ErrEmptySpectrogram)
	}

	span := hi - lo
	for t := 1; t < frames-1; t++ {
		row := spec.Row(t)
		for f := 1; f < bins-1; f++ {
			row[f] = (row[f] - lo) / span
		}
	}
	return nil
}
