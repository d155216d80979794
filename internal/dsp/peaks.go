package dsp

// Landmark is one surviving local maximum of the normalized filtered
// spectrogram.
type Landmark struct {
	Freq     int
	Time     int
	Strength float64
}

// Peak picker defaults. The threshold is the canonical value; one
// source variant used 0.13.
const (
	DefaultPeakThreshold = 0.12
	PeakRadius           = 5
)

// isLocalMax scans the (2A+1)x(2A+1) window around (t, f) and reports
// whether no other cell is strictly stronger. The comparison is strict,
// so equal-strength neighbors do not disqualify the center.
func isLocalMax(spec *Spectrogram, t, f, radius int, strength float64) bool {
	for dt := -radius; dt <= radius; dt++ {
		row := spec.Row(t + dt)
		for df := -radius; df <= radius; df++ {
			if row[f+df] > strength {
				return false
			}
		}
	}
	return true
}

// PickPeaks runs threshold plus non-maximum suppression over the
// normalized spectrogram and returns landmarks in raster order
// (time-major, then frequency).
func PickPeaks(spec *Spectrogram, threshold float64, radius int) []Landmark {
	frames := spec.Frames()
	bins := spec.Bins()

	var peaks []Landmark
	for t := radius; t < frames-radius; t++ {
		row := spec.Row(t)
		for f := radius; f < bins-radius; f++ {
			s := row[f]
			if s < threshold {
				continue
			}
			if !isLocalMax(spec, t, f, radius, s) {
				continue
			}
			peaks = append(peaks, Landmark{Freq: f, Time: t, Strength: s})
		}
	}
	return peaks
}
