package dsp

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Spectrogram is an append-only sequence of magnitude frames. Frame
// index is discrete time, element index is the frequency bin.
type Spectrogram struct {
	bins   int
	frames [][]float64
}

// NewSpectrogram creates an empty spectrogram with N/2 bins per frame.
func NewSpectrogram(bins int) *Spectrogram {
	return &Spectrogram{bins: bins}
}

// Bins returns the number of frequency bins per frame.
func (s *Spectrogram) Bins() int { return s.bins }

// Frames returns the number of appended frames.
func (s *Spectrogram) Frames() int { return len(s.frames) }

// Append adds one magnitude frame. The frame is copied so the caller
// may reuse its buffer.
func (s *Spectrogram) Append(magnitudes []float64) error {
	if len(magnitudes) < s.bins {
		return fmt.Errorf("frame has %d bins, spectrogram needs %d", len(magnitudes), s.bins)
	}
	frame := make([]float64, s.bins)
	copy(frame, magnitudes[:s.bins])
	s.frames = append(s.frames, frame)
	return nil
}

// At returns the magnitude at (time t, bin f).
func (s *Spectrogram) At(t, f int) float64 { return s.frames[t][f] }

// Row returns frame t. The slice is owned by the spectrogram.
func (s *Spectrogram) Row(t int) []float64 { return s.frames[t] }

// Pipeline ties a framer and an FFT together: PCM goes in, magnitude
// frames come out appended to the spectrogram. The scratch buffers are
// reused across frames.
type Pipeline struct {
	framer *Framer
	fft    *FFT
	spec   *Spectrogram
	frame  []float64
	mags   []float64
}

// NewPipeline builds an ingestion pipeline for the given frame size.
func NewPipeline(frameSize int, format PCMFormat) (*Pipeline, error) {
	framer, err := NewFramer(frameSize, format)
	if err != nil {
		return nil, err
	}
	fft, err := NewFFT(frameSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		framer: framer,
		fft:    fft,
		spec:   NewSpectrogram(frameSize / 2),
		frame:  make([]float64, frameSize),
		mags:   make([]float64, frameSize/2),
	}, nil
}

// Push feeds PCM samples in and transforms every completed frame.
func (p *Pipeline) Push(samples []int16) error {
	p.framer.Write(samples)
	for p.framer.Next(p.frame) {
		if err := p.fft.Magnitudes(p.frame, p.mags); err != nil {
			return err
		}
		if err := p.spec.Append(p.mags); err != nil {
			return err
		}
	}
	return nil
}

// Spectrogram returns the frames accumulated so far.
func (p *Pipeline) Spectrogram() *Spectrogram { return p.spec }

// ReadRawSpectrogram reads the legacy batch format: raw little-endian
// IEEE-754 doubles, row-major, bins values per row, no header. A partial
// trailing row is dropped and reading ends cleanly.
func ReadRawSpectrogram(r io.Reader, bins int) (*Spectrogram, error) {
	if bins < 1 {
		return nil, fmt.Errorf("invalid bin count %d", bins)
	}

	spec := NewSpectrogram(bins)
	row := make([]float64, bins)
	buf := make([]byte, bins*8)
	for {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF {
			return spec, nil
		}
		if err == io.ErrUnexpectedEOF {
			// Truncate at the last complete frame.
			return spec, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read spectrogram row: %w", err)
		}
		for i := 0; i < bins; i++ {
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		if err := spec.Append(row); err != nil {
			return nil, err
		}
	}
}
