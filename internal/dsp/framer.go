package dsp

import (
	"errors"
	"fmt"
)

const (
	// SampleRate is the only PCM rate the pipeline accepts.
	SampleRate = 44100
	// BitDepth is the only sample width the pipeline accepts.
	BitDepth = 16

	// FrameSizeLive is the frame length used for microphone capture.
	FrameSizeLive = 8192
	// FrameSizeBatch is the frame length used for decoded files and the
	// legacy raw spectrogram format.
	FrameSizeBatch = 4096
)

// ErrUnsupportedFormat is returned for PCM input that is not signed
// 16-bit 44100 Hz.
var ErrUnsupportedFormat = errors.New("unsupported PCM format: need 16-bit 44100 Hz")

// PCMFormat describes the stream a producer hands to the framer.
type PCMFormat struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// Validate rejects everything but 44100/16. Channel count is not an
// error here: multi-channel input is reduced to channel 0 by the framer.
func (f PCMFormat) Validate() error {
	if f.SampleRate != SampleRate || f.BitDepth != BitDepth {
		return fmt.Errorf("%w: got %d Hz / %d-bit", ErrUnsupportedFormat, f.SampleRate, f.BitDepth)
	}
	if f.Channels < 1 {
		return fmt.Errorf("%w: got %d channels", ErrUnsupportedFormat, f.Channels)
	}
	return nil
}

// Framer accumulates int16 PCM and hands out consecutive frames of
// exactly size samples. Trailing samples that do not fill a frame are
// discarded when the stream ends.
type Framer struct {
	size     int
	channels int
	buf      []int16
}

// NewFramer builds a framer for the given frame size and input format.
func NewFramer(size int, format PCMFormat) (*Framer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, fmt.Errorf("invalid frame size %d", size)
	}
	return &Framer{size: size, channels: format.Channels}, nil
}

// Size returns the frame length N.
func (fr *Framer) Size() int { return fr.size }

// Write appends interleaved samples. For multi-channel input only
// channel 0 is kept.
func (fr *Framer) Write(samples []int16) {
	if fr.channels == 1 {
		fr.buf = append(fr.buf, samples...)
		return
	}
	for i := 0; i < len(samples); i += fr.channels {
		fr.buf = append(fr.buf, samples[i])
	}
}

// Next fills frame with the oldest pending N samples converted to
// float64 and reports whether a full frame was available. frame must
// hold at least N values.
func (fr *Framer) Next(frame []float64) bool {
	if len(fr.buf) < fr.size {
		return false
	}
	for i := 0; i < fr.size; i++ {
		frame[i] = float64(fr.buf[i])
	}
	fr.buf = fr.buf[fr.size:]
	return true
}

// Pending returns the number of buffered samples that have not yet
// formed a full frame.
func (fr *Framer) Pending() int { return len(fr.buf) }
