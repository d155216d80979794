// Package audio is the boundary adapter between container decoders and
// the PCM contract of the core: the core itself only ever sees mono
// signed 16-bit 44100 Hz samples.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/hkg36/audio-freq/internal/dsp"
)

// DecodeFile decodes a .wav, .mp3 or .flac file and returns channel-0
// PCM ready for the framer. Streams that are not 16-bit 44100 Hz are
// rejected with dsp.ErrUnsupportedFormat; there is no resampling.
func DecodeFile(path string) ([]int16, dsp.PCMFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dsp.PCMFormat{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	default:
		return nil, dsp.PCMFormat{}, fmt.Errorf("%w: unknown container %q",
			dsp.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, dsp.PCMFormat{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer stream.Close()

	pcmFormat := dsp.PCMFormat{
		SampleRate: int(format.SampleRate),
		BitDepth:   format.Precision * 8,
		Channels:   format.NumChannels,
	}
	if err := pcmFormat.Validate(); err != nil {
		return nil, dsp.PCMFormat{}, err
	}

	var samples []int16
	buf := make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, toInt16(buf[i][0]))
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, dsp.PCMFormat{}, fmt.Errorf("failed to read samples from %s: %w", path, err)
	}

	// The adapter already reduced to channel 0.
	pcmFormat.Channels = 1
	return samples, pcmFormat, nil
}

func toInt16(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
