// Package capture records live audio through portaudio and feeds it to
// the spectrogram pipeline. The audio callback runs on a foreign
// thread, so it does no DSP: it only copies the buffer into a bounded
// FIFO. A worker goroutine drains the FIFO and runs the pipeline, which
// keeps frames in capture order.
package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/hkg36/audio-freq/internal/dsp"
	"github.com/hkg36/audio-freq/utils/logger"
)

// fifoDepth bounds the number of capture buffers in flight.
const fifoDepth = 2

// Recorder owns one live capture session. Not reusable: create a new
// recorder per recording.
type Recorder struct {
	pipeline *dsp.Pipeline
	stream   *portaudio.Stream
	fifo     chan []int16
	running  atomic.Bool
	done     chan struct{}
	dropped  atomic.Int64
	workErr  error
}

// NewRecorder builds a recorder that appends frames of FrameSizeLive
// samples to a fresh spectrogram.
func NewRecorder() (*Recorder, error) {
	pipeline, err := dsp.NewPipeline(dsp.FrameSizeLive, dsp.PCMFormat{
		SampleRate: dsp.SampleRate,
		BitDepth:   dsp.BitDepth,
		Channels:   1,
	})
	if err != nil {
		return nil, err
	}
	return &Recorder{
		pipeline: pipeline,
		fifo:     make(chan []int16, fifoDepth),
		done:     make(chan struct{}),
	}, nil
}

// Start acquires portaudio, opens the default input device at
// 44100/16/mono and begins capturing.
func (r *Recorder) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		1, 0, float64(dsp.SampleRate), dsp.FrameSizeLive, r.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	r.stream = stream

	r.running.Store(true)
	go r.work()

	if err := stream.Start(); err != nil {
		r.running.Store(false)
		close(r.fifo)
		<-r.done
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

// callback runs on the portaudio thread. It must return quickly, so it
// only copies the buffer and enqueues it; when the FIFO is full the
// buffer is dropped rather than blocking the audio thread.
func (r *Recorder) callback(in []int16) {
	if !r.running.Load() {
		return
	}
	buf := make([]int16, len(in))
	copy(buf, in)
	select {
	case r.fifo <- buf:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) work() {
	defer close(r.done)
	for buf := range r.fifo {
		if err := r.pipeline.Push(buf); err != nil {
			r.workErr = err
			return
		}
	}
}

// Stop is level-triggered: it halts enqueueing, lets the worker drain
// the FIFO, and releases the device. The accumulated spectrogram is
// returned.
func (r *Recorder) Stop() (*dsp.Spectrogram, error) {
	r.running.Store(false)

	var firstErr error
	if r.stream != nil {
		if err := r.stream.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop input stream: %w", err)
		}
		if err := r.stream.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close input stream: %w", err)
		}
	}

	close(r.fifo)
	<-r.done

	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to terminate portaudio: %w", err)
	}

	if n := r.dropped.Load(); n > 0 {
		logger.Infof("capture dropped %d buffers (worker fell behind)", n)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if r.workErr != nil {
		return nil, r.workErr
	}
	return r.pipeline.Spectrogram(), nil
}
