// Package freqwatch wires the pipeline, the store and the remote
// clients into the application verbs the CLI exposes.
package freqwatch

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	config "github.com/hkg36/audio-freq/configs"
	"github.com/hkg36/audio-freq/internal/audio"
	"github.com/hkg36/audio-freq/internal/capture"
	"github.com/hkg36/audio-freq/internal/database"
	"github.com/hkg36/audio-freq/internal/dsp"
	"github.com/hkg36/audio-freq/internal/fingerprint"
	"github.com/hkg36/audio-freq/internal/remote"
	"github.com/hkg36/audio-freq/utils/logger"
)

type App struct {
	cfg     config.Config
	store   database.Store
	builder *fingerprint.Builder
	matcher *fingerprint.Matcher
	remote  *remote.Client
}

// NewApp opens the configured store and prepares the engine.
func NewApp(cfg config.Config) (*App, error) {
	store, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Setup(); err != nil {
		store.Close()
		return nil, err
	}

	builder := fingerprint.NewBuilder(store)
	builder.BandLow = cfg.Engine.BandLow
	builder.BandHigh = cfg.Engine.BandHigh

	matcher := fingerprint.NewMatcher(store)
	matcher.BandLow = cfg.Engine.BandLow
	matcher.BandHigh = cfg.Engine.BandHigh
	matcher.MatchMin = cfg.Engine.MatchMin

	return &App{
		cfg:     cfg,
		store:   store,
		builder: builder,
		matcher: matcher,
		remote:  remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.UploadPath, cfg.Remote.SearchPath),
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) edgeProfile() dsp.EdgeProfile {
	if a.cfg.Engine.EdgeProfile == "sobel" {
		return dsp.EdgeSobel
	}
	return dsp.EdgeLaplacian
}

// landmarksFromPCM runs the batch pipeline: frame, transform, edge
// filter, normalize, pick. The progress bar tracks sample ingestion.
func (a *App) landmarksFromPCM(samples []int16, format dsp.PCMFormat, showProgress bool) ([]dsp.Landmark, error) {
	pipeline, err := dsp.NewPipeline(dsp.FrameSizeBatch, format)
	if err != nil {
		return nil, err
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.DefaultBytes(int64(len(samples))*2, "ingesting")
	}
	const chunk = 64 * 1024
	for start := 0; start < len(samples); start += chunk {
		end := start + chunk
		if end > len(samples) {
			end = len(samples)
		}
		if err := pipeline.Push(samples[start:end]); err != nil {
			return nil, err
		}
		if bar != nil {
			bar.Add((end - start) * 2)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	return a.landmarksFromSpectrogram(pipeline.Spectrogram())
}

func (a *App) landmarksFromSpectrogram(spec *dsp.Spectrogram) ([]dsp.Landmark, error) {
	filtered, err := dsp.EdgeFilter(spec, a.edgeProfile())
	if err != nil {
		return nil, err
	}
	if err := dsp.Normalize(filtered); err != nil {
		return nil, err
	}
	peaks := dsp.PickPeaks(filtered, a.cfg.Engine.PeakThreshold, dsp.PeakRadius)
	logger.Infof("picked %d landmarks from %d frames", len(peaks), spec.Frames())
	return peaks, nil
}

// Save decodes an audio file, fingerprints it and enrolls it under the
// given name.
func (a *App) Save(path, name string) error {
	samples, format, err := audio.DecodeFile(path)
	if err != nil {
		return err
	}
	logger.Infof("decoded %s: %d samples at %d Hz", path, len(samples), format.SampleRate)

	landmarks, err := a.landmarksFromPCM(samples, format, true)
	if err != nil {
		return err
	}

	songID, anchors, err := a.builder.Enroll(name, landmarks)
	if err != nil {
		return err
	}
	logger.Infof("enrolled %q as song %d with %d anchors", name, songID, anchors)
	return nil
}

// Match is one recognized song with its name resolved.
type Match struct {
	SongID        int64
	Name          string
	Score         int
	AlignmentPeak int
	Offset        int
}

func (a *App) resolve(ranks []fingerprint.SongRank) ([]Match, error) {
	matches := make([]Match, 0, len(ranks))
	for _, r := range ranks {
		m := Match{
			SongID:        r.SongID,
			Score:         r.Score,
			AlignmentPeak: r.AlignmentPeak,
			Offset:        r.BestOffset,
		}
		song, err := a.store.GetSong(r.SongID)
		if err != nil {
			return nil, err
		}
		if song != nil {
			m.Name = song.Name
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Recognize matches an audio file against the local corpus.
func (a *App) Recognize(path string) ([]Match, error) {
	samples, format, err := audio.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	landmarks, err := a.landmarksFromPCM(samples, format, false)
	if err != nil {
		return nil, err
	}

	ranks, err := a.matcher.Match(landmarks)
	if err != nil {
		return nil, err
	}
	return a.resolve(ranks)
}

// Record captures from the default microphone until stop is signalled,
// then matches the recording against the local corpus.
func (a *App) Record(stop <-chan struct{}) ([]Match, error) {
	recorder, err := capture.NewRecorder()
	if err != nil {
		return nil, err
	}
	if err := recorder.Start(); err != nil {
		return nil, err
	}
	logger.Info("recording... press ctrl-c to stop")

	<-stop
	spec, err := recorder.Stop()
	if err != nil {
		return nil, err
	}
	logger.Infof("captured %d frames", spec.Frames())

	landmarks, err := a.landmarksFromSpectrogram(spec)
	if err != nil {
		return nil, err
	}

	ranks, err := a.matcher.Match(landmarks)
	if err != nil {
		return nil, err
	}
	return a.resolve(ranks)
}

// RecognizeRaw matches a legacy raw spectrogram file (row-major
// float64 doubles, 2048 bins) against the local corpus using the
// legacy Sobel profile.
func (a *App) RecognizeRaw(path string) ([]Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spectrogram file: %w", err)
	}
	defer f.Close()

	spec, err := dsp.ReadRawSpectrogram(f, dsp.FrameSizeBatch/2)
	if err != nil {
		return nil, err
	}

	filtered, err := dsp.EdgeFilter(spec, dsp.EdgeSobel)
	if err != nil {
		return nil, err
	}
	if err := dsp.Normalize(filtered); err != nil {
		return nil, err
	}
	landmarks := dsp.PickPeaks(filtered, a.cfg.Engine.PeakThreshold, dsp.PeakRadius)

	ranks, err := a.matcher.Match(landmarks)
	if err != nil {
		return nil, err
	}
	return a.resolve(ranks)
}

// Upload pushes un-uploaded songs to the remote service one at a time,
// stopping at the first failure.
func (a *App) Upload() (int, error) {
	uploaded := 0
	for {
		songID, err := a.remote.UploadNext(a.store)
		if err != nil {
			return uploaded, err
		}
		if songID == 0 {
			return uploaded, nil
		}
		logger.Infof("uploaded song %d", songID)
		uploaded++
	}
}

// SearchRemote fingerprints an audio file and queries the remote
// service instead of the local corpus.
func (a *App) SearchRemote(path string) ([]remote.SongResult, error) {
	samples, format, err := audio.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	landmarks, err := a.landmarksFromPCM(samples, format, false)
	if err != nil {
		return nil, err
	}
	return a.remote.Search(fingerprint.FilterBand(landmarks, a.cfg.Engine.BandLow, a.cfg.Engine.BandHigh))
}

// List returns every enrolled song.
func (a *App) List() ([]database.Song, error) {
	return a.store.ListSongs()
}
