// Package fingerprint turns landmark lists into the stored combinatorial
// index and matches query landmarks against it.
package fingerprint

import (
	"fmt"

	"github.com/hkg36/audio-freq/internal/database"
	"github.com/hkg36/audio-freq/internal/dsp"
)

// Target-zone constants. These define the fingerprint contract: change
// any of them and existing databases stop matching.
const (
	// DefaultBandLow/High bound the usable band (exclusive on both
	// sides, bin units). One source variant used (50, 400); (20, 400)
	// is canonical.
	DefaultBandLow  = 20
	DefaultBandHigh = 400

	zoneMaxOffset     = 45 // scan stops past anchor time + 45 frames
	zoneMinOffset     = 5  // targets must sit more than 5 frames ahead
	zoneFreqTolerance = 30 // |target.freq - anchor.freq| < 30
	minTargets        = 4  // anchors with fewer admitted targets are dropped
)

// FilterBand keeps landmarks with bandLow < freq < bandHigh.
func FilterBand(landmarks []dsp.Landmark, bandLow, bandHigh int) []dsp.Landmark {
	var out []dsp.Landmark
	for _, l := range landmarks {
		if l.Freq > bandLow && l.Freq < bandHigh {
			out = append(out, l)
		}
	}
	return out
}

// targetsOf enumerates the landmarks in anchor's target zone. The list
// must be in raster order so the forward scan can stop at the time
// bound.
func targetsOf(landmarks []dsp.Landmark, i int) []dsp.Landmark {
	anchor := landmarks[i]
	var targets []dsp.Landmark
	for j := i + 1; j < len(landmarks); j++ {
		b := landmarks[j]
		if b.Time > anchor.Time+zoneMaxOffset {
			break
		}
		if b.Time <= anchor.Time+zoneMinOffset {
			continue
		}
		if b.Freq <= anchor.Freq-zoneFreqTolerance || b.Freq >= anchor.Freq+zoneFreqTolerance {
			continue
		}
		targets = append(targets, b)
	}
	return targets
}

// Builder persists song fingerprints.
type Builder struct {
	Store    database.Store
	BandLow  int
	BandHigh int
}

// NewBuilder returns a builder with the canonical band.
func NewBuilder(store database.Store) *Builder {
	return &Builder{Store: store, BandLow: DefaultBandLow, BandHigh: DefaultBandHigh}
}

// Enroll writes one song and its anchor/target records in a single
// transaction and returns the new song id and the number of anchors
// kept. Landmarks must be in raster order as produced by the peak
// picker.
func (b *Builder) Enroll(name string, landmarks []dsp.Landmark) (int64, int, error) {
	usable := FilterBand(landmarks, b.BandLow, b.BandHigh)

	var songID int64
	anchors := 0
	err := b.Store.Enroll(func(w database.Writer) error {
		// The closure can run twice when the transaction is retried.
		anchors = 0

		id, err := w.InsertSong(name)
		if err != nil {
			return err
		}
		songID = id

		for i := range usable {
			targets := targetsOf(usable, i)
			if len(targets) < minTargets {
				continue
			}
			anchorID, err := w.InsertAnchor(usable[i].Freq, usable[i].Time, songID)
			if err != nil {
				return err
			}
			for _, t := range targets {
				if err := w.InsertTarget(anchorID, t.Freq, t.Time-usable[i].Time); err != nil {
					return err
				}
			}
			anchors++
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("enrolling %q: %w", name, err)
	}
	return songID, anchors, nil
}
