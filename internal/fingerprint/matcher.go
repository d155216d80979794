package fingerprint

import (
	"sort"

	"github.com/hkg36/audio-freq/internal/database"
	"github.com/hkg36/audio-freq/internal/dsp"
)

// DefaultMatchMin is the candidate acceptance threshold. One source
// variant required strictly more than 2 matched targets; >= 2 is
// canonical.
const DefaultMatchMin = 2

// Hit records one accepted candidate anchor.
type Hit struct {
	SongID     int64
	AnchorTime int
	QueryTime  int
	MatchCount int
	// Offset is anchor time minus query time: for a genuine match it
	// is the position of the query clip inside the stored song.
	Offset int
}

// SongRank is one song's aggregate over its hits. Songs are ranked by
// AlignmentPeak, then Score.
type SongRank struct {
	SongID int64
	// Score is the total number of hits for the song.
	Score int
	// AlignmentPeak is the largest number of hits sharing one offset.
	AlignmentPeak int
	// BestOffset is the offset at the alignment peak.
	BestOffset int
}

// Matcher looks query landmark lists up in the store.
type Matcher struct {
	Store    database.Store
	BandLow  int
	BandHigh int
	MatchMin int
}

// NewMatcher returns a matcher with the canonical parameters.
func NewMatcher(store database.Store) *Matcher {
	return &Matcher{
		Store:    store,
		BandLow:  DefaultBandLow,
		BandHigh: DefaultBandHigh,
		MatchMin: DefaultMatchMin,
	}
}

// Match ranks the stored corpus against the query landmarks. An empty
// result is not an error; genuine matches separate from noise because
// their hits cluster at a single offset while false positives spread
// uniformly.
func (m *Matcher) Match(query []dsp.Landmark) ([]SongRank, error) {
	usable := FilterBand(query, m.BandLow, m.BandHigh)

	hits, err := m.collectHits(usable)
	if err != nil {
		return nil, err
	}
	return rankHits(hits), nil
}

func (m *Matcher) collectHits(usable []dsp.Landmark) ([]Hit, error) {
	var hits []Hit
	for i := range usable {
		anchor := usable[i]
		candidates, err := m.Store.FindAnchorsByFreq(anchor.Freq)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}

		targets := targetsOf(usable, i)
		if len(targets) == 0 {
			continue
		}

		for _, c := range candidates {
			matched := 0
			for _, b := range targets {
				dt := b.Time - anchor.Time
				n, err := m.Store.CountTargets(c.ID, b.Freq-1, b.Freq+1, dt-1, dt+1)
				if err != nil {
					return nil, err
				}
				if n > 0 {
					matched++
				}
			}
			if matched >= m.MatchMin {
				hits = append(hits, Hit{
					SongID:     c.SongID,
					AnchorTime: c.Time,
					QueryTime:  anchor.Time,
					MatchCount: matched,
					Offset:     c.Time - anchor.Time,
				})
			}
		}
	}
	return hits, nil
}

func rankHits(hits []Hit) []SongRank {
	type histogram struct {
		score   int
		offsets map[int]int
	}
	bySong := map[int64]*histogram{}
	for _, h := range hits {
		hist := bySong[h.SongID]
		if hist == nil {
			hist = &histogram{offsets: map[int]int{}}
			bySong[h.SongID] = hist
		}
		hist.score++
		hist.offsets[h.Offset]++
	}

	ranks := make([]SongRank, 0, len(bySong))
	for songID, hist := range bySong {
		rank := SongRank{SongID: songID, Score: hist.score}
		for offset, count := range hist.offsets {
			if count > rank.AlignmentPeak ||
				(count == rank.AlignmentPeak && offset < rank.BestOffset) {
				rank.AlignmentPeak = count
				rank.BestOffset = offset
			}
		}
		ranks = append(ranks, rank)
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].AlignmentPeak != ranks[j].AlignmentPeak {
			return ranks[i].AlignmentPeak > ranks[j].AlignmentPeak
		}
		if ranks[i].Score != ranks[j].Score {
			return ranks[i].Score > ranks[j].Score
		}
		return ranks[i].SongID < ranks[j].SongID
	})
	return ranks
}
