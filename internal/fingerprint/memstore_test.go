package fingerprint_test

import (
	"github.com/hkg36/audio-freq/internal/database"
)

// memStore is an in-memory database.Store for exercising the builder
// and matcher without a driver. Enroll stages writes and commits them
// only when the closure succeeds, mirroring the transactional contract.
type memStore struct {
	songs   []database.Song
	anchors []database.Anchor
	targets map[int64][]database.Check
	options map[string]int64

	nextSongID   int64
	nextAnchorID int64

	readErr error // injected failure for all read paths
}

func newMemStore() *memStore {
	return &memStore{
		targets: map[int64][]database.Check{},
		options: map[string]int64{},
	}
}

func (m *memStore) Setup() error { return nil }
func (m *memStore) Close() error { return nil }

type memWriter struct {
	store   *memStore
	songs   []database.Song
	anchors []database.Anchor
	targets map[int64][]database.Check
}

func (w *memWriter) InsertSong(name string) (int64, error) {
	w.store.nextSongID++
	w.songs = append(w.songs, database.Song{ID: w.store.nextSongID, Name: name})
	return w.store.nextSongID, nil
}

func (w *memWriter) InsertAnchor(freq, time int, songID int64) (int64, error) {
	w.store.nextAnchorID++
	w.anchors = append(w.anchors, database.Anchor{
		ID: w.store.nextAnchorID, Freq: freq, Time: time, SongID: songID,
	})
	return w.store.nextAnchorID, nil
}

func (w *memWriter) InsertTarget(anchorID int64, freq, timeOffset int) error {
	w.targets[anchorID] = append(w.targets[anchorID], database.Check{
		Freq: freq, TimeOffset: timeOffset,
	})
	return nil
}

func (m *memStore) Enroll(fn func(database.Writer) error) error {
	w := &memWriter{store: m, targets: map[int64][]database.Check{}}
	if err := fn(w); err != nil {
		return err
	}
	m.songs = append(m.songs, w.songs...)
	m.anchors = append(m.anchors, w.anchors...)
	for id, checks := range w.targets {
		m.targets[id] = append(m.targets[id], checks...)
	}
	return nil
}

func (m *memStore) FindAnchorsByFreq(freq int) ([]database.Anchor, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []database.Anchor
	for _, a := range m.anchors {
		if a.Freq == freq {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CountTargets(anchorID int64, freqLo, freqHi, offLo, offHi int) (int, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	n := 0
	for _, c := range m.targets[anchorID] {
		if c.Freq >= freqLo && c.Freq <= freqHi &&
			c.TimeOffset >= offLo && c.TimeOffset <= offHi {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetSong(id int64) (*database.Song, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	for _, s := range m.songs {
		if s.ID == id {
			song := s
			return &song, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListSongs() ([]database.Song, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]database.Song(nil), m.songs...), nil
}

func (m *memStore) SongAfter(id int64) (*database.Song, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	var best *database.Song
	for i := range m.songs {
		s := m.songs[i]
		if s.ID > id && (best == nil || s.ID < best.ID) {
			best = &s
		}
	}
	return best, nil
}

func (m *memStore) AnchorsBySong(songID int64) ([]database.Anchor, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []database.Anchor
	for _, a := range m.anchors {
		if a.SongID == songID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) TargetsByAnchor(anchorID int64) ([]database.Check, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]database.Check(nil), m.targets[anchorID]...), nil
}

func (m *memStore) GetOption(name string) (int64, bool, error) {
	if m.readErr != nil {
		return 0, false, m.readErr
	}
	v, ok := m.options[name]
	return v, ok, nil
}

func (m *memStore) SetOption(name string, value int64) error {
	m.options[name] = value
	return nil
}
