// Package database defines the index store contract and picks a backend
// from the configuration. Implementations live in subpackages.
package database

import (
	"errors"
	"fmt"

	config "github.com/hkg36/audio-freq/configs"
)

// ErrStoreUnavailable tags driver failures on the read paths, on schema
// setup, on SetOption, and on beginning or committing an enrollment
// transaction. An error returned from inside an Enroll closure,
// including a failed Writer insert, rolls the transaction back and is
// returned as reported, without this tag.
var ErrStoreUnavailable = errors.New("index store unavailable")

// ErrTransactionConflict marks a write transaction that lost to a
// concurrent writer. Enroll retries once before surfacing it.
var ErrTransactionConflict = errors.New("transaction conflict")

// Song is one row of songlist.
type Song struct {
	ID   int64
	Name string
}

// Anchor is one row of Anchor_freq_index.
type Anchor struct {
	ID     int64
	Freq   int
	Time   int
	SongID int64
}

// Check is one row of Check_freq_index, minus the anchor reference.
type Check struct {
	Freq       int
	TimeOffset int
}

// Writer is the transactional surface handed to an enrollment. All
// writes issued through it commit or roll back together.
type Writer interface {
	InsertSong(name string) (int64, error)
	InsertAnchor(freq, time int, songID int64) (int64, error)
	InsertTarget(anchorID int64, freq, timeOffset int) error
}

// Store is the index store. It is single-writer: enrollment and
// matching never share the same database file concurrently.
type Store interface {
	Setup() error
	Close() error

	// Enroll runs fn inside one write transaction. On
	// ErrTransactionConflict the whole transaction is retried once.
	Enroll(fn func(Writer) error) error

	FindAnchorsByFreq(freq int) ([]Anchor, error)
	CountTargets(anchorID int64, freqLo, freqHi, offLo, offHi int) (int, error)

	GetSong(id int64) (*Song, error)
	ListSongs() ([]Song, error)
	// SongAfter returns the first song with a larger id, or nil when
	// the cursor is past the end.
	SongAfter(id int64) (*Song, error)

	AnchorsBySong(songID int64) ([]Anchor, error)
	TargetsByAnchor(anchorID int64) ([]Check, error)

	GetOption(name string) (int64, bool, error)
	SetOption(name string, value int64) error
}

// Factory builds a Store from a database config. Backends register
// themselves here from their package init to keep driver imports out of
// this package.
type Factory func(cfg config.DatabaseConfig) (Store, error)

var factories = map[string]Factory{}

// Register installs a backend factory under a config type name.
func Register(name string, f Factory) {
	factories[name] = f
}

// New creates the store selected by cfg.Type.
func New(cfg config.DatabaseConfig) (Store, error) {
	f, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	return f(cfg)
}
