// Package sqlite is the canonical index store backend, kept on a local
// file so databases remain interchangeable with older corpora.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	config "github.com/hkg36/audio-freq/configs"
	"github.com/hkg36/audio-freq/internal/database"
)

func init() {
	database.Register("sqlite", func(cfg config.DatabaseConfig) (database.Store, error) {
		return Open(cfg.Path)
	})
}

// DB wraps a single sqlite database file.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	// Single writer by contract; one connection keeps sqlite happy.
	db.SetMaxOpenConns(1)
	return &DB{db: db}, nil
}

// Field names and types are part of the on-disk contract.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS songlist (
		id INTEGER PRIMARY KEY,
		name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS Anchor_freq_index (
		id INTEGER PRIMARY KEY,
		freq INTEGER,
		time INTEGER,
		song_id INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS Check_freq_index (
		Anchor_id INTEGER,
		freq INTEGER,
		time_offset INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS WorkOption (
		name TEXT PRIMARY KEY,
		value INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_anchor_freq ON Anchor_freq_index (freq)`,
	`CREATE INDEX IF NOT EXISTS idx_check_lookup ON Check_freq_index (Anchor_id, freq, time_offset)`,
}

func (s *DB) Setup() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: creating schema: %v", database.ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (s *DB) Close() error {
	return s.db.Close()
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

type writer struct {
	tx *sql.Tx
}

func (w *writer) InsertSong(name string) (int64, error) {
	res, err := w.tx.Exec(`INSERT INTO songlist (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (w *writer) InsertAnchor(freq, time int, songID int64) (int64, error) {
	res, err := w.tx.Exec(
		`INSERT INTO Anchor_freq_index (freq, time, song_id) VALUES (?, ?, ?)`,
		freq, time, songID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (w *writer) InsertTarget(anchorID int64, freq, timeOffset int) error {
	_, err := w.tx.Exec(
		`INSERT INTO Check_freq_index (Anchor_id, freq, time_offset) VALUES (?, ?, ?)`,
		anchorID, freq, timeOffset)
	return err
}

func (s *DB) enrollOnce(fn func(database.Writer) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: %v", database.ErrTransactionConflict, err)
		}
		return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}

	if err := fn(&writer{tx: tx}); err != nil {
		tx.Rollback()
		if isConflict(err) {
			return fmt.Errorf("%w: %v", database.ErrTransactionConflict, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isConflict(err) {
			return fmt.Errorf("%w: %v", database.ErrTransactionConflict, err)
		}
		return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return nil
}

// Enroll wraps one song's writes in a transaction, retrying a single
// time when the transaction loses to another writer.
func (s *DB) Enroll(fn func(database.Writer) error) error {
	err := s.enrollOnce(fn)
	if errors.Is(err, database.ErrTransactionConflict) {
		err = s.enrollOnce(fn)
	}
	return err
}

func (s *DB) FindAnchorsByFreq(freq int) ([]database.Anchor, error) {
	rows, err := s.db.Query(
		`SELECT id, freq, time, song_id FROM Anchor_freq_index WHERE freq = ?`, freq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var anchors []database.Anchor
	for rows.Next() {
		var a database.Anchor
		if err := rows.Scan(&a.ID, &a.Freq, &a.Time, &a.SongID); err != nil {
			return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return anchors, nil
}

func (s *DB) CountTargets(anchorID int64, freqLo, freqHi, offLo, offHi int) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM Check_freq_index
		 WHERE Anchor_id = ? AND freq BETWEEN ? AND ? AND time_offset BETWEEN ? AND ?`,
		anchorID, freqLo, freqHi, offLo, offHi).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *DB) GetSong(id int64) (*database.Song, error) {
	var song database.Song
	err := s.db.QueryRow(`SELECT id, name FROM songlist WHERE id = ?`, id).
		Scan(&song.ID, &song.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return &song, nil
}

func (s *DB) ListSongs() ([]database.Song, error) {
	rows, err := s.db.Query(`SELECT id, name FROM songlist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var songs []database.Song
	for rows.Next() {
		var song database.Song
		if err := rows.Scan(&song.ID, &song.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return songs, nil
}

func (s *DB) SongAfter(id int64) (*database.Song, error) {
	var song database.Song
	err := s.db.QueryRow(
		`SELECT id, name FROM songlist WHERE id > ? ORDER BY id LIMIT 1`, id).
		Scan(&song.ID, &song.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return &song, nil
}

func (s *DB) AnchorsBySong(songID int64) ([]database.Anchor, error) {
	rows, err := s.db.Query(
		`SELECT id, freq, time, song_id FROM Anchor_freq_index WHERE song_id = ?`, songID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var anchors []database.Anchor
	for rows.Next() {
		var a database.Anchor
		if err := rows.Scan(&a.ID, &a.Freq, &a.Time, &a.SongID); err != nil {
			return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return anchors, nil
}

func (s *DB) TargetsByAnchor(anchorID int64) ([]database.Check, error) {
	rows, err := s.db.Query(
		`SELECT freq, time_offset FROM Check_freq_index WHERE Anchor_id = ?`, anchorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var checks []database.Check
	for rows.Next() {
		var c database.Check
		if err := rows.Scan(&c.Freq, &c.TimeOffset); err != nil {
			return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return checks, nil
}

func (s *DB) GetOption(name string) (int64, bool, error) {
	var value int64
	err := s.db.QueryRow(`SELECT value FROM WorkOption WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return value, true, nil
}

func (s *DB) SetOption(name string, value int64) error {
	_, err := s.db.Exec(`REPLACE INTO WorkOption (name, value) VALUES (?, ?)`, name, value)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return nil
}
