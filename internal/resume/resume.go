// Package resume stores copy checkpoints so an interrupted copy between
// two files can continue where it stopped.
package resume

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/engine"
)

// ErrNotResumable is returned for copies whose progress cannot be
// expressed as a whole number of records on both sides.
var ErrNotResumable = errors.New("copy is not resumable")

// Eligible reports whether cfg describes a copy that can be checkpointed:
// named files on both ends, equal block sizes and no conversion that
// changes record sizes.
func Eligible(cfg *engine.Config) error {
	switch {
	case cfg.Input == "" || cfg.Output == "":
		return fmt.Errorf("%w: input and output must be files", ErrNotResumable)
	case cfg.IBS != cfg.OBS:
		return fmt.Errorf("%w: ibs and obs differ", ErrNotResumable)
	case cfg.Conv.Any(conv.Resizing):
		return fmt.Errorf("%w: conv=%s changes record sizes", ErrNotResumable, cfg.Conv&conv.Resizing)
	case cfg.Append:
		return fmt.Errorf("%w: oflag=append", ErrNotResumable)
	case cfg.CountBytes:
		return fmt.Errorf("%w: iflag=count_bytes", ErrNotResumable)
	}
	return nil
}

// Store is a SQLite-backed checkpoint for one copy job. It implements
// engine.Checkpointer.
type Store struct {
	db   *sql.DB
	path string
	// base is the record count restored at open.
	base int64

	mu      sync.Mutex
	pending int64
	dirty   bool
	done    chan struct{}
	stopped bool
}

// Open opens (or creates) the checkpoint for cfg under dir. The job is
// identified by the input, output and every parameter that affects which
// bytes land where, so a changed command line starts fresh.
func Open(dir string, cfg *engine.Config) (*Store, error) {
	if err := Eligible(cfg); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, JobID(cfg)+".db")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
		done: make(chan struct{}),
	}
	if err := s.init(cfg); err != nil {
		db.Close()
		return nil, err
	}

	go s.flushLoop()
	return s, nil
}

func (s *Store) init(cfg *engine.Config) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS progress (
			id      INTEGER PRIMARY KEY CHECK (id = 1),
			records INTEGER NOT NULL,
			updated INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT OR IGNORE INTO meta (key, value) VALUES ('input', ?), ('output', ?)",
		cfg.Input, cfg.Output,
	)
	if err != nil {
		return fmt.Errorf("store meta: %w", err)
	}

	err = s.db.QueryRow("SELECT records FROM progress WHERE id = 1").Scan(&s.base)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read progress: %w", err)
	}
	s.pending = s.base
	return nil
}

// Records returns the number of records completed by earlier runs.
func (s *Store) Records() int64 {
	return s.base
}

// Apply moves cfg past the records completed by earlier runs. The output
// is no longer truncated, since it holds those records.
func (s *Store) Apply(cfg *engine.Config) {
	if s.base == 0 {
		return
	}
	cfg.Skip.Bytes += s.base * int64(cfg.IBS)
	cfg.Seek.Bytes += s.base * int64(cfg.OBS)
	cfg.Conv |= conv.NoTrunc
	if cfg.Count >= 0 {
		cfg.Count = max(cfg.Count-s.base, 0)
	}
}

// Save records that records more records than the restored base are
// complete. Writes are batched and flushed periodically.
func (s *Store) Save(records int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("checkpoint closed")
	}
	s.pending = s.base + records
	s.dirty = true
	return nil
}

// Flush writes the pending record count to the database.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO progress (id, records, updated) VALUES (1, ?, ?)",
		s.pending, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *Store) flushLoop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			_ = s.flushLocked()
			s.mu.Unlock()
		}
	}
}

// Close flushes any pending progress and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.done)
	}
	err := s.flushLocked()
	s.mu.Unlock()
	return errors.Join(err, s.db.Close())
}

// Remove deletes the checkpoint database and its WAL files. Call it after
// Close once the copy has finished.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	for _, suffix := range []string{"-wal", "-shm"} {
		if rerr := os.Remove(s.path + suffix); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = errors.Join(err, rerr)
		}
	}
	return err
}

// Path returns the path to the checkpoint database file.
func (s *Store) Path() string {
	return s.path
}

// JobID computes a deterministic job ID from the copy parameters.
func JobID(cfg *engine.Config) string {
	h := blake3.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%d\x00%d+%d\x00%d+%d\x00%d",
		cfg.Input, cfg.Output, cfg.IBS, cfg.CBS, cfg.Count,
		cfg.Skip.Records, cfg.Skip.Bytes, cfg.Seek.Records, cfg.Seek.Bytes, cfg.Conv)
	digest := h.Sum(nil)
	return hex.EncodeToString(digest[:8])
}

var _ engine.Checkpointer = (*Store)(nil)
