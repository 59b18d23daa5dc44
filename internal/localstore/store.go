// Package localstore provides the on-device durable state: the cached
// schedule document and the offline telemetry queue. All filesystem access
// goes through an afero.Fs so tests run against an in-memory filesystem.
//
// The store is a single-writer resource: only the driver loop touches it, so
// no locking is needed.
package localstore

import (
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/inbarayasoo/smart-dog-feeder/internal/clock"
)

// File names inside the data directory.
const (
	scheduleFile    = "schedule_cache.json"
	scheduleCRCFile = "schedule_cache.crc"
	queueFile       = "weights_queue.jsonl"
	pruneMetaFile   = "weights_prune_meta.json"
)

// Store is the durable local store rooted at a data directory.
type Store struct {
	fs    afero.Fs
	dir   string
	clock clock.Clock
}

// NewStore creates a Store over the given filesystem and data directory.
// The directory is created if missing.
func NewStore(fs afero.Fs, dir string, clk clock.Clock) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{fs: fs, dir: dir, clock: clk}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// StoreScheduleIfChanged writes the raw schedule document to the cache file,
// but only when its checksum differs from the last stored one; re-writing
// an identical document would just wear the flash. A failure to record the
// checksum is not fatal: the schedule itself was saved.
func (s *Store) StoreScheduleIfChanged(raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("store schedule: empty document")
	}

	newCRC := crc32.ChecksumIEEE(raw)
	if oldCRC, ok := s.readStoredCRC(); ok && oldCRC == newCRC {
		return nil
	}

	if err := afero.WriteFile(s.fs, s.path(scheduleFile), raw, 0o644); err != nil {
		return fmt.Errorf("write schedule cache: %w", err)
	}

	crcText := strconv.FormatUint(uint64(newCRC), 10)
	if err := afero.WriteFile(s.fs, s.path(scheduleCRCFile), []byte(crcText), 0o644); err != nil {
		return fmt.Errorf("write schedule checksum: %w", err)
	}
	return nil
}

// LoadSchedule returns the cached raw schedule document, or ok=false when no
// usable cache exists.
func (s *Store) LoadSchedule() ([]byte, bool) {
	raw, err := afero.ReadFile(s.fs, s.path(scheduleFile))
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// ScheduleCRC returns the checksum of the cached schedule document, computed
// from the cache content itself (the companion file only exists to skip
// redundant writes).
func (s *Store) ScheduleCRC() (uint32, bool) {
	raw, ok := s.LoadSchedule()
	if !ok {
		return 0, false
	}
	return crc32.ChecksumIEEE(raw), true
}

func (s *Store) readStoredCRC() (uint32, bool) {
	raw, err := afero.ReadFile(s.fs, s.path(scheduleCRCFile))
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func (s *Store) exists(name string) bool {
	ok, err := afero.Exists(s.fs, s.path(name))
	return err == nil && ok
}

func (s *Store) remove(name string) error {
	err := s.fs.Remove(s.path(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
