package localstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Prune cadence and retention window for queued records.
const (
	PruneInterval = 24 * time.Hour
	KeepWindow    = 7 * 24 * time.Hour
)

// Temp file names used during rewrite-in-place operations.
const (
	queueTmpFile = "weights_queue.tmp"
	queueRemFile = "weights_queue.rem"
)

// Outcome is the result of a queue flush.
type Outcome int

const (
	// FullySynced means every record was uploaded and the queue is empty.
	FullySynced Outcome = iota
	// PartialRemaining means an upload failed; the failed record and all
	// later ones are still queued in their original order.
	PartialRemaining
)

// UploadFn attempts to deliver one record to the remote store. It returns
// true only on confirmed success; a false return stops the flush.
type UploadFn func(Record) bool

// Enqueue appends one record to the durable queue. An age-based prune runs
// first, but a prune failure never blocks the append; worst case the queue
// carries stale records until the next successful prune.
func (s *Store) Enqueue(rec Record) error {
	if err := s.PruneIfDue(); err != nil {
		log.Printf("localstore: prune before enqueue failed: %v", err)
	}

	line, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode queue record: %w", err)
	}

	f, err := s.fs.OpenFile(s.path(queueFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open queue for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append queue record: %w", err)
	}
	return nil
}

// QueueLen returns the number of well-formed records currently queued.
func (s *Store) QueueLen() int {
	lines, err := s.readQueueLines()
	if err != nil {
		return 0
	}
	n := 0
	for _, line := range lines {
		if _, err := decodeRecord(line); err == nil {
			n++
		}
	}
	return n
}

// Flush drains the queue against the given upload function, in enqueue
// order. On the first failed upload the failing record and every record
// after it are preserved verbatim, so nothing is skipped or delivered twice
// and the retry order matches the original order. When every upload
// succeeds, the queue file is removed entirely. Corrupt lines are dropped
// silently.
func (s *Store) Flush(upload UploadFn) (Outcome, error) {
	if upload == nil {
		return PartialRemaining, fmt.Errorf("flush: nil upload function")
	}

	if !s.exists(queueFile) {
		return FullySynced, nil
	}

	if err := s.PruneIfDue(); err != nil {
		log.Printf("localstore: prune before flush failed: %v", err)
	}

	lines, err := s.readQueueLines()
	if err != nil {
		return PartialRemaining, fmt.Errorf("read queue: %w", err)
	}

	var remaining [][]byte
	failed := false

	for i, line := range lines {
		rec, err := decodeRecord(line)
		if err != nil {
			// Corrupt line: drop and keep going.
			continue
		}

		if !upload(rec) {
			// Keep this line and everything after it untouched.
			failed = true
			remaining = append(remaining, line)
			remaining = append(remaining, lines[i+1:]...)
			break
		}
	}

	if !failed {
		if err := s.remove(queueFile); err != nil {
			return PartialRemaining, fmt.Errorf("remove drained queue: %w", err)
		}
		return FullySynced, nil
	}

	if err := s.rewriteQueue(queueRemFile, remaining); err != nil {
		return PartialRemaining, fmt.Errorf("keep remaining queue: %w", err)
	}
	return PartialRemaining, nil
}

// PruneIfDue drops records older than the retention window. It runs at most
// once per PruneInterval and is skipped entirely while the wall clock is
// unknown, since a bad clock must not misclassify fresh records as expired.
// Records with a zero timestamp have unjudgeable age and are always kept.
func (s *Store) PruneIfDue() error {
	now, valid := s.clock.Now()
	if !valid {
		return nil
	}
	nowEpoch := now.Unix()

	if last, ok := s.loadLastPruneTS(); ok && last != 0 {
		if time.Duration(nowEpoch-last)*time.Second < PruneInterval {
			return nil
		}
	}

	if !s.exists(queueFile) {
		return s.saveLastPruneTS(nowEpoch)
	}

	lines, err := s.readQueueLines()
	if err != nil {
		return fmt.Errorf("read queue for prune: %w", err)
	}

	cutoff := nowEpoch - int64(KeepWindow/time.Second)
	var kept [][]byte
	dropped := 0

	for _, line := range lines {
		rec, err := decodeRecord(line)
		if err != nil {
			dropped++
			continue
		}
		if rec.TS != 0 && rec.TS < cutoff {
			dropped++
			continue
		}
		kept = append(kept, line)
	}

	if err := s.rewriteQueue(queueTmpFile, kept); err != nil {
		return fmt.Errorf("rewrite pruned queue: %w", err)
	}

	if dropped > 0 {
		log.Printf("localstore: pruned %d queued records (kept %d)", dropped, len(kept))
	}
	return s.saveLastPruneTS(nowEpoch)
}

// readQueueLines returns the non-empty lines of the queue file in order.
func (s *Store) readQueueLines() ([][]byte, error) {
	f, err := s.fs.Open(s.path(queueFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, cp)
	}
	return lines, scanner.Err()
}

// rewriteQueue replaces the queue file with the given lines via a temp file
// and rename, so a crash mid-write never loses the old queue.
func (s *Store) rewriteQueue(tmpName string, lines [][]byte) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := afero.WriteFile(s.fs, s.path(tmpName), buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := s.remove(queueFile); err != nil {
		return err
	}
	return s.fs.Rename(s.path(tmpName), s.path(queueFile))
}

type pruneMeta struct {
	LastPruneTS int64 `json:"last_prune_ts"`
}

func (s *Store) loadLastPruneTS() (int64, bool) {
	raw, err := afero.ReadFile(s.fs, s.path(pruneMetaFile))
	if err != nil {
		return 0, false
	}
	var meta pruneMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, false
	}
	return meta.LastPruneTS, true
}

func (s *Store) saveLastPruneTS(ts int64) error {
	raw, err := json.Marshal(pruneMeta{LastPruneTS: ts})
	if err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, s.path(pruneMetaFile), raw, 0o644); err != nil {
		return fmt.Errorf("write prune metadata: %w", err)
	}
	return nil
}
