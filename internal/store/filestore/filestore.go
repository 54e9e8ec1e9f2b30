// Package filestore is the file-backed persistence engine: a single JSON
// index file plus one content file per entry, all mutated through an
// atomic write-temp-then-rename protocol so concurrent readers never see a
// torn index. The in-memory Index is loaded once at construction and every
// mutation is durably rewritten before it is considered committed.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/clipd/clipd/internal/logging"
	"github.com/clipd/clipd/internal/store"
)

const (
	indexFile  = "index.json"
	contentExt = ".txt"
)

var storeLog = logging.ForComponent(logging.CompStorage)

// Store is the file-backed store for one storage directory. Methods are
// safe for concurrent use within a process; cross-process consistency
// relies on the atomic rename protocol alone.
type Store struct {
	dir        string
	maxEntries int

	mu      sync.Mutex
	index   *store.Index
	corrupt bool // index file present but unparsable; only Recover helps
}

// New opens the store rooted at dir, creating the directory if needed.
// maxEntries is clamped to the valid range; if it differs from the ceiling
// recorded in the index, the index is updated and over-ceiling entries are
// evicted immediately.
//
// If the index file exists but cannot be parsed, New returns a non-nil
// store together with an error wrapping store.ErrCorruptIndex. The store
// is then usable only for Recover; content blobs are never touched.
func New(dir string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}

	s := &Store{
		dir:        dir,
		maxEntries: store.ClampMaxEntries(maxEntries),
	}

	if err := cleanupTempFiles(dir); err != nil {
		return nil, err
	}

	idx, err := s.loadIndex()
	if err != nil {
		if errors.Is(err, store.ErrCorruptIndex) {
			s.corrupt = true
			s.index = &store.Index{MaxEntries: s.maxEntries, Entries: []*store.Entry{}}
			return s, err
		}
		return nil, err
	}
	s.index = idx

	// A reduced ceiling evicts immediately, not lazily.
	if err := s.syncMaxEntries(); err != nil {
		return nil, err
	}

	return s, nil
}

// WithDefaults opens the store with the default ceiling.
func WithDefaults(dir string) (*Store, error) {
	return New(dir, store.DefaultMaxEntries)
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// MaxEntries returns the configured non-pinned ceiling.
func (s *Store) MaxEntries() int {
	return s.maxEntries
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFile)
}

func (s *Store) contentPath(id string) string {
	return filepath.Join(s.dir, id+contentExt)
}

// loadIndex reads the index file. A missing file yields a fresh index with
// the configured ceiling; an unparsable one yields ErrCorruptIndex.
func (s *Store) loadIndex() (*store.Index, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &store.Index{MaxEntries: s.maxEntries, Entries: []*store.Entry{}}, nil
		}
		return nil, fmt.Errorf("%w: %v", store.ErrCorruptIndex, err)
	}

	var idx store.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCorruptIndex, err)
	}
	if idx.Entries == nil {
		idx.Entries = []*store.Entry{}
	}
	return &idx, nil
}

// saveLocked durably rewrites the index file. Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := writeFileAtomic(s.indexPath(), data); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// syncMaxEntries aligns the persisted ceiling with the configured one and
// prunes if the ceiling shrank.
func (s *Store) syncMaxEntries() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if s.index.MaxEntries != s.maxEntries {
		s.index.MaxEntries = s.maxEntries
		changed = true
	}
	if s.evictLocked() {
		changed = true
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

// Ingest stores new content, or relocates the existing entry when the
// content hash is already known. Empty content is rejected silently.
// Exactly one index rewrite happens per call; a new blob is written only
// for genuinely new content.
func (s *Store) Ingest(content string) (*store.Entry, error) {
	if content == "" {
		return nil, nil
	}
	if err := s.ensureReadable(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := store.HashContent(content)

	// Duplicate: move to front, pin state untouched, no blob write.
	if pos := s.index.FindByHash(hash); pos >= 0 {
		entry := s.index.Entries[pos]
		prev := s.snapshotLocked()
		s.index.MoveToFront(pos)
		if err := s.saveLocked(); err != nil {
			s.index.Entries = prev
			return nil, err
		}
		return cloneEntry(entry), nil
	}

	id := ulid.Make()
	entry := &store.Entry{
		ID:        id.String(),
		Timestamp: int64(id.Time()),
		Size:      int64(len(content)),
		Preview:   store.BuildPreview(content),
		Hash:      hash,
	}

	// Blob first: an orphaned blob is recoverable, an index entry
	// pointing at a missing blob is data loss.
	if err := writeFileAtomic(s.contentPath(entry.ID), []byte(content)); err != nil {
		return nil, fmt.Errorf("write content: %w", err)
	}

	prev := s.snapshotLocked()
	s.index.Entries = append([]*store.Entry{entry}, s.index.Entries...)
	s.evictLocked()
	if err := s.saveLocked(); err != nil {
		s.index.Entries = prev
		os.Remove(s.contentPath(entry.ID))
		return nil, err
	}

	storeLog.Debug("ingested entry", "id", entry.ID, "size", entry.Size)
	return cloneEntry(entry), nil
}

// evictLocked removes the oldest non-pinned entries until the non-pinned
// count is at or below the ceiling. Content blobs are deleted best-effort.
// Pinned entries are never touched; if only pinned entries remain the loop
// stops. Returns whether anything was removed.
func (s *Store) evictLocked() bool {
	removed := false
	for s.index.UnpinnedCount() > s.maxEntries {
		victim := -1
		for i, e := range s.index.Entries {
			if e.Pinned {
				continue
			}
			// <= so the entry closest to the tail wins timestamp ties.
			if victim < 0 || e.Timestamp <= s.index.Entries[victim].Timestamp {
				victim = i
			}
		}
		if victim < 0 {
			break
		}
		id := s.index.Entries[victim].ID
		s.index.Remove(victim)
		os.Remove(s.contentPath(id))
		removed = true
	}
	return removed
}

// LoadContent returns the full content for an entry. ErrNotFound if the
// entry is not indexed; ErrContentMissing if its blob is gone.
func (s *Store) LoadContent(id string) (string, error) {
	if err := s.ensureReadable(); err != nil {
		return "", err
	}

	s.mu.Lock()
	known := s.index.Find(id) != nil
	s.mu.Unlock()
	if !known {
		return "", fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	data, err := os.ReadFile(s.contentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", store.ErrContentMissing, id)
		}
		return "", fmt.Errorf("read content %s: %w", id, err)
	}
	return string(data), nil
}

// List returns up to limit entries, most recently touched first. A limit
// of 0 returns everything. Returned entries are copies.
func (s *Store) List(limit int) []*store.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.index.Entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*store.Entry, 0, n)
	for _, e := range s.index.Entries[:n] {
		out = append(out, cloneEntry(e))
	}
	return out
}

// Delete removes an entry and its content blob. ErrNotFound if absent.
func (s *Store) Delete(id string) error {
	if err := s.ensureReadable(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := -1
	for i, e := range s.index.Entries {
		if e.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}

	prev := s.snapshotLocked()
	s.index.Remove(pos)
	if err := s.saveLocked(); err != nil {
		s.index.Entries = prev
		return err
	}
	os.Remove(s.contentPath(id))
	return nil
}

// TogglePin flips an entry's pin flag and returns the new state. Pinning
// fails with ErrPinLimitExceeded once the pin ceiling is reached; the index
// is unchanged by a failed attempt. Unpinning always succeeds and makes the
// entry eligible for the next eviction pass.
func (s *Store) TogglePin(id string) (bool, error) {
	if err := s.ensureReadable(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.index.Find(id)
	if entry == nil {
		return false, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if !entry.Pinned && s.index.PinnedCount() >= store.MaxPinned {
		return false, fmt.Errorf("%w (%d)", store.ErrPinLimitExceeded, store.MaxPinned)
	}

	entry.Pinned = !entry.Pinned
	if err := s.saveLocked(); err != nil {
		entry.Pinned = !entry.Pinned
		return false, err
	}
	return entry.Pinned, nil
}

// SetPinned sets an entry's pin flag explicitly (used by undo restore).
func (s *Store) SetPinned(id string, pinned bool) error {
	if err := s.ensureReadable(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.index.Find(id)
	if entry == nil {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if pinned && !entry.Pinned && s.index.PinnedCount() >= store.MaxPinned {
		return fmt.Errorf("%w (%d)", store.ErrPinLimitExceeded, store.MaxPinned)
	}
	if entry.Pinned == pinned {
		return nil
	}

	entry.Pinned = pinned
	if err := s.saveLocked(); err != nil {
		entry.Pinned = !pinned
		return err
	}
	return nil
}

// Stats summarizes the store.
func (s *Store) Stats() store.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := store.Stats{
		Count:       len(s.index.Entries),
		PinnedCount: s.index.PinnedCount(),
		MaxEntries:  s.maxEntries,
	}
	for _, e := range s.index.Entries {
		st.TotalSize += e.Size
	}
	return st
}

// Clear removes every entry and its content blob, preserving the ceiling.
func (s *Store) Clear() error {
	if err := s.ensureReadable(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.index.Entries {
		os.Remove(s.contentPath(e.ID))
	}
	s.index.Entries = []*store.Entry{}
	return s.saveLocked()
}

// ensureReadable rejects ordinary operations while the index is corrupt.
// Only Recover repairs; nothing else attempts silent repair.
func (s *Store) ensureReadable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.corrupt {
		return store.ErrCorruptIndex
	}
	return nil
}

// snapshotLocked copies the entry slice so a failed save can restore the
// prior committed state. Entries themselves are not copied; callers that
// mutate an entry in place revert that field on failure.
func (s *Store) snapshotLocked() []*store.Entry {
	prev := make([]*store.Entry, len(s.index.Entries))
	copy(prev, s.index.Entries)
	return prev
}

func cloneEntry(e *store.Entry) *store.Entry {
	c := *e
	return &c
}
