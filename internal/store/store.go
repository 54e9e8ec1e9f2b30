// Package store defines the data model and error conditions for clipd's
// persistence layer. The Index is the ordered collection of entry metadata;
// content blobs live in separate files and are loaded on demand. The
// file-backed implementation lives in the filestore subpackage.
package store

import "errors"

const (
	// MaxPreviewLen is the preview cap in characters (not bytes).
	MaxPreviewLen = 100

	// DefaultMaxEntries is the non-pinned entry ceiling used when no
	// configuration is supplied.
	DefaultMaxEntries = 100

	// AbsoluteMaxEntries bounds any configured ceiling.
	AbsoluteMaxEntries = 10000

	// MaxPinned is the pinned entry ceiling. Pinning past it fails with
	// ErrPinLimitExceeded.
	MaxPinned = 25
)

// Named error conditions surfaced by the persistence layer. Callers branch
// with errors.Is; wrapped variants carry the offending detail.
var (
	// ErrNotFound indicates the requested entry is not in the index.
	ErrNotFound = errors.New("entry not found")

	// ErrContentMissing indicates an entry is indexed but its content blob
	// is gone. Data loss for that single entry, never process-fatal.
	ErrContentMissing = errors.New("content file missing")

	// ErrPinLimitExceeded indicates the pin ceiling is already reached.
	ErrPinLimitExceeded = errors.New("maximum pinned entries reached")

	// ErrCorruptIndex indicates the index file exists but cannot be parsed.
	// Recovery is explicit: callers decide whether to invoke Recover.
	ErrCorruptIndex = errors.New("index file unreadable")
)

// Entry is the metadata record for one stored artifact. The content itself
// is addressed by ID and owned by the content store.
type Entry struct {
	// ID is a ULID minted at creation time. It is the content file name
	// and embeds the creation instant, which recovery uses to re-derive
	// timestamps for orphaned blobs.
	ID string `json:"id"`

	// Timestamp is the creation instant in milliseconds since epoch.
	// It orders eviction and never changes after creation.
	Timestamp int64 `json:"timestamp"`

	// Size is the content length in bytes.
	Size int64 `json:"size"`

	// Preview is the first MaxPreviewLen characters of the content with
	// control characters replaced by spaces. Computed once at creation.
	Preview string `json:"preview"`

	// Hash is the content digest, prefixed with its algorithm name
	// ("sha256:..."). The deduplication key.
	Hash string `json:"hash"`

	// Pinned marks the entry exempt from eviction. Older index files
	// predate this field; absent means false.
	Pinned bool `json:"pinned,omitempty"`
}

// Index is the ordered collection of all entries plus the configured
// non-pinned ceiling. Position 0 is the most recently touched entry.
type Index struct {
	MaxEntries int      `json:"max_entries"`
	Entries    []*Entry `json:"entries"`
}

// NewIndex returns an empty index with the default ceiling.
func NewIndex() *Index {
	return &Index{
		MaxEntries: DefaultMaxEntries,
		Entries:    []*Entry{},
	}
}

// PinnedCount returns the number of pinned entries.
func (idx *Index) PinnedCount() int {
	n := 0
	for _, e := range idx.Entries {
		if e.Pinned {
			n++
		}
	}
	return n
}

// UnpinnedCount returns the number of entries subject to eviction.
func (idx *Index) UnpinnedCount() int {
	return len(idx.Entries) - idx.PinnedCount()
}

// Find returns the entry with the given ID, or nil.
func (idx *Index) Find(id string) *Entry {
	for _, e := range idx.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// FindByHash returns the position of the entry with the given content hash,
// or -1. At most one entry per hash exists at any time.
func (idx *Index) FindByHash(hash string) int {
	for i, e := range idx.Entries {
		if e.Hash == hash {
			return i
		}
	}
	return -1
}

// MoveToFront relocates the entry at position i to position 0, preserving
// the relative order of everything else.
func (idx *Index) MoveToFront(i int) {
	if i <= 0 || i >= len(idx.Entries) {
		return
	}
	e := idx.Entries[i]
	copy(idx.Entries[1:i+1], idx.Entries[:i])
	idx.Entries[0] = e
}

// Remove deletes the entry at position i.
func (idx *Index) Remove(i int) {
	if i < 0 || i >= len(idx.Entries) {
		return
	}
	idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
}

// Stats summarizes the store for display.
type Stats struct {
	// Count is the total number of entries.
	Count int

	// PinnedCount is the number of pinned entries.
	PinnedCount int

	// TotalSize is the sum of all entry sizes in bytes.
	TotalSize int64

	// MaxEntries is the configured non-pinned ceiling.
	MaxEntries int
}

// ClampMaxEntries clamps a configured ceiling to the valid range.
func ClampMaxEntries(n int) int {
	if n < 1 {
		return 1
	}
	if n > AbsoluteMaxEntries {
		return AbsoluteMaxEntries
	}
	return n
}
