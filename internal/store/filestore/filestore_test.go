package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipd/clipd/internal/store"
)

func newTestStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	s, err := New(t.TempDir(), maxEntries)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustIngest(t *testing.T, s *Store, content string) *store.Entry {
	t.Helper()
	e, err := s.Ingest(content)
	if err != nil {
		t.Fatalf("Ingest(%q): %v", content, err)
	}
	if e == nil {
		t.Fatalf("Ingest(%q): nil entry", content)
	}
	return e
}

func TestIngestAndList(t *testing.T) {
	s := newTestStore(t, 10)

	mustIngest(t, s, "first")
	mustIngest(t, s, "second")
	mustIngest(t, s, "third")

	entries := s.List(0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Preview != "third" || entries[2].Preview != "first" {
		t.Errorf("wrong order: %q ... %q", entries[0].Preview, entries[2].Preview)
	}
}

func TestIngestEmptyContent(t *testing.T) {
	s := newTestStore(t, 10)

	e, err := s.Ingest("")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if e != nil {
		t.Errorf("empty content produced entry %+v", e)
	}
	if len(s.List(0)) != 0 {
		t.Error("empty content was stored")
	}
}

func TestIngestDuplicateMovesToFront(t *testing.T) {
	s := newTestStore(t, 10)

	a := mustIngest(t, s, "alpha")
	mustIngest(t, s, "beta")

	dup := mustIngest(t, s, "alpha")
	if dup.ID != a.ID {
		t.Errorf("duplicate got new id %s, want %s", dup.ID, a.ID)
	}
	if dup.Timestamp != a.Timestamp {
		t.Errorf("duplicate changed timestamp %d -> %d", a.Timestamp, dup.Timestamp)
	}

	entries := s.List(0)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != a.ID {
		t.Errorf("duplicate not moved to front")
	}

	// A single blob on disk for the deduplicated content.
	if _, err := os.Stat(s.contentPath(a.ID)); err != nil {
		t.Errorf("content blob missing: %v", err)
	}
}

func TestIngestDuplicatePreservesPin(t *testing.T) {
	s := newTestStore(t, 10)

	a := mustIngest(t, s, "keep me")
	mustIngest(t, s, "other")
	if _, err := s.TogglePin(a.ID); err != nil {
		t.Fatalf("TogglePin: %v", err)
	}

	dup := mustIngest(t, s, "keep me")
	if !dup.Pinned {
		t.Error("pin state lost on duplicate ingest")
	}
}

func TestLoadContentRoundtrip(t *testing.T) {
	s := newTestStore(t, 10)
	const content = "full content body\nwith a second line"

	e := mustIngest(t, s, content)
	got, err := s.LoadContent(e.ID)
	if err != nil {
		t.Fatalf("LoadContent: %v", err)
	}
	if got != content {
		t.Errorf("content mismatch: %q", got)
	}
}

func TestLoadContentNotFound(t *testing.T) {
	s := newTestStore(t, 10)

	_, err := s.LoadContent("nonexistent")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadContentMissingBlob(t *testing.T) {
	s := newTestStore(t, 10)

	e := mustIngest(t, s, "vanishing")
	if err := os.Remove(s.contentPath(e.ID)); err != nil {
		t.Fatal(err)
	}

	_, err := s.LoadContent(e.ID)
	if !errors.Is(err, store.ErrContentMissing) {
		t.Errorf("got %v, want ErrContentMissing", err)
	}
}

func TestEvictionRemovesOldest(t *testing.T) {
	s := newTestStore(t, 3)

	a := mustIngest(t, s, "a")
	mustIngest(t, s, "b")
	mustIngest(t, s, "c")
	mustIngest(t, s, "d")

	entries := s.List(0)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for _, e := range entries {
		if e.ID == a.ID {
			t.Error("oldest entry survived eviction")
		}
	}
	if _, err := os.Stat(s.contentPath(a.ID)); !os.IsNotExist(err) {
		t.Error("evicted entry's blob not removed")
	}
}

func TestEvictionSkipsPinned(t *testing.T) {
	s := newTestStore(t, 3)

	pinned := mustIngest(t, s, "precious")
	if _, err := s.TogglePin(pinned.ID); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		mustIngest(t, s, fmt.Sprintf("filler %d", i))
	}

	entries := s.List(0)
	found := false
	unpinned := 0
	for _, e := range entries {
		if e.ID == pinned.ID {
			found = true
		}
		if !e.Pinned {
			unpinned++
		}
	}
	if !found {
		t.Error("pinned entry was evicted")
	}
	if unpinned > 3 {
		t.Errorf("%d unpinned entries, ceiling is 3", unpinned)
	}
}

func TestEvictionStopsWhenAllPinned(t *testing.T) {
	s := newTestStore(t, 10)

	for i := 0; i < 3; i++ {
		e := mustIngest(t, s, fmt.Sprintf("pin %d", i))
		if _, err := s.TogglePin(e.ID); err != nil {
			t.Fatal(err)
		}
	}

	// Shrinking the ceiling below the pinned count must not loop or
	// remove anything.
	s2, err := New(s.Dir(), 1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := len(s2.List(0)); got != 3 {
		t.Errorf("got %d entries, want 3", got)
	}
}

func TestPinLimit(t *testing.T) {
	s := newTestStore(t, store.AbsoluteMaxEntries)

	for i := 0; i < store.MaxPinned; i++ {
		e := mustIngest(t, s, fmt.Sprintf("pinned %d", i))
		if _, err := s.TogglePin(e.ID); err != nil {
			t.Fatalf("pin %d: %v", i, err)
		}
	}

	extra := mustIngest(t, s, "one too many")
	_, err := s.TogglePin(extra.ID)
	if !errors.Is(err, store.ErrPinLimitExceeded) {
		t.Errorf("got %v, want ErrPinLimitExceeded", err)
	}
	if s.List(0)[0].Pinned {
		t.Error("entry pinned despite limit error")
	}

	// Unpinning at the limit always succeeds.
	first := s.List(0)[1]
	if got, err := s.TogglePin(first.ID); err != nil || got {
		t.Errorf("unpin: got %v, %v", got, err)
	}
}

func TestTogglePinPersists(t *testing.T) {
	s := newTestStore(t, 10)

	e := mustIngest(t, s, "sticky")
	if _, err := s.TogglePin(e.ID); err != nil {
		t.Fatal(err)
	}

	s2, err := New(s.Dir(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !s2.List(0)[0].Pinned {
		t.Error("pin state not persisted")
	}
}

func TestSetPinned(t *testing.T) {
	s := newTestStore(t, 10)

	e := mustIngest(t, s, "explicit")
	if err := s.SetPinned(e.ID, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if !s.List(0)[0].Pinned {
		t.Error("not pinned")
	}
	// Idempotent.
	if err := s.SetPinned(e.ID, true); err != nil {
		t.Errorf("repeat SetPinned: %v", err)
	}
	if err := s.SetPinned("missing", true); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, 10)

	e := mustIngest(t, s, "doomed")
	mustIngest(t, s, "survivor")

	if err := s.Delete(e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(s.List(0)) != 1 {
		t.Error("entry not removed from index")
	}
	if _, err := os.Stat(s.contentPath(e.ID)); !os.IsNotExist(err) {
		t.Error("blob not removed")
	}
	if err := s.Delete(e.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestListLimit(t *testing.T) {
	s := newTestStore(t, 20)

	for i := 0; i < 5; i++ {
		mustIngest(t, s, fmt.Sprintf("entry %d", i))
	}
	if got := len(s.List(3)); got != 3 {
		t.Errorf("List(3) returned %d", got)
	}
	if got := len(s.List(0)); got != 5 {
		t.Errorf("List(0) returned %d", got)
	}
	if got := len(s.List(100)); got != 5 {
		t.Errorf("List(100) returned %d", got)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t, 50)

	mustIngest(t, s, "12345")
	e := mustIngest(t, s, "1234567890")
	if _, err := s.TogglePin(e.ID); err != nil {
		t.Fatal(err)
	}

	st := s.Stats()
	if st.Count != 2 || st.PinnedCount != 1 {
		t.Errorf("stats %+v", st)
	}
	if st.TotalSize != 15 {
		t.Errorf("TotalSize = %d, want 15", st.TotalSize)
	}
	if st.MaxEntries != 50 {
		t.Errorf("MaxEntries = %d, want 50", st.MaxEntries)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t, 10)

	a := mustIngest(t, s, "one")
	mustIngest(t, s, "two")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(s.List(0)) != 0 {
		t.Error("entries remain after clear")
	}
	if _, err := os.Stat(s.contentPath(a.ID)); !os.IsNotExist(err) {
		t.Error("blob remains after clear")
	}
	if s.MaxEntries() != 10 {
		t.Error("ceiling lost by clear")
	}
}

func TestMaxEntriesClamped(t *testing.T) {
	low, err := New(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if low.MaxEntries() != 1 {
		t.Errorf("got %d, want 1", low.MaxEntries())
	}

	high, err := New(t.TempDir(), 99999)
	if err != nil {
		t.Fatal(err)
	}
	if high.MaxEntries() != store.AbsoluteMaxEntries {
		t.Errorf("got %d, want %d", high.MaxEntries(), store.AbsoluteMaxEntries)
	}
}

func TestReducedCeilingEvictsAtStartup(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		mustIngest(t, s, fmt.Sprintf("entry %d", i))
	}

	s2, err := New(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(s2.List(0)); got != 2 {
		t.Errorf("got %d entries after reopen, want 2", got)
	}
}

func TestCorruptIndexSurfacesError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, 10)
	if !errors.Is(err, store.ErrCorruptIndex) {
		t.Fatalf("got %v, want ErrCorruptIndex", err)
	}
	if s == nil {
		t.Fatal("store must remain usable for recovery")
	}

	if _, err := s.Ingest("blocked"); !errors.Is(err, store.ErrCorruptIndex) {
		t.Errorf("Ingest on corrupt store: %v", err)
	}
	if err := s.Delete("x"); !errors.Is(err, store.ErrCorruptIndex) {
		t.Errorf("Delete on corrupt store: %v", err)
	}
}

func TestStartupRemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "index.json.12345.tmp")
	if err := os.WriteFile(stale, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(dir, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale temp file survived startup")
	}
}

func TestPersistedAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	e := mustIngest(t, s, "durable content")

	s2, err := New(dir, 10)
	if err != nil {
		t.Fatal(err)
	}
	entries := s2.List(0)
	if len(entries) != 1 || entries[0].ID != e.ID {
		t.Fatalf("entries not persisted: %+v", entries)
	}
	got, err := s2.LoadContent(e.ID)
	if err != nil || got != "durable content" {
		t.Errorf("LoadContent after reopen: %q, %v", got, err)
	}
}

func TestBackcompatMissingPinnedField(t *testing.T) {
	dir := t.TempDir()
	raw := `{
  "max_entries": 100,
  "entries": [
    {
      "id": "01HZZZZZZZZZZZZZZZZZZZZZZZ",
      "timestamp": 1700000000000,
      "size": 5,
      "preview": "hello",
      "hash": "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
    }
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, indexFile), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := s.List(0)
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Pinned {
		t.Error("entry without pinned field should default to unpinned")
	}
}

func TestPreviewTruncatedInIndex(t *testing.T) {
	s := newTestStore(t, 10)

	long := strings.Repeat("x", 500)
	e := mustIngest(t, s, long)
	if len([]rune(e.Preview)) != store.MaxPreviewLen {
		t.Errorf("preview length %d, want %d", len([]rune(e.Preview)), store.MaxPreviewLen)
	}
	if e.Size != 500 {
		t.Errorf("size %d, want 500", e.Size)
	}
}
