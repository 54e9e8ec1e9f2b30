package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/clipd/clipd/internal/store"
)

// Recover rebuilds the index from whatever survives in the storage
// directory. It salvages any parseable index entries, then adopts every
// content blob not already indexed, recomputing hash, preview and size
// from the bytes on disk and deriving the timestamp from the blob's id.
// Duplicate hashes collapse to a single entry, preferring a pinned one,
// then the newest. The rebuilt index is written out before returning.
//
// Recover is the only operation permitted on a store whose index failed
// to parse. It returns the number of entries in the rebuilt index.
func (s *Store) Recover() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salvaged := s.salvageIndexEntries()

	indexed := make(map[string]bool, len(salvaged))
	for _, e := range salvaged {
		indexed[e.ID] = true
	}

	names, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	entries := salvaged
	for _, de := range names {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, contentExt) {
			continue
		}
		id := strings.TrimSuffix(name, contentExt)
		if indexed[id] {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil || len(data) == 0 {
			continue
		}
		content := string(data)

		var ts int64
		if uid, err := ulid.ParseStrict(id); err == nil {
			ts = int64(uid.Time())
		}

		entries = append(entries, &store.Entry{
			ID:        id,
			Timestamp: ts,
			Size:      int64(len(data)),
			Preview:   store.BuildPreview(content),
			Hash:      store.HashContent(content),
		})
	}

	all := entries
	entries = dedupByHash(entries)

	// Blobs that lost the dedup would be re-adopted by the next repair
	// pass, so drop them now.
	kept := make(map[string]bool, len(entries))
	for _, e := range entries {
		kept[e.ID] = true
	}
	for _, e := range all {
		if !kept[e.ID] {
			os.Remove(s.contentPath(e.ID))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	s.index = &store.Index{MaxEntries: s.maxEntries, Entries: entries}
	if err := s.saveLocked(); err != nil {
		return 0, err
	}
	s.corrupt = false

	storeLog.Info("rebuilt index", "entries", len(entries))
	return len(entries), nil
}

// salvageIndexEntries extracts whatever entries the on-disk index still
// yields, verifying each one's blob exists. A wholly unparsable file
// yields nothing; recovery proceeds from the blobs alone.
func (s *Store) salvageIndexEntries() []*store.Entry {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return nil
	}
	var idx store.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil
	}

	var out []*store.Entry
	for _, e := range idx.Entries {
		if e == nil || e.ID == "" {
			continue
		}
		if _, err := os.Stat(s.contentPath(e.ID)); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// dedupByHash collapses entries sharing a content hash: a pinned entry
// beats an unpinned one, otherwise the newer timestamp wins.
func dedupByHash(entries []*store.Entry) []*store.Entry {
	best := make(map[string]*store.Entry, len(entries))
	for _, e := range entries {
		cur, ok := best[e.Hash]
		if !ok {
			best[e.Hash] = e
			continue
		}
		if e.Pinned != cur.Pinned {
			if e.Pinned {
				best[e.Hash] = e
			}
			continue
		}
		if e.Timestamp > cur.Timestamp {
			best[e.Hash] = e
		}
	}

	out := make([]*store.Entry, 0, len(best))
	seen := make(map[string]bool, len(best))
	for _, e := range entries {
		winner := best[e.Hash]
		if !seen[e.Hash] {
			seen[e.Hash] = true
			out = append(out, winner)
		}
	}
	return out
}
