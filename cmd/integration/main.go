// End-to-end check of the storage engine against a real directory:
// exercises ingest, dedup, pinning, eviction, crash cleanup and recovery
// the way the daemon and picker drive them. Exits non-zero on the first
// violated expectation.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/clipd/clipd/internal/store"
	"github.com/clipd/clipd/internal/store/filestore"
)

var failures int

func check(ok bool, format string, args ...any) {
	if ok {
		fmt.Printf("  ok: %s\n", fmt.Sprintf(format, args...))
		return
	}
	failures++
	fmt.Printf("  FAIL: %s\n", fmt.Sprintf(format, args...))
}

func main() {
	fmt.Println("clipd storage integration check")

	dir, err := os.MkdirTemp("", "clipd-check-*")
	if err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}
	defer os.RemoveAll(dir)

	st, err := filestore.New(dir, 3)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	fmt.Println("\nIngestion and dedup:")
	a, err := st.Ingest("alpha")
	check(err == nil && a != nil, "ingest returns an entry")
	dup, err := st.Ingest("alpha")
	check(err == nil && dup.ID == a.ID, "re-ingest reuses the entry")
	check(len(st.List(0)) == 1, "no duplicate entry created")

	fmt.Println("\nPinning and eviction:")
	if _, err := st.TogglePin(a.ID); err != nil {
		log.Fatalf("Pin failed: %v", err)
	}
	for _, content := range []string{"b", "c", "d", "e"} {
		if _, err := st.Ingest(content); err != nil {
			log.Fatalf("Ingest failed: %v", err)
		}
	}
	entries := st.List(0)
	unpinned := 0
	pinnedSurvived := false
	for _, e := range entries {
		if e.Pinned {
			pinnedSurvived = e.ID == a.ID
		} else {
			unpinned++
		}
	}
	check(unpinned <= 3, "non-pinned count within ceiling (%d)", unpinned)
	check(pinnedSurvived, "pinned entry survived eviction pressure")

	fmt.Println("\nCrash artifacts:")
	stale := filepath.Join(dir, "index.json.999.tmp")
	if err := os.WriteFile(stale, []byte("torn write"), 0644); err != nil {
		log.Fatalf("Write temp file: %v", err)
	}
	if _, err := filestore.New(dir, 3); err != nil {
		log.Fatalf("Reopen failed: %v", err)
	}
	_, statErr := os.Stat(stale)
	check(os.IsNotExist(statErr), "stale temp file removed at startup")

	fmt.Println("\nCorruption and recovery:")
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{"), 0644); err != nil {
		log.Fatalf("Corrupt index: %v", err)
	}
	broken, err := filestore.New(dir, 3)
	check(errors.Is(err, store.ErrCorruptIndex), "truncated index surfaces ErrCorruptIndex")
	_, err = broken.Ingest("blocked")
	check(errors.Is(err, store.ErrCorruptIndex), "mutations refused while corrupt")
	n, err := broken.Recover()
	check(err == nil && n > 0, "recover rebuilt %d entries", n)
	_, err = broken.Ingest("after recovery")
	check(err == nil, "store usable after recovery")

	if failures > 0 {
		fmt.Printf("\n%d check(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nAll checks passed")
}
