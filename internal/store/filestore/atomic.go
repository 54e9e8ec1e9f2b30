package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tmpSuffix marks in-flight writes. Any file carrying it is transient and
// never authoritative; leftovers are swept at startup.
const tmpSuffix = ".tmp"

// writeFileAtomic writes data so that the final path only ever holds a
// complete file: write to a uniquely named temp file in the same directory,
// flush it to disk, rename over the final path, then flush the directory.
// A crash before the rename leaves the prior file untouched; the rename
// itself either fully completes or fully fails.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s.%d%s", path, time.Now().UnixNano(), tmpSuffix)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", filepath.Base(tmpPath), err)
	}

	// Flush the directory so the rename itself is durable. Best-effort:
	// some filesystems reject fsync on directories.
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}

	return nil
}

// cleanupTempFiles removes every temp file in dir. Run once at startup;
// anything with the temp suffix is stale evidence of an interrupted write.
func cleanupTempFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read storage dir: %w", err)
	}
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), tmpSuffix) {
			continue
		}
		os.Remove(filepath.Join(dir, ent.Name()))
	}
	return nil
}
