// Package daemon implements the background clipboard monitor. It polls
// the system clipboard (and the primary selection where one exists) and
// ingests anything new into the store. A file lock keeps at most one
// monitor per storage directory so two instances never race on eviction.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/clipd/clipd/internal/clipboard"
	"github.com/clipd/clipd/internal/logging"
	"github.com/clipd/clipd/internal/store"
	"github.com/clipd/clipd/internal/store/filestore"
)

const lockFile = "daemon.lock"

// ErrAlreadyRunning indicates another monitor holds the lock for this
// storage directory.
var ErrAlreadyRunning = errors.New("daemon already running for this storage directory")

// Daemon polls clipboard sources and ingests new content.
type Daemon struct {
	store    *filestore.Store
	board    clipboard.Clipboard
	interval time.Duration

	// last ingested content hash per source, so an unchanged clipboard
	// is not re-ingested every tick
	lastClip    string
	lastPrimary string
}

// New creates a monitor over the given store and clipboard, polling at
// the given interval.
func New(st *filestore.Store, board clipboard.Clipboard, interval time.Duration) *Daemon {
	return &Daemon{
		store:    st,
		board:    board,
		interval: interval,
	}
}

// Run acquires the single-instance lock and polls until ctx is canceled.
// It returns ErrAlreadyRunning without polling if another instance holds
// the lock.
func (d *Daemon) Run(ctx context.Context) error {
	log := logging.ForComponent(logging.CompDaemon)

	lock := flock.New(filepath.Join(d.store.Dir(), lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer lock.Unlock()

	log.Info("monitoring clipboard",
		"dir", d.store.Dir(),
		"interval", d.interval.String())

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping")
			return ctx.Err()
		case <-ticker.C:
			d.poll(log)
		}
	}
}

// poll samples both clipboard sources once.
func (d *Daemon) poll(log *slog.Logger) {
	if text, err := d.board.Read(); err == nil {
		d.maybeIngest(log, text, &d.lastClip, "clipboard")
	} else {
		log.Debug("clipboard read failed", "error", err)
	}

	text, err := d.board.ReadPrimary()
	switch {
	case err == nil:
		d.maybeIngest(log, text, &d.lastPrimary, "primary")
	case errors.Is(err, clipboard.ErrNoPrimary):
		// No primary selection on this platform.
	default:
		log.Debug("primary read failed", "error", err)
	}
}

// maybeIngest stores text if it differs from the source's last seen
// content. last holds the content hash, not the content, so a large
// clipboard does not sit in memory between ticks.
func (d *Daemon) maybeIngest(log *slog.Logger, text string, last *string, source string) {
	if text == "" {
		return
	}
	hash := store.HashContent(text)
	if hash == *last {
		return
	}

	entry, err := d.store.Ingest(text)
	if err != nil {
		log.Warn("ingest failed", "source", source, "error", err)
		return
	}
	*last = hash
	if entry != nil {
		log.Debug("captured", "source", source, "id", entry.ID, "size", entry.Size)
	}
}
