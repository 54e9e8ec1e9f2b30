package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipd/clipd/internal/clipboard/mockboard"
	"github.com/clipd/clipd/internal/logging"
	"github.com/clipd/clipd/internal/store/filestore"
)

func newTestDaemon(t *testing.T) (*Daemon, *filestore.Store, *mockboard.MockClipboard) {
	t.Helper()
	st, err := filestore.New(t.TempDir(), 10)
	require.NoError(t, err)
	board := mockboard.New()
	return New(st, board, 10*time.Millisecond), st, board
}

func TestPollIngestsClipboard(t *testing.T) {
	d, st, board := newTestDaemon(t)
	log := logging.ForComponent(logging.CompDaemon)

	board.SetData("copied text")
	d.poll(log)

	entries := st.List(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "copied text", entries[0].Preview)
}

func TestPollSkipsUnchangedContent(t *testing.T) {
	d, st, board := newTestDaemon(t)
	log := logging.ForComponent(logging.CompDaemon)

	board.SetData("stable")
	d.poll(log)
	require.Len(t, st.List(0), 1)

	// Remove the entry behind the daemon's back; an unchanged clipboard
	// must not bring it back.
	require.NoError(t, st.Delete(st.List(0)[0].ID))
	d.poll(log)
	assert.Empty(t, st.List(0))

	// A genuine change is picked up again.
	board.SetData("fresh")
	d.poll(log)
	assert.Len(t, st.List(0), 1)
}

func TestPollIngestsPrimarySelection(t *testing.T) {
	d, st, board := newTestDaemon(t)
	log := logging.ForComponent(logging.CompDaemon)

	board.SetPrimary("selected text")
	d.poll(log)

	entries := st.List(0)
	require.Len(t, entries, 1)
	assert.Equal(t, "selected text", entries[0].Preview)
}

func TestPollIgnoresEmptyAndErrors(t *testing.T) {
	d, st, board := newTestDaemon(t)
	log := logging.ForComponent(logging.CompDaemon)

	d.poll(log)
	assert.Empty(t, st.List(0))

	board.SetReadError(errors.New("no display"))
	d.poll(log)
	assert.Empty(t, st.List(0))
}

func TestRunStopsOnCancel(t *testing.T) {
	d, st, board := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	board.SetData("while running")
	assert.Eventually(t, func() bool {
		return len(st.List(0)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancel")
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	d, st, _ := newTestDaemon(t)

	held := flock.New(filepath.Join(st.Dir(), lockFile))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}
