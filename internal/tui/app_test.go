package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipd/clipd/internal/clipboard/mockboard"
	"github.com/clipd/clipd/internal/search"
	"github.com/clipd/clipd/internal/store/filestore"
)

func newTestModel(t *testing.T, contents ...string) (*AppModel, *filestore.Store, *mockboard.MockClipboard) {
	t.Helper()
	st, err := filestore.New(t.TempDir(), 50)
	require.NoError(t, err)
	for _, c := range contents {
		_, err := st.Ingest(c)
		require.NoError(t, err)
	}
	board := mockboard.New()
	m := NewAppModel(st, board)
	return &m, st, board
}

func press(m *AppModel, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func typeQuery(m *AppModel, query string) {
	for _, r := range query {
		cmd := press(m, string(r))
		// Run the async search synchronously and feed the result back,
		// the way the bubbletea runtime would.
		if cmd != nil {
			if msg := cmd(); msg != nil {
				m.Update(msg)
			}
		}
	}
}

func TestInitialListShowsAllEntries(t *testing.T) {
	m, _, _ := newTestModel(t, "one", "two", "three")

	require.Len(t, m.Results, 3)
	assert.Equal(t, "three", m.Results[0].Entry.Preview)
	assert.Equal(t, 0, m.Cursor)
}

func TestNavigationBounds(t *testing.T) {
	m, _, _ := newTestModel(t, "one", "two")

	press(m, "k")
	assert.Equal(t, 0, m.Cursor, "cursor must not go above the top")

	press(m, "j")
	assert.Equal(t, 1, m.Cursor)
	press(m, "j")
	assert.Equal(t, 1, m.Cursor, "cursor must not go past the end")

	press(m, "g")
	assert.Equal(t, 0, m.Cursor)
	press(m, "G")
	assert.Equal(t, 1, m.Cursor)
}

func TestEnterCopiesSelectionAndQuits(t *testing.T) {
	m, _, board := newTestModel(t, "older entry", "newest entry")

	cmd := press(m, "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	require.NotNil(t, m.Chosen)
	assert.Equal(t, "newest entry", m.Chosen.Preview)
	assert.Equal(t, "newest entry", board.GetData())
}

func TestSearchFiltersList(t *testing.T) {
	m, _, _ := newTestModel(t, "deploy script", "grocery list", "deploy notes")

	press(m, "/")
	assert.Equal(t, SearchMode, m.CurrentMode)

	typeQuery(m, "deploy")
	require.Len(t, m.Results, 2)
	for _, r := range m.Results {
		assert.Contains(t, r.Entry.Preview, "deploy")
	}
}

func TestSearchEscRestoresFullList(t *testing.T) {
	m, _, _ := newTestModel(t, "alpha", "beta")

	press(m, "/")
	typeQuery(m, "alpha")
	require.Len(t, m.Results, 1)

	press(m, "esc")
	assert.Equal(t, NormalMode, m.CurrentMode)
	assert.Empty(t, m.Query)
	assert.Len(t, m.Results, 2)
}

func TestStaleSearchResultsDropped(t *testing.T) {
	m, _, _ := newTestModel(t, "alpha", "beta")

	press(m, "/")
	typeQuery(m, "alpha")
	staleGen := m.SearchGen

	typeQuery(m, "x") // query is now "alphax", a newer generation

	// A late result from the old query must not replace the display.
	m.Update(searchResultsMsg{Gen: staleGen, Results: []search.Result{}})
	assert.Equal(t, staleGen+1, m.SearchGen)
	// "alphax" matched nothing; the stale empty set for "alpha" was
	// dropped rather than merged.
	assert.Empty(t, m.Results)

	press(m, "backspace")
	// Back to "alpha".
	if cmd := m.setQuery("alpha"); cmd != nil {
		if msg := cmd(); msg != nil {
			m.Update(msg)
		}
	}
	assert.Len(t, m.Results, 1)
}

func TestTogglePinFromPicker(t *testing.T) {
	m, st, _ := newTestModel(t, "pin me")

	press(m, "p")
	assert.True(t, m.Results[0].Entry.Pinned)
	assert.True(t, st.List(0)[0].Pinned)

	press(m, "p")
	assert.False(t, st.List(0)[0].Pinned)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, st, _ := newTestModel(t, "keep", "doomed")

	press(m, "d")
	assert.Equal(t, DeleteMode, m.CurrentMode)

	press(m, "n")
	assert.Equal(t, NormalMode, m.CurrentMode)
	assert.Len(t, st.List(0), 2, "declined delete must not remove anything")

	press(m, "d")
	press(m, "y")
	assert.Equal(t, NormalMode, m.CurrentMode)
	require.Len(t, st.List(0), 1)
	assert.Equal(t, "keep", st.List(0)[0].Preview)
	assert.Len(t, m.Results, 1)
}

func TestFlashMessageLifecycle(t *testing.T) {
	m, _, _ := newTestModel(t, "entry")

	m.setFlashMessage("saved", 50*time.Millisecond)
	assert.Equal(t, "saved", m.FlashMessage)

	m.Update(flashExpiredMsg{})
	assert.Empty(t, m.FlashMessage)
}

func TestPreviewPaneLoadsLazily(t *testing.T) {
	m, _, _ := newTestModel(t, "short preview but a much longer body")
	m.Width = 80
	m.Height = 24

	assert.Contains(t, m.View(), "(loading...)")

	cmd := m.Init()
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Contains(t, m.View(), "short preview but a much longer")

	// Cached content is not fetched again.
	assert.Nil(t, m.loadSelected())
}

func TestPreviewPaneFollowsCursor(t *testing.T) {
	m, _, _ := newTestModel(t, "first body", "second body")
	m.Width = 80
	m.Height = 24

	if cmd := m.Init(); cmd != nil {
		m.Update(cmd())
	}
	if cmd := press(m, "j"); cmd != nil {
		if msg := cmd(); msg != nil {
			m.Update(msg)
		}
	}
	assert.Contains(t, m.View(), "first body")
}

func TestViewRendersWithoutPanic(t *testing.T) {
	m, _, _ := newTestModel(t, "an entry with a preview")
	m.Width = 80
	m.Height = 24

	out := m.View()
	assert.Contains(t, out, "an entry with a preview")
	assert.Contains(t, out, "clipd")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", FormatSize(512))
	assert.Equal(t, "1.5KB", FormatSize(1536))
	assert.Equal(t, "2.0MB", FormatSize(2*1024*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now().UnixMilli()
	assert.Equal(t, "5s ago", FormatRelativeTime(now-5_000))
	assert.Equal(t, "5m ago", FormatRelativeTime(now-5*60_000))
	assert.Equal(t, "2h ago", FormatRelativeTime(now-2*3_600_000))
	assert.Equal(t, "3d ago", FormatRelativeTime(now-3*86_400_000))
}
