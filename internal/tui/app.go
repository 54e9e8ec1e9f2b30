// Package tui implements the interactive history picker: a filterable
// list of entries where Enter puts the selection back on the clipboard.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clipd/clipd/internal/clipboard"
	"github.com/clipd/clipd/internal/search"
	"github.com/clipd/clipd/internal/store"
)

// UIMode represents the current modal state of the picker
type UIMode int

const (
	NormalMode UIMode = iota
	SearchMode
	DeleteMode
)

// Store is the slice of the storage API the picker consumes.
type Store interface {
	List(limit int) []*store.Entry
	LoadContent(id string) (string, error)
	Delete(id string) error
	TogglePin(id string) (bool, error)
}

// searchResultsMsg delivers one finished search. Gen ties it to the query
// that started it; results from a superseded query are dropped.
type searchResultsMsg struct {
	Gen     int
	Results []search.Result
}

// contentLoadedMsg delivers one entry's full content for the preview
// pane.
type contentLoadedMsg struct {
	ID      string
	Content string
}

type flashExpiredMsg struct{}

// AppModel is the picker's single bubbletea model.
type AppModel struct {
	Width  int
	Height int

	CurrentMode UIMode
	Cursor      int

	Query   string
	Results []search.Result

	// SearchGen counts queries issued; stale async results carry an
	// older generation and are discarded on arrival.
	SearchGen    int
	cancelSearch context.CancelFunc

	FlashMessage string
	FlashExpiry  time.Time

	// contentCache holds lazily loaded full content for the preview
	// pane, keyed by entry id.
	contentCache map[string]string

	// Chosen is the entry accepted with Enter, set just before quitting.
	Chosen *store.Entry

	store Store
	board clipboard.Clipboard
}

// NewAppModel creates the picker over the given store and clipboard.
func NewAppModel(st Store, board clipboard.Clipboard) AppModel {
	m := AppModel{
		Width:        80,
		Height:       24,
		store:        st,
		board:        board,
		contentCache: make(map[string]string),
	}
	m.Results = allEntries(st)
	return m
}

func allEntries(st Store) []search.Result {
	entries := st.List(0)
	out := make([]search.Result, 0, len(entries))
	for _, e := range entries {
		out = append(out, search.Result{Entry: e, Kind: search.MatchPreview})
	}
	return out
}

// Init implements tea.Model
func (a *AppModel) Init() tea.Cmd {
	return a.loadSelected()
}

// Update implements tea.Model
func (a *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.Width = m.Width
		a.Height = m.Height
		return a, nil
	case tea.KeyMsg:
		return a.handleKeyPress(m)
	case searchResultsMsg:
		if m.Gen != a.SearchGen {
			// A newer query superseded this one.
			return a, nil
		}
		a.Results = m.Results
		a.clampCursor()
		return a, a.loadSelected()
	case contentLoadedMsg:
		a.contentCache[m.ID] = m.Content
		return a, nil
	case flashExpiredMsg:
		a.FlashMessage = ""
		a.FlashExpiry = time.Time{}
		return a, nil
	}
	return a, nil
}

// handleKeyPress routes keys by mode first, mirroring the modal state
// machine
func (a *AppModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch a.CurrentMode {
	case SearchMode:
		return a.handleSearchModeKeys(key)
	case DeleteMode:
		return a.handleDeleteModeKeys(key)
	default:
		return a.handleNormalModeKeys(key)
	}
}

func (a *AppModel) handleNormalModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q", "esc":
		return a, tea.Quit
	case "/":
		a.CurrentMode = SearchMode
		return a, nil
	case "enter":
		return a.acceptSelection()
	case "p":
		return a, a.togglePin()
	case "d":
		if len(a.Results) > 0 {
			a.CurrentMode = DeleteMode
		}
		return a, nil
	case "up", "k":
		a.moveCursor(-1)
		return a, a.loadSelected()
	case "down", "j":
		a.moveCursor(1)
		return a, a.loadSelected()
	case "g":
		a.Cursor = 0
		return a, a.loadSelected()
	case "G":
		a.Cursor = max(len(a.Results)-1, 0)
		return a, a.loadSelected()
	}
	return a, nil
}

func (a *AppModel) handleSearchModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		// Abandon the query and show the full history again.
		a.CurrentMode = NormalMode
		return a, a.setQuery("")
	case "enter":
		return a.acceptSelection()
	case "up", "ctrl+k":
		a.moveCursor(-1)
		return a, a.loadSelected()
	case "down", "ctrl+j":
		a.moveCursor(1)
		return a, a.loadSelected()
	case "backspace", "ctrl+h":
		if len(a.Query) > 0 {
			q := []rune(a.Query)
			return a, a.setQuery(string(q[:len(q)-1]))
		}
		return a, nil
	default:
		if len(key) == 1 && key[0] >= 32 && key[0] <= 126 {
			return a, a.setQuery(a.Query + key)
		}
		return a, nil
	}
}

func (a *AppModel) handleDeleteModeKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c":
		return a, tea.Quit
	case "y", "Y":
		a.CurrentMode = NormalMode
		return a, a.deleteSelected()
	case "n", "N", "esc":
		a.CurrentMode = NormalMode
		return a, nil
	default:
		return a, nil
	}
}

// setQuery records a new query and kicks off an asynchronous search for
// it, canceling whatever search is still running for the previous one.
func (a *AppModel) setQuery(query string) tea.Cmd {
	a.Query = query
	a.SearchGen++
	gen := a.SearchGen

	if a.cancelSearch != nil {
		a.cancelSearch()
		a.cancelSearch = nil
	}

	if query == "" {
		a.Results = allEntries(a.store)
		a.clampCursor()
		return a.loadSelected()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancelSearch = cancel
	entries := a.store.List(0)
	st := a.store

	return func() tea.Msg {
		results, err := search.Run(ctx, query, entries, st)
		if err != nil {
			// Canceled: a newer query owns the display now.
			return nil
		}
		return searchResultsMsg{Gen: gen, Results: results}
	}
}

func (a *AppModel) moveCursor(delta int) {
	a.Cursor += delta
	a.clampCursor()
}

func (a *AppModel) clampCursor() {
	if a.Cursor > len(a.Results)-1 {
		a.Cursor = len(a.Results) - 1
	}
	if a.Cursor < 0 {
		a.Cursor = 0
	}
}

// loadSelected lazily fetches the selected entry's full content for the
// preview pane. Cached content is not re-read.
func (a *AppModel) loadSelected() tea.Cmd {
	entry := a.selected()
	if entry == nil {
		return nil
	}
	if _, ok := a.contentCache[entry.ID]; ok {
		return nil
	}
	id := entry.ID
	st := a.store
	return func() tea.Msg {
		content, err := st.LoadContent(id)
		if err != nil {
			content = fmt.Sprintf("(content unavailable: %v)", err)
		}
		return contentLoadedMsg{ID: id, Content: content}
	}
}

func (a *AppModel) selected() *store.Entry {
	if a.Cursor >= len(a.Results) {
		return nil
	}
	return a.Results[a.Cursor].Entry
}

// acceptSelection copies the selected entry's full content to the
// clipboard and quits.
func (a *AppModel) acceptSelection() (tea.Model, tea.Cmd) {
	entry := a.selected()
	if entry == nil {
		return a, a.setFlashMessage("Nothing selected", 2*time.Second)
	}

	content, err := a.store.LoadContent(entry.ID)
	if err != nil {
		return a, a.setFlashMessage(fmt.Sprintf("Error reading content: %v", err), 2*time.Second)
	}
	if a.board != nil {
		if err := a.board.Write(content); err != nil {
			return a, a.setFlashMessage(fmt.Sprintf("Error copying: %v", err), 2*time.Second)
		}
	}
	a.Chosen = entry
	return a, tea.Quit
}

func (a *AppModel) togglePin() tea.Cmd {
	entry := a.selected()
	if entry == nil {
		return nil
	}
	pinned, err := a.store.TogglePin(entry.ID)
	if err != nil {
		return a.setFlashMessage(fmt.Sprintf("Pin failed: %v", err), 2*time.Second)
	}
	entry.Pinned = pinned
	if pinned {
		return a.setFlashMessage("Pinned", 2*time.Second)
	}
	return a.setFlashMessage("Unpinned", 2*time.Second)
}

func (a *AppModel) deleteSelected() tea.Cmd {
	entry := a.selected()
	if entry == nil {
		return nil
	}
	if err := a.store.Delete(entry.ID); err != nil {
		return a.setFlashMessage(fmt.Sprintf("Delete failed: %v", err), 2*time.Second)
	}

	a.Results = append(a.Results[:a.Cursor], a.Results[a.Cursor+1:]...)
	a.clampCursor()
	delete(a.contentCache, entry.ID)
	return tea.Batch(
		a.setFlashMessage("Entry deleted", 2*time.Second),
		a.loadSelected(),
	)
}

// setFlashMessage sets a status-line message that disappears after the
// given duration
func (a *AppModel) setFlashMessage(message string, duration time.Duration) tea.Cmd {
	a.FlashMessage = message
	a.FlashExpiry = time.Now().Add(duration)
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return flashExpiredMsg{}
	})
}

// Run launches the picker and blocks until it exits. It returns the
// accepted entry, or nil if the picker was dismissed.
func Run(st Store, board clipboard.Clipboard) (*store.Entry, error) {
	model := NewAppModel(st, board)
	p := tea.NewProgram(&model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}
	if m, ok := final.(*AppModel); ok {
		return m.Chosen, nil
	}
	return nil, nil
}
