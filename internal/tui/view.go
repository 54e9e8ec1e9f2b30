package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/clipd/clipd/internal/search"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12"))

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	contentMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("13"))

	flashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder())
)

// View implements tea.Model
func (a *AppModel) View() string {
	if a.Width == 0 {
		return "Initializing..."
	}

	listWidth := a.Width / 2
	if listWidth < 20 {
		listWidth = 20
	}
	previewWidth := a.Width - listWidth - 4
	paneHeight := a.Height - 4
	if paneHeight < 3 {
		paneHeight = 3
	}

	header := titleStyle.Render("clipd") + " " +
		metaStyle.Render(fmt.Sprintf("%d entries", len(a.Results)))

	list := a.renderList(listWidth-2, paneHeight)
	preview := a.renderPreview(previewWidth, paneHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(listWidth).Height(paneHeight).Render(list),
		paneStyle.Width(previewWidth+2).Height(paneHeight).Render(preview),
	)

	return header + "\n" + body + "\n" + a.renderStatusLine()
}

// renderList renders the entry rows, scrolled so the cursor stays on
// screen.
func (a *AppModel) renderList(width, height int) string {
	if len(a.Results) == 0 {
		return metaStyle.Render("  (history is empty)")
	}

	top := 0
	if a.Cursor >= height {
		top = a.Cursor - height + 1
	}

	var b strings.Builder
	for i := top; i < len(a.Results) && i < top+height; i++ {
		if i > top {
			b.WriteString("\n")
		}
		b.WriteString(a.renderRow(a.Results[i], width, i == a.Cursor))
	}
	return b.String()
}

// renderRow renders one entry line: pin marker, preview text, match
// marker and metadata, truncated to the pane width.
func (a *AppModel) renderRow(r search.Result, width int, selected bool) string {
	marker := "  "
	if r.Entry.Pinned {
		marker = pinStyle.Render("* ")
	}
	if selected {
		marker = "> "
	}

	meta := fmt.Sprintf(" %s %s",
		FormatSize(r.Entry.Size),
		FormatRelativeTime(r.Entry.Timestamp))

	contentMark := ""
	if r.Kind == search.MatchContent {
		contentMark = " [content]"
	}

	budget := width - 2 - len(meta) - len(contentMark)
	if budget < 4 {
		budget = 4
	}
	preview := r.Entry.Preview
	if runes := []rune(preview); len(runes) > budget {
		preview = string(runes[:budget-1]) + "…"
	}

	if selected {
		return selectedStyle.Render(marker+preview) + contentMarkStyle.Render(contentMark) + metaStyle.Render(meta)
	}
	return marker + preview + contentMarkStyle.Render(contentMark) + metaStyle.Render(meta)
}

// renderPreview renders the selected entry's full content, lazily loaded
// and clipped to the pane.
func (a *AppModel) renderPreview(width, height int) string {
	entry := a.selected()
	if entry == nil {
		return metaStyle.Render("(nothing selected)")
	}

	content, ok := a.contentCache[entry.ID]
	if !ok {
		return metaStyle.Render("(loading...)")
	}

	lines := wrapLines(content, width)
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// wrapLines hard-wraps content to the given width, splitting on existing
// newlines first.
func wrapLines(content string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, line := range strings.Split(content, "\n") {
		runes := []rune(line)
		if len(runes) == 0 {
			out = append(out, "")
			continue
		}
		for len(runes) > 0 {
			n := len(runes)
			if n > width {
				n = width
			}
			out = append(out, string(runes[:n]))
			runes = runes[n:]
		}
	}
	return out
}

// renderStatusLine renders the bottom status line
func (a *AppModel) renderStatusLine() string {
	if a.FlashMessage != "" && time.Now().Before(a.FlashExpiry) {
		return flashStyle.Width(a.Width).Render(a.FlashMessage)
	}

	var status string
	switch a.CurrentMode {
	case SearchMode:
		status = fmt.Sprintf("/%s (Enter to copy, Esc to clear)", a.Query)
	case DeleteMode:
		status = "Delete selected entry? (y/n)"
	default:
		if a.Query != "" {
			status = fmt.Sprintf("Filter: %s | Enter copy, / search, p pin, d delete, q quit", a.Query)
		} else {
			status = "Enter copy, / search, p pin, d delete, q quit"
		}
	}
	return lipgloss.NewStyle().Width(a.Width).Render(status)
}
