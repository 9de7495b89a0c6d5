package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"n", "Random pick"},
		{"s", "Search"},
		{"r", "Related"},
		{"b", "Back"},
		{"f", "Save favorite"},
		{"p", "Play audio"},
		{"v", "Favorites"},
		{"l", "Language"},
		{"k", "Idioms/words"},
		{"1-9", "Open entry"},
		{"Ctrl+D", "Sign out"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Key Bindings")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How Browsing Works"),
		helperStyle.Render("• n picks a random item for the active language and kind; while browsing favorites it advances to the next saved one."),
		helperStyle.Render("• r lists related phrases from a detail view and retries after an error; b returns to the phrase you came from."),
		helperStyle.Render("• f saves or removes the shown phrase; v opens your saved list and 1-9 jumps into an entry."),
		helperStyle.Render("• p speaks the canonical example sentence; press it again to stop."),
		helperStyle.Render("• l cycles the language, k flips between idioms and words, Esc closes this panel."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}
