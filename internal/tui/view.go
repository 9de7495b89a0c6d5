package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *model) View() string {
	switch m.stage {
	case stageLogin:
		return m.viewLogin()
	case stageSearch:
		return m.viewSearch()
	case stageBrowse:
		return m.viewBrowse()
	default:
		return ""
	}
}

func (m *model) viewLogin() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Sign In"))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Unknown names are registered on the spot."))
	b.WriteRune('\n')
	b.WriteRune('\n')
	b.WriteString(m.nameInput.View())
	b.WriteRune('\n')
	b.WriteString(m.passwordInput.View())

	parts := []string{m.heroView(), b.String()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	parts = append(parts, helperStyle.Render("Tab switches fields • Enter signs in • Ctrl+C quits"))
	return joinNonEmpty(parts)
}

func (m *model) viewSearch() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Search All Languages"))
	b.WriteRune('\n')
	b.WriteString(m.searchInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press Enter to search, Esc to cancel."))
	return joinNonEmpty([]string{m.heroView(), b.String(), m.statusBarView()})
}

func (m *model) viewBrowse() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.viewport.View()}
	if notices := m.noticeLines(); notices != "" {
		parts = append(parts, notices)
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	}
	parts = append(parts, m.statusBarView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		heroTitleStyle.Render("IDIOM MASTER"),
		taglineStyle.Render(heroTagline),
	)
}

func (m *model) statusBarView() string {
	if m.sess == nil {
		return ""
	}
	stats := []string{
		fmt.Sprintf("User %s", m.user.Name),
		fmt.Sprintf("Language %s", m.sess.Language()),
		fmt.Sprintf("Kind %s", m.sess.Kind().Label()),
	}
	if pos, size := m.sess.BrowsePosition(); size > 0 {
		stats = append(stats, fmt.Sprintf("Favorite %d/%d", pos, size))
	}
	if m.sess.View().IsPlaying() {
		stats = append(stats, "Playing ♪")
	}
	stats = append(stats, "? help")
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) noticeLines() string {
	if m.sess == nil {
		return ""
	}
	notices := m.sess.Notices()
	if len(notices) == 0 {
		return ""
	}
	lines := make([]string, 0, len(notices))
	for _, n := range notices {
		lines = append(lines, noticeStyle.Render(n.Text))
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
