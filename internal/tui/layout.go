package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/phrase"
	"github.com/chirag6451/idiom-master/internal/session"
)

func (m *model) markViewportDirty() { m.viewportDirty = true }

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	kind := session.KindIdle
	if m.sess != nil {
		kind = m.sess.View().Kind()
	}
	m.viewport.SetContent(m.buildContent())
	if kind != m.lastKind {
		m.viewport.GotoTop()
		m.lastKind = kind
	}
	m.viewportDirty = false
}

func (m *model) buildContent() string {
	if m.sess == nil {
		return ""
	}
	v := m.sess.View()
	switch v.Kind() {
	case session.KindIdle:
		return m.buildIdleContent()
	case session.KindLoading:
		return helperStyle.Render(fmt.Sprintf("%s Fetching the explanation…", m.spinner.View()))
	case session.KindError:
		return m.buildErrorContent(v)
	case session.KindDetail:
		return m.buildDetailContent(v)
	case session.KindSearchResults:
		return m.buildSearchContent(v)
	case session.KindRelatedResults:
		return m.buildRelatedContent(v)
	case session.KindFavoritesList:
		return m.buildFavoritesContent(v)
	default:
		return ""
	}
}

func (m *model) buildIdleContent() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Pick Something to Study"))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press n for a random pick, s to search every language, v for your favorites."))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("l cycles the language, k flips between idioms and words."))
	b.WriteRune('\n')
	return b.String()
}

func (m *model) buildErrorContent(v session.View) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render(wordwrap.String(v.ErrorMessage(), m.wrapWidth(0))))
	b.WriteRune('\n')
	if failed := v.FailedItem(); failed.Text != "" {
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render(fmt.Sprintf("While loading %q (%s %s).", failed.Text, failed.Language, strings.ToLower(failed.Kind.Label()))))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press r to retry, n for a different pick."))
	b.WriteRune('\n')
	return b.String()
}

func (m *model) buildDetailContent(v session.View) string {
	var b strings.Builder
	item := v.Item()
	wrap := m.wrapWidth(4)

	b.WriteString(titleStyle.Render(item.Text))
	b.WriteRune('\n')
	meta := fmt.Sprintf("%s %s", item.Language, strings.ToLower(item.Kind.Label()))
	if v.IsFavorite() {
		meta += "  ♥ saved"
	}
	if v.IsPlaying() {
		meta += "  ♪ playing"
	}
	b.WriteString(subtitleStyle.Render(meta))
	b.WriteRune('\n')

	detail := v.Detail()
	b.WriteRune('\n')
	b.WriteString(sectionHeaderStyle.Render("Meaning"))
	b.WriteRune('\n')
	b.WriteString(indentMultiline(wordwrap.String(detail.Meaning, wrap), "  "))
	b.WriteRune('\n')

	if strings.TrimSpace(detail.Background) != "" {
		b.WriteRune('\n')
		b.WriteString(sectionHeaderStyle.Render("Background"))
		b.WriteRune('\n')
		b.WriteString(indentMultiline(wordwrap.String(detail.Background, wrap), "  "))
		b.WriteRune('\n')
	}

	if len(detail.Examples) > 0 {
		b.WriteRune('\n')
		b.WriteString(sectionHeaderStyle.Render("Examples"))
		b.WriteRune('\n')
		for _, example := range detail.Examples {
			b.WriteString(" • ")
			b.WriteString(wordwrap.String(example, wrap))
			b.WriteRune('\n')
		}
	}

	b.WriteRune('\n')
	b.WriteString(sectionHeaderStyle.Render("In Other Languages"))
	b.WriteRune('\n')
	if v.EquivalentsLoading() {
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s Looking up equivalents…", m.spinner.View())))
		b.WriteRune('\n')
	} else {
		m.writeEquivalents(&b, item, v.Equivalents())
	}
	return b.String()
}

// writeEquivalents lists every configured language except the item's own,
// with the known phrase or a placeholder.
func (m *model) writeEquivalents(b *strings.Builder, item phrase.Item, eq phrase.Equivalents) {
	targets := 0
	for _, lang := range m.config.Catalog.Languages() {
		if strings.EqualFold(lang.Tag, item.Language) {
			continue
		}
		targets++
		if text, ok := lookupEquivalent(eq, lang.Tag); ok {
			b.WriteString(fmt.Sprintf("  %s: %s", lang.Tag, text))
		} else {
			b.WriteString(helperStyle.Render(fmt.Sprintf("  %s: none recorded", lang.Tag)))
		}
		b.WriteRune('\n')
	}
	if targets == 0 {
		b.WriteString(helperStyle.Render("  No other languages configured."))
		b.WriteRune('\n')
	}
}

func lookupEquivalent(eq phrase.Equivalents, tag string) (string, bool) {
	for key, text := range eq {
		if strings.EqualFold(key, tag) && strings.TrimSpace(text) != "" {
			return text, true
		}
	}
	return "", false
}

func (m *model) buildSearchContent(v session.View) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Search Results for %q", v.Query())))
	b.WriteRune('\n')
	switch {
	case v.SearchLoading():
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s Searching every configured language…", m.spinner.View())))
		b.WriteRune('\n')
	case v.SearchError() != "":
		b.WriteString(errorStyle.Render(wordwrap.String(v.SearchError(), m.wrapWidth(0))))
		b.WriteRune('\n')
	case len(v.Results()) == 0:
		b.WriteString(helperStyle.Render("Nothing matched in the supported languages."))
		b.WriteRune('\n')
	default:
		writeItemList(&b, v.Results())
	}
	return b.String()
}

func (m *model) buildRelatedContent(v session.View) string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Related to %q", v.Origin().Text)))
	b.WriteRune('\n')
	switch {
	case v.RelatedLoading():
		b.WriteString(helperStyle.Render(fmt.Sprintf("%s Collecting related phrases…", m.spinner.View())))
		b.WriteRune('\n')
	case v.RelatedError() != "":
		b.WriteString(errorStyle.Render(wordwrap.String(v.RelatedError(), m.wrapWidth(0))))
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render("Press b to go back."))
		b.WriteRune('\n')
	case len(v.Related()) == 0:
		b.WriteString(helperStyle.Render("No related phrases in the supported languages. Press b to go back."))
		b.WriteRune('\n')
	default:
		writeItemList(&b, v.Related())
	}
	return b.String()
}

func (m *model) buildFavoritesContent(v session.View) string {
	var b strings.Builder
	favs := v.Favorites()
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Favorites (%d of %d)", len(favs), favorites.Cap)))
	b.WriteRune('\n')
	for i, fav := range favs {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, fav.Text))
		b.WriteRune('\n')
		line := fmt.Sprintf("   %s %s • saved %s", fav.Language, strings.ToLower(fav.Kind.Label()), fav.SavedAt.Local().Format("Jan 2 15:04"))
		if !fav.Audio.Empty() {
			line += " • audio"
		}
		b.WriteString(helperStyle.Render(line))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press 1-9 to open an entry; n then browses onward."))
	b.WriteRune('\n')
	return b.String()
}

func writeItemList(b *strings.Builder, items []phrase.Item) {
	for i, item := range items {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, item.Text))
		b.WriteRune('\n')
		b.WriteString(helperStyle.Render(fmt.Sprintf("   %s %s", item.Language, strings.ToLower(item.Kind.Label()))))
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press 1-9 to open an entry."))
	b.WriteRune('\n')
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}
