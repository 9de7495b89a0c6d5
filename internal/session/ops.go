package session

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chirag6451/idiom-master/internal/catalog"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// SelectRandom picks a random catalog item for the current selectors and
// loads it. An empty catalog slice surfaces as a notice and leaves the view
// untouched.
func (m *Model) SelectRandom() tea.Cmd {
	item, err := m.deps.Catalog.Random(m.language, m.kind)
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyCatalog) {
			m.pushNotice(fmt.Sprintf("No %s entries for %s in the catalog.", m.kind, m.language))
			return nil
		}
		m.pushNotice(err.Error())
		return nil
	}
	return m.startSelect(item, false)
}

// Select loads an explicitly named item. Selecting the item already on
// screen re-fetches a fresh explanation rather than being a no-op.
func (m *Model) Select(item phrase.Item) tea.Cmd {
	return m.startSelect(item, false)
}

func (m *Model) startSelect(item phrase.Item, browsing bool) tea.Cmd {
	m.stopPlayback()
	m.cancelContent()
	m.backOrigin = nil
	m.favBrowse = browsing
	if !browsing {
		m.favRing = nil
		m.favCursor = 0
	}
	m.view = loadingView()
	return m.fetchDetailCmd(m.current(slotPrimary), item)
}

// Search runs a free-text lookup across every configured language. A query
// that is empty after trimming is a no-op: no gateway call, view unchanged.
func (m *Model) Search(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	m.stopPlayback()
	m.cancelContent()
	m.backOrigin = nil
	m.favBrowse = false
	m.favRing = nil
	m.favCursor = 0
	m.view = searchView(query)
	return m.fetchSearchCmd(m.current(slotSearch), query)
}

// ShowRelated lists phrases related to the current detail item. The origin
// is remembered outside the view so Back still works after a failure.
func (m *Model) ShowRelated() tea.Cmd {
	if m.view.kind != KindDetail {
		m.deps.Log.Debugf("session: related requested outside detail view (%s)", m.view.kind)
		return nil
	}
	origin := m.view.item
	m.stopPlayback()
	m.cancelContent()
	m.backOrigin = &origin
	m.view = relatedView(origin)
	return m.fetchRelatedCmd(m.current(slotRelated), origin)
}

// Back re-selects the remembered related-view origin. Without one it is a
// silent no-op.
func (m *Model) Back() tea.Cmd {
	if m.backOrigin == nil {
		return nil
	}
	origin := *m.backOrigin
	m.backOrigin = nil
	return m.startSelect(origin, m.favBrowse)
}

// Retry re-fetches the item whose load produced the current error view.
func (m *Model) Retry() tea.Cmd {
	if m.view.kind != KindError {
		return nil
	}
	return m.startSelect(m.view.failed, m.favBrowse)
}

// ToggleFavorite saves or removes the current detail item. Outside the
// detail view, or while a previous toggle is still in flight, it is a no-op.
func (m *Model) ToggleFavorite() tea.Cmd {
	if m.view.kind != KindDetail {
		m.deps.Log.Debugf("session: favorite toggle outside detail view (%s)", m.view.kind)
		return nil
	}
	if m.favBusy {
		m.deps.Log.Debug("session: favorite toggle already in flight")
		return nil
	}
	item := m.view.item
	key := m.keyFor(item)
	m.favBusy = true
	if _, saved := m.favIndex[key]; saved {
		return m.removeFavoriteCmd(key)
	}
	return m.saveFavoriteCmd(item, m.view.detail)
}

// PlayStop toggles speech playback for the current detail item. Starting a
// new clip always releases the previous handle first.
func (m *Model) PlayStop() tea.Cmd {
	if m.view.kind != KindDetail {
		return nil
	}
	if m.playing != nil {
		m.stopPlayback()
		return nil
	}
	item := m.view.item
	gen := m.bump(slotAudio)
	var ref *phrase.AudioRef
	if fav, ok := m.savedCopy(item); ok {
		ref = fav.Audio
	}
	return m.fetchAudioCmd(gen, item, m.view.detail, ref)
}

// ShowFavorites loads the saved list and enters favorites browsing. An empty
// list falls back to a fresh random pick.
func (m *Model) ShowFavorites() tea.Cmd {
	m.stopPlayback()
	m.cancelContent()
	m.backOrigin = nil
	return m.loadFavoritesCmd(m.current(slotFavorites), true)
}

// OpenFavorite selects the favorite at index in the list view, keeping the
// session in browsing mode.
func (m *Model) OpenFavorite(index int) tea.Cmd {
	if m.view.kind != KindFavoritesList {
		return nil
	}
	if index < 0 || index >= len(m.view.favorites) {
		return nil
	}
	m.favCursor = index
	return m.startSelect(m.view.favorites[index].Item(), true)
}

// NextFavorite advances to the next saved favorite while browsing, wrapping
// at the end of the ring.
func (m *Model) NextFavorite() tea.Cmd {
	if !m.favBrowse || len(m.favRing) == 0 || m.view.kind != KindDetail {
		return nil
	}
	m.favCursor = (m.favCursor + 1) % len(m.favRing)
	return m.startSelect(m.favRing[m.favCursor].Item(), true)
}

// SetLanguage changes the random-pick language. Unknown tags are ignored.
func (m *Model) SetLanguage(tag string) {
	if !m.deps.Catalog.Has(tag) {
		m.deps.Log.Debugf("session: ignoring unknown language %q", tag)
		return
	}
	m.language = tag
}

// SetKind changes the random-pick kind between idioms and words.
func (m *Model) SetKind(kind phrase.Kind) {
	if !kind.Valid() {
		return
	}
	m.kind = kind
}
