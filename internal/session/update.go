package session

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// Update applies one session msg. The second return reports whether the msg
// belonged to this model; callers route everything else themselves.
func (m *Model) Update(msg tea.Msg) (tea.Cmd, bool) {
	m.pruneNotices()
	switch msg := msg.(type) {
	case detailResultMsg:
		return m.onDetail(msg), true
	case equivalentsResultMsg:
		return m.onEquivalents(msg), true
	case relatedResultMsg:
		return m.onRelated(msg), true
	case searchResultMsg:
		return m.onSearch(msg), true
	case favoritesLoadedMsg:
		return m.onFavoritesLoaded(msg), true
	case favoriteSavedMsg:
		return m.onFavoriteSaved(msg), true
	case favoriteRemovedMsg:
		return m.onFavoriteRemoved(msg), true
	case audioReadyMsg:
		return m.onAudioReady(msg), true
	case playbackDoneMsg:
		return m.onPlaybackDone(msg), true
	}
	return nil, false
}

func (m *Model) onDetail(msg detailResultMsg) tea.Cmd {
	if m.stale(slotPrimary, msg.gen) {
		m.deps.Log.Debugf("session: dropping stale detail for %q", msg.item.Text)
		return nil
	}
	if msg.err != nil {
		if fav, ok := m.savedCopy(msg.item); ok {
			m.view = detailView(msg.item, fav.Detail)
			m.view.isFavorite = true
			m.deps.Log.Debugf("session: detail fetch failed, rendering saved copy of %q: %v", msg.item.Text, msg.err)
			m.pushNotice("Offline: showing the saved copy.")
			return nil
		}
		m.view = errorView(failureMessage(msg.err), msg.item)
		return nil
	}
	m.view = detailView(msg.item, msg.detail)
	_, m.view.isFavorite = m.favIndex[m.keyFor(msg.item)]
	targets := m.equivalentTargets(msg.item.Language)
	if len(targets) == 0 {
		return nil
	}
	m.view.equivalentsLoading = true
	return m.fetchEquivalentsCmd(m.bump(slotEquivalents), msg.item)
}

func (m *Model) onEquivalents(msg equivalentsResultMsg) tea.Cmd {
	if m.stale(slotEquivalents, msg.gen) {
		m.deps.Log.Debugf("session: dropping stale equivalents for %q", msg.item.Text)
		return nil
	}
	if m.view.kind != KindDetail {
		return nil
	}
	m.view.equivalentsLoading = false
	if msg.err != nil {
		m.deps.Log.Debugf("session: equivalents fetch for %q failed, leaving the map empty: %v", msg.item.Text, msg.err)
		return nil
	}
	m.view.equivalents = msg.equivalents
	return nil
}

func (m *Model) onRelated(msg relatedResultMsg) tea.Cmd {
	if m.stale(slotRelated, msg.gen) {
		m.deps.Log.Debugf("session: dropping stale related list for %q", msg.origin.Text)
		return nil
	}
	if m.view.kind != KindRelatedResults {
		return nil
	}
	m.view.relatedLoading = false
	if msg.err != nil {
		m.view.relatedErr = failureMessage(msg.err)
		return nil
	}
	m.view.related = m.supportedOnly(msg.related)
	return nil
}

func (m *Model) onSearch(msg searchResultMsg) tea.Cmd {
	if m.stale(slotSearch, msg.gen) {
		m.deps.Log.Debugf("session: dropping stale search results for %q", msg.query)
		return nil
	}
	if m.view.kind != KindSearchResults || m.view.query != msg.query {
		return nil
	}
	m.view.searchLoading = false
	if msg.err != nil {
		m.view.searchErr = failureMessage(msg.err)
		return nil
	}
	m.view.results = m.supportedOnly(msg.results)
	return nil
}

func (m *Model) onFavoritesLoaded(msg favoritesLoadedMsg) tea.Cmd {
	if msg.err != nil {
		if msg.show && !m.stale(slotFavorites, msg.gen) {
			m.pushNotice("Could not load your favorites.")
		} else {
			m.deps.Log.Debugf("session: favorites index load failed: %v", msg.err)
		}
		return nil
	}
	// The index is refreshed even for a stale load; store contents are
	// global truth, not view state.
	m.reindexFavorites(msg.favorites)
	if m.view.kind == KindDetail {
		_, m.view.isFavorite = m.favIndex[m.keyFor(m.view.item)]
	}
	if !msg.show || m.stale(slotFavorites, msg.gen) {
		return nil
	}
	if len(msg.favorites) == 0 {
		m.pushNotice("No favorites saved yet. Here is a fresh pick instead.")
		return m.SelectRandom()
	}
	m.favBrowse = true
	m.favRing = append([]phrase.Favorite(nil), msg.favorites...)
	m.favCursor = 0
	m.view = favoritesView(msg.favorites)
	return nil
}

func (m *Model) onFavoriteSaved(msg favoriteSavedMsg) tea.Cmd {
	m.favBusy = false
	if msg.err != nil {
		if errors.Is(msg.err, favorites.ErrCapacity) {
			m.pushNotice(fmt.Sprintf("Favorites are full (%d max). Remove one first.", favorites.Cap))
			return nil
		}
		m.deps.Log.Debugf("session: favorite save failed: %v", msg.err)
		m.pushNotice("Saving the favorite failed.")
		return nil
	}
	m.favIndex[msg.fav.Key] = msg.fav
	if m.view.kind == KindDetail && m.keyFor(m.view.item) == msg.fav.Key {
		m.view.isFavorite = true
	}
	m.pushNotice("Saved to favorites.")
	return nil
}

func (m *Model) onFavoriteRemoved(msg favoriteRemovedMsg) tea.Cmd {
	m.favBusy = false
	if msg.err != nil {
		m.deps.Log.Debugf("session: favorite removal failed: %v", msg.err)
		m.pushNotice("Removing the favorite failed.")
		return nil
	}
	delete(m.favIndex, msg.key)
	if m.view.kind == KindDetail && m.keyFor(m.view.item) == msg.key {
		m.view.isFavorite = false
	}
	if m.favBrowse {
		kept := m.favRing[:0]
		for _, fav := range m.favRing {
			if fav.Key != msg.key {
				kept = append(kept, fav)
			}
		}
		m.favRing = kept
		if m.favCursor >= len(m.favRing) {
			m.favCursor = 0
		}
		if len(m.favRing) == 0 {
			m.favBrowse = false
			m.pushNotice("Last favorite removed. Picking something new.")
			return m.SelectRandom()
		}
	}
	if m.view.kind == KindFavoritesList {
		kept := make([]phrase.Favorite, 0, len(m.view.favorites))
		for _, fav := range m.view.favorites {
			if fav.Key != msg.key {
				kept = append(kept, fav)
			}
		}
		m.view.favorites = kept
	}
	return nil
}

func (m *Model) onAudioReady(msg audioReadyMsg) tea.Cmd {
	if m.stale(slotAudio, msg.gen) {
		m.deps.Log.Debugf("session: dropping stale audio for %q", msg.item.Text)
		return nil
	}
	if m.view.kind != KindDetail || !sameItem(m.view.item, msg.item) {
		return nil
	}
	if msg.err != nil {
		m.deps.Log.Debugf("session: audio fetch for %q failed: %v", msg.item.Text, msg.err)
		m.pushNotice(failureMessage(msg.err))
		return nil
	}
	handle, err := m.deps.Device.Play(context.Background(), msg.clip)
	if err != nil {
		m.deps.Log.Debugf("session: playback start failed: %v", err)
		m.pushNotice("Playback failed on this device.")
		return nil
	}
	m.playing = handle
	m.view.isPlaying = true
	return watchPlaybackCmd(msg.gen, handle)
}

func (m *Model) onPlaybackDone(msg playbackDoneMsg) tea.Cmd {
	if m.stale(slotAudio, msg.gen) {
		// Explicit stop or a superseding clip already cleared the flag.
		m.deps.Log.Debug("session: dropping superseded playback completion")
		return nil
	}
	m.playing = nil
	if m.view.kind == KindDetail {
		m.view.isPlaying = false
	}
	return nil
}
