package session

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chirag6451/idiom-master/internal/audio"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

// Result msgs carry the generation captured when the work was issued. Update
// compares it against the slot before applying anything. Gateway calls carry
// no extra timeout here; staleness is the only cancellation mechanism, and an
// abandoned call simply completes into a dropped msg.

type detailResultMsg struct {
	gen    uint64
	item   phrase.Item
	detail phrase.Detail
	err    error
}

type equivalentsResultMsg struct {
	gen         uint64
	item        phrase.Item
	equivalents phrase.Equivalents
	err         error
}

type relatedResultMsg struct {
	gen     uint64
	origin  phrase.Item
	related []phrase.Item
	err     error
}

type searchResultMsg struct {
	gen     uint64
	query   string
	results []phrase.Item
	err     error
}

type favoritesLoadedMsg struct {
	gen       uint64
	favorites []phrase.Favorite
	show      bool
	err       error
}

type favoriteSavedMsg struct {
	fav phrase.Favorite
	err error
}

type favoriteRemovedMsg struct {
	key string
	err error
}

type audioReadyMsg struct {
	gen  uint64
	item phrase.Item
	clip *audio.Clip
	err  error
}

type playbackDoneMsg struct {
	gen    uint64
	reason audio.StopReason
}

func (m *Model) fetchDetailCmd(gen uint64, item phrase.Item) tea.Cmd {
	client := m.deps.Gateway
	return func() tea.Msg {
		detail, err := client.Explain(context.Background(), item.Text, item.Language, item.Kind)
		return detailResultMsg{gen: gen, item: item, detail: detail, err: err}
	}
}

func (m *Model) fetchEquivalentsCmd(gen uint64, item phrase.Item) tea.Cmd {
	client := m.deps.Gateway
	targets := m.equivalentTargets(item.Language)
	return func() tea.Msg {
		equivalents, err := client.Equivalents(context.Background(), item.Text, item.Language, targets, item.Kind)
		return equivalentsResultMsg{gen: gen, item: item, equivalents: equivalents, err: err}
	}
}

func (m *Model) fetchRelatedCmd(gen uint64, origin phrase.Item) tea.Cmd {
	client := m.deps.Gateway
	return func() tea.Msg {
		texts, err := client.Related(context.Background(), origin.Text, origin.Language, origin.Kind)
		if err != nil {
			return relatedResultMsg{gen: gen, origin: origin, err: err}
		}
		related := make([]phrase.Item, 0, len(texts))
		for _, text := range texts {
			related = append(related, phrase.Item{Text: text, Language: origin.Language, Kind: origin.Kind})
		}
		return relatedResultMsg{gen: gen, origin: origin, related: related}
	}
}

func (m *Model) fetchSearchCmd(gen uint64, query string) tea.Cmd {
	client := m.deps.Gateway
	languages := m.searchLanguages()
	kind := m.kind
	return func() tea.Msg {
		results, err := client.Search(context.Background(), query, languages, kind)
		return searchResultMsg{gen: gen, query: query, results: results, err: err}
	}
}

func (m *Model) loadFavoritesCmd(gen uint64, show bool) tea.Cmd {
	store := m.deps.Store
	userID := m.deps.UserID
	return func() tea.Msg {
		favs, err := store.List(context.Background(), userID)
		return favoritesLoadedMsg{gen: gen, favorites: favs, show: show, err: err}
	}
}

// saveFavoriteCmd runs the whole save path in one job: capacity check first,
// then a best-effort speech fetch, then the store write. A full store means
// no speech call happens at all.
func (m *Model) saveFavoriteCmd(item phrase.Item, detail phrase.Detail) tea.Cmd {
	deps := m.deps
	key := m.keyFor(item)
	return func() tea.Msg {
		ctx := context.Background()
		existing, err := deps.Store.List(ctx, deps.UserID)
		if err != nil {
			return favoriteSavedMsg{err: err}
		}
		known := false
		for _, fav := range existing {
			if fav.Key == key {
				known = true
				break
			}
		}
		if !known && len(existing) >= favorites.Cap {
			return favoriteSavedMsg{err: favorites.ErrCapacity}
		}
		fav := phrase.NewFavorite(deps.UserID, item, detail, fetchAudioRef(ctx, deps, item, detail))
		durable, err := deps.Store.Add(ctx, deps.UserID, fav)
		if err != nil {
			return favoriteSavedMsg{err: err}
		}
		if !durable.Empty() {
			fav.Audio = durable
		}
		return favoriteSavedMsg{fav: fav}
	}
}

// fetchAudioRef synthesizes speech for the canonical example. Any failure
// leaves the favorite without audio rather than blocking the save.
func fetchAudioRef(ctx context.Context, deps Deps, item phrase.Item, detail phrase.Detail) *phrase.AudioRef {
	payload, err := deps.Gateway.Synthesize(ctx, detail.CanonicalExample(item.Text))
	if err != nil {
		deps.Log.Debugf("session: speech fetch for favorite failed, saving without audio: %v", err)
		return nil
	}
	data, err := audio.Decode(payload)
	if err != nil {
		deps.Log.Debugf("session: speech payload unreadable, saving without audio: %v", err)
		return nil
	}
	return &phrase.AudioRef{Data: data, SampleRate: gateway.SampleRate, Channels: gateway.Channels}
}

func (m *Model) removeFavoriteCmd(key string) tea.Cmd {
	store := m.deps.Store
	userID := m.deps.UserID
	return func() tea.Msg {
		if _, err := store.Remove(context.Background(), userID, key); err != nil {
			return favoriteRemovedMsg{key: key, err: err}
		}
		return favoriteRemovedMsg{key: key}
	}
}

// fetchAudioCmd resolves a playable clip, preferring the saved copy: inline
// bytes first, then the cached download of a durable URL, then a fresh
// synthesis call.
func (m *Model) fetchAudioCmd(gen uint64, item phrase.Item, detail phrase.Detail, ref *phrase.AudioRef) tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		clip, err := resolveClip(context.Background(), deps, item, detail, ref)
		return audioReadyMsg{gen: gen, item: item, clip: clip, err: err}
	}
}

func resolveClip(ctx context.Context, deps Deps, item phrase.Item, detail phrase.Detail, ref *phrase.AudioRef) (*audio.Clip, error) {
	if ref != nil {
		rate, channels := ref.SampleRate, ref.Channels
		if rate <= 0 {
			rate = gateway.SampleRate
		}
		if channels <= 0 {
			channels = gateway.Channels
		}
		if len(ref.Data) > 0 {
			return audio.BuildClip(ref.Data, rate, channels)
		}
		if ref.URL != "" && deps.Cache != nil {
			data, err := deps.Cache.Fetch(ctx, ref.URL)
			if err == nil {
				return audio.BuildClip(data, rate, channels)
			}
			deps.Log.Debugf("session: cached audio fetch failed, synthesizing instead: %v", err)
		}
	}
	payload, err := deps.Gateway.Synthesize(ctx, detail.CanonicalExample(item.Text))
	if err != nil {
		return nil, err
	}
	data, err := audio.Decode(payload)
	if err != nil {
		return nil, err
	}
	return audio.BuildClip(data, gateway.SampleRate, gateway.Channels)
}

func watchPlaybackCmd(gen uint64, handle *audio.Handle) tea.Cmd {
	return func() tea.Msg {
		return playbackDoneMsg{gen: gen, reason: handle.Wait()}
	}
}
