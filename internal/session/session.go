// Package session owns what the app is currently showing. It sequences the
// gateway, favorites and audio calls behind a single view value, and drops
// results that resolve after the user has already moved on.
package session

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/chirag6451/idiom-master/internal/audio"
	"github.com/chirag6451/idiom-master/internal/catalog"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/logging"
	"github.com/chirag6451/idiom-master/internal/phrase"
)

const noticeTTL = 3 * time.Second

// slot identifies one logical async operation category. Each slot carries a
// monotonically increasing generation; a result is applied only when its
// captured generation still matches the slot.
type slot int

const (
	slotPrimary slot = iota
	slotEquivalents
	slotRelated
	slotSearch
	slotAudio
	slotFavorites
	slotCount
)

// Deps wires the collaborators into the orchestrator. Everything is injected
// once at construction; the model holds no package-level state.
type Deps struct {
	Catalog *catalog.Catalog
	Gateway gateway.Client
	Store   favorites.Store
	Device  audio.Device
	Cache   *audio.Cache
	UserID  string
	Log     *logrus.Logger
}

// Notice is a transient toast. Expired notices are filtered out on read.
type Notice struct {
	Text      string
	ExpiresAt time.Time
}

// Model is the session orchestrator. Operations mutate intent and return
// tea.Cmd work; results come back as private msgs handled by Update.
type Model struct {
	deps Deps

	language string
	kind     phrase.Kind

	view View

	// Back target, kept outside the view union so it survives the
	// related view failing or being replaced.
	backOrigin *phrase.Item

	gens [slotCount]uint64

	playing *audio.Handle

	favIndex  map[string]phrase.Favorite
	favRing   []phrase.Favorite
	favCursor int
	favBrowse bool
	favBusy   bool

	notices []Notice
}

// New builds an idle session around deps. The first catalog language and the
// idiom kind are the starting selectors.
func New(deps Deps) *Model {
	if deps.Log == nil {
		deps.Log = logging.Log
	}
	m := &Model{
		deps:     deps,
		kind:     phrase.KindIdiom,
		view:     idleView(),
		favIndex: map[string]phrase.Favorite{},
	}
	if deps.Catalog != nil {
		if langs := deps.Catalog.Languages(); len(langs) > 0 {
			m.language = langs[0].Tag
		}
	}
	return m
}

// Init seeds the favorites index so the heart flag renders correctly on the
// first detail view.
func (m *Model) Init() tea.Cmd {
	return m.loadFavoritesCmd(m.bump(slotFavorites), false)
}

func (m *Model) View() View { return m.view }

func (m *Model) Language() string { return m.language }

func (m *Model) Kind() phrase.Kind { return m.kind }

// CanGoBack reports whether a related-view origin is remembered.
func (m *Model) CanGoBack() bool { return m.backOrigin != nil }

// Browsing reports whether the session is paging through saved favorites.
func (m *Model) Browsing() bool { return m.favBrowse }

// BrowsePosition returns the 1-based cursor and size of the favorites ring.
func (m *Model) BrowsePosition() (int, int) {
	if !m.favBrowse || len(m.favRing) == 0 {
		return 0, 0
	}
	return m.favCursor + 1, len(m.favRing)
}

// Notices returns the not-yet-expired toasts, oldest first.
func (m *Model) Notices() []Notice {
	now := time.Now()
	var live []Notice
	for _, n := range m.notices {
		if now.Before(n.ExpiresAt) {
			live = append(live, n)
		}
	}
	return live
}

func (m *Model) pushNotice(text string) {
	m.pruneNotices()
	m.notices = append(m.notices, Notice{Text: text, ExpiresAt: time.Now().Add(noticeTTL)})
}

func (m *Model) pruneNotices() {
	now := time.Now()
	kept := m.notices[:0]
	for _, n := range m.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

func (m *Model) bump(s slot) uint64 {
	m.gens[s]++
	return m.gens[s]
}

func (m *Model) current(s slot) uint64 { return m.gens[s] }

func (m *Model) stale(s slot, gen uint64) bool { return gen != m.gens[s] }

// cancelContent invalidates every in-flight content fetch. Late results then
// fail the generation check and are dropped.
func (m *Model) cancelContent() {
	m.gens[slotPrimary]++
	m.gens[slotEquivalents]++
	m.gens[slotRelated]++
	m.gens[slotSearch]++
	m.gens[slotFavorites]++
}

// stopPlayback releases the active handle, if any, and invalidates any
// pending audio fetch. An explicit stop must never surface as a natural
// completion, so the watcher generation is bumped first.
func (m *Model) stopPlayback() {
	m.bump(slotAudio)
	if m.playing != nil {
		m.playing.Stop()
		m.playing = nil
	}
	if m.view.kind == KindDetail {
		m.view.isPlaying = false
	}
}

// Shutdown stops playback and invalidates all in-flight work. The model
// stays usable but owns no running resources afterwards.
func (m *Model) Shutdown() {
	m.stopPlayback()
	m.cancelContent()
}

func (m *Model) keyFor(item phrase.Item) string {
	return phrase.FavoriteKey(m.deps.UserID, item.Text, item.Language, item.Kind)
}

func (m *Model) savedCopy(item phrase.Item) (phrase.Favorite, bool) {
	fav, ok := m.favIndex[m.keyFor(item)]
	return fav, ok
}

func (m *Model) reindexFavorites(favs []phrase.Favorite) {
	m.favIndex = make(map[string]phrase.Favorite, len(favs))
	for _, fav := range favs {
		m.favIndex[fav.Key] = fav
	}
}

// equivalentTargets lists every configured language except the source.
func (m *Model) equivalentTargets(source string) []string {
	var targets []string
	for _, lang := range m.deps.Catalog.Languages() {
		if !strings.EqualFold(lang.Tag, source) {
			targets = append(targets, lang.Tag)
		}
	}
	return targets
}

func (m *Model) searchLanguages() []string {
	langs := m.deps.Catalog.Languages()
	tags := make([]string, 0, len(langs))
	for _, lang := range langs {
		tags = append(tags, lang.Tag)
	}
	return tags
}

func (m *Model) supportedOnly(items []phrase.Item) []phrase.Item {
	kept := make([]phrase.Item, 0, len(items))
	for _, item := range items {
		if m.deps.Catalog.Supported(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func sameItem(a, b phrase.Item) bool {
	return strings.EqualFold(a.Text, b.Text) &&
		strings.EqualFold(a.Language, b.Language) &&
		a.Kind == b.Kind
}

// failureMessage maps a gateway failure onto the text shown to the user.
func failureMessage(err error) string {
	switch gateway.FailureReason(err) {
	case gateway.ReasonNotFound:
		return "No explanation could be found for this phrase."
	case gateway.ReasonRateLimited:
		return "The language service is rate limited right now. Try again in a moment."
	case gateway.ReasonNetwork:
		return "Could not reach the language service. Check your connection."
	case gateway.ReasonMalformed:
		return "The language service sent back a reply that could not be read."
	case gateway.ReasonNoAudio:
		return "No audio is available for this phrase."
	}
	return err.Error()
}
