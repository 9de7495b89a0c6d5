package tui

import (
	"context"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/chirag6451/idiom-master/internal/account"
	"github.com/chirag6451/idiom-master/internal/audio"
	"github.com/chirag6451/idiom-master/internal/catalog"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/phrase"
	"github.com/chirag6451/idiom-master/internal/session"
)

// The test catalog pins English to a single idiom so the n key is
// deterministic. Load merges it over the embedded default, so the other
// languages stay available as equivalent targets.
const testCatalogYAML = `version: 1
languages:
  - tag: English
    native: English
    idioms:
      - Bite the bullet
    words:
      - serendipity
`

type fakeGateway struct {
	mu sync.Mutex

	equivalents phrase.Equivalents
	related     []string
	results     []phrase.Item
	speech      string
}

func (g *fakeGateway) Explain(_ context.Context, text, language string, kind phrase.Kind) (phrase.Detail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return phrase.Detail{
		Meaning:    "meaning of " + text,
		Background: "background of " + text,
		Examples:   []string{"An example featuring " + text + "."},
	}, nil
}

func (g *fakeGateway) Related(_ context.Context, text, language string, kind phrase.Kind) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.related, nil
}

func (g *fakeGateway) Equivalents(_ context.Context, text, source string, targets []string, kind phrase.Kind) (phrase.Equivalents, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.equivalents, nil
}

func (g *fakeGateway) Search(_ context.Context, query string, languages []string, kind phrase.Kind) ([]phrase.Item, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.results, nil
}

func (g *fakeGateway) Synthesize(_ context.Context, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speech, nil
}

func (g *fakeGateway) Name() string { return "fake" }

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(testCatalogYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cat
}

func newTestModel(t *testing.T) (*model, *fakeGateway, *favorites.FileStore) {
	t.Helper()
	gw := &fakeGateway{
		speech:      base64.StdEncoding.EncodeToString(make([]byte, 48)),
		equivalents: phrase.Equivalents{"Spanish": "Una frase"},
	}
	accounts, err := account.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store, err := favorites.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := New(Config{
		Accounts: accounts,
		Catalog:  loadTestCatalog(t),
		Gateway:  gw,
		Store:    store,
		Device:   audio.NopDevice{},
		Log:      log,
	}).(*model)
	return m, gw, store
}

// press feeds one key through Update and returns the follow-up command.
func press(t *testing.T, m *model, key string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+d":
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// drain runs cmd and feeds every resulting msg back into the model,
// following batches until no work remains. Spinner and repaint ticks are
// dropped so the loop terminates.
func drain(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if msg == nil {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg:
		case noticeTickMsg:
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func signIn(t *testing.T, m *model, name, password string) {
	t.Helper()
	m.nameInput.SetValue(name)
	m.passwordInput.SetValue(password)
	m.focusLoginField(1)
	cmd := press(t, m, "enter")
	if m.stage != stageBrowse {
		t.Fatalf("expected browse stage after sign-in, got %v (error %q)", m.stage, m.errorMessage)
	}
	drain(t, m, cmd)
}

func TestLoginRegistersAndEntersBrowse(t *testing.T) {
	m, _, _ := newTestModel(t)
	if m.stage != stageLogin {
		t.Fatalf("expected the login stage first, got %v", m.stage)
	}

	signIn(t, m, "maya", "hunter2")
	if m.sess == nil {
		t.Fatal("a session should exist after sign-in")
	}
	if m.user.Name != "maya" {
		t.Fatalf("unexpected signed-in user %q", m.user.Name)
	}
	user, ok, err := m.config.Accounts.CurrentUser()
	if err != nil || !ok {
		t.Fatalf("the signed-in user should be persisted, ok=%v err=%v", ok, err)
	}
	if user.ID != m.user.ID {
		t.Fatalf("persisted user %q does not match the session user %q", user.ID, m.user.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	m, _, _ := newTestModel(t)
	if _, err := m.config.Accounts.Login("maya", "right"); err != nil {
		t.Fatalf("seed login: %v", err)
	}

	m.nameInput.SetValue("maya")
	m.passwordInput.SetValue("wrong")
	m.focusLoginField(1)
	press(t, m, "enter")

	if m.stage != stageLogin {
		t.Fatalf("a bad password must not sign in, got stage %v", m.stage)
	}
	if m.errorMessage == "" {
		t.Fatal("expected a credentials error message")
	}
	if m.passwordInput.Value() != "" {
		t.Fatal("the rejected password should be cleared")
	}
}

func TestEnterOnNameMovesFocusToPassword(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.nameInput.SetValue("maya")

	press(t, m, "enter")
	if m.stage != stageLogin {
		t.Fatalf("enter on the name field must not submit, got stage %v", m.stage)
	}
	if m.loginFocus != 1 {
		t.Fatalf("focus should move to the password field, got %d", m.loginFocus)
	}
}

func TestNewResumesPersistedUser(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "hunter2")

	resumed := New(m.config).(*model)
	if resumed.stage != stageBrowse {
		t.Fatalf("a persisted user should skip the login screen, got stage %v", resumed.stage)
	}
	if resumed.sess == nil {
		t.Fatal("the resumed model should carry a session")
	}
	if resumed.user.Name != "maya" {
		t.Fatalf("resumed the wrong user %q", resumed.user.Name)
	}
}

func TestRandomKeyShowsDetail(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	cmd := press(t, m, "n")
	if cmd == nil {
		t.Fatal("n should start a fetch")
	}
	if got := m.sess.View().Kind(); got != session.KindLoading {
		t.Fatalf("expected the loading view while the fetch runs, got %v", got)
	}

	drain(t, m, cmd)
	view := m.sess.View()
	if view.Kind() != session.KindDetail {
		t.Fatalf("expected the detail view, got %v", view.Kind())
	}
	if view.Item().Text != "Bite the bullet" {
		t.Fatalf("unexpected item %q", view.Item().Text)
	}

	rendered := m.View()
	for _, want := range []string{"Bite the bullet", "Meaning", "meaning of Bite the bullet", "In Other Languages", "Spanish: Una frase", "French: none recorded"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered view is missing %q:\n%s", want, rendered)
		}
	}
}

func TestSearchComposerRoundTrip(t *testing.T) {
	m, gw, _ := newTestModel(t)
	gw.results = []phrase.Item{{Text: "Raining cats and dogs", Language: "English", Kind: phrase.KindIdiom}}
	signIn(t, m, "maya", "pw")

	press(t, m, "s")
	if m.stage != stageSearch {
		t.Fatalf("s should open the search composer, got stage %v", m.stage)
	}
	m.searchInput.SetValue("rain")
	cmd := press(t, m, "enter")
	if m.stage != stageBrowse {
		t.Fatalf("enter should leave the composer, got stage %v", m.stage)
	}
	if got := m.sess.View().Query(); got != "rain" {
		t.Fatalf("search query not forwarded, got %q", got)
	}

	drain(t, m, cmd)
	rendered := m.View()
	if !strings.Contains(rendered, "Raining cats and dogs") {
		t.Fatalf("search results not rendered:\n%s", rendered)
	}
	press(t, m, "1")
	if got := m.sess.View().Kind(); got != session.KindLoading {
		t.Fatalf("1 should open the first result, got %v", got)
	}
}

func TestEmptySearchIsANoOp(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	press(t, m, "s")
	m.searchInput.SetValue("   ")
	press(t, m, "enter")
	if m.stage != stageBrowse {
		t.Fatalf("enter should close the composer, got stage %v", m.stage)
	}
	if got := m.sess.View().Kind(); got != session.KindIdle {
		t.Fatalf("a blank query must not change the view, got %v", got)
	}
}

func TestEscCancelsSearchComposer(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	press(t, m, "s")
	m.searchInput.SetValue("half-typed")
	press(t, m, "esc")
	if m.stage != stageBrowse {
		t.Fatalf("esc should cancel the composer, got stage %v", m.stage)
	}
	if got := m.sess.View().Kind(); got != session.KindIdle {
		t.Fatalf("a canceled search must not touch the view, got %v", got)
	}
}

func TestFavoritesListOpensAndBrowses(t *testing.T) {
	m, _, store := newTestModel(t)
	signIn(t, m, "maya", "pw")

	item := phrase.Item{Text: "Break the ice", Language: "English", Kind: phrase.KindIdiom}
	detail := phrase.Detail{Meaning: "start a conversation", Examples: []string{"He broke the ice."}}
	fav := phrase.NewFavorite(m.user.ID, item, detail, nil)
	if _, err := store.Add(context.Background(), m.user.ID, fav); err != nil {
		t.Fatalf("seed favorite: %v", err)
	}

	drain(t, m, press(t, m, "v"))
	if got := m.sess.View().Kind(); got != session.KindFavoritesList {
		t.Fatalf("v should open the favorites list, got %v", got)
	}
	rendered := m.View()
	for _, want := range []string{"Favorites (1 of 50)", "1. Break the ice"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("favorites list is missing %q:\n%s", want, rendered)
		}
	}

	drain(t, m, press(t, m, "1"))
	view := m.sess.View()
	if view.Kind() != session.KindDetail || view.Item().Text != "Break the ice" {
		t.Fatalf("1 should open the saved favorite, got %v %q", view.Kind(), view.Item().Text)
	}
	if !m.sess.Browsing() {
		t.Fatal("opening a favorite should enter browsing mode")
	}
	if pos, size := m.sess.BrowsePosition(); pos != 1 || size != 1 {
		t.Fatalf("unexpected browse position %d/%d", pos, size)
	}
}

func TestEmptyFavoritesFallsBackToRandom(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	drain(t, m, press(t, m, "v"))
	view := m.sess.View()
	if view.Kind() != session.KindDetail {
		t.Fatalf("an empty list should fall back to a random pick, got %v", view.Kind())
	}
	found := false
	for _, n := range m.sess.Notices() {
		if strings.Contains(n.Text, "No favorites saved yet") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the empty-favorites notice, got %#v", m.sess.Notices())
	}
}

func TestPlayStopTogglesPlayback(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")
	drain(t, m, press(t, m, "n"))

	cmd := press(t, m, "p")
	if cmd == nil {
		t.Fatal("p should start the audio fetch")
	}
	_, watch := m.Update(cmd())
	if !m.sess.View().IsPlaying() {
		t.Fatal("playback should be marked active once the clip starts")
	}
	if !strings.Contains(m.View(), "♪ playing") {
		t.Fatal("the playing badge should render")
	}

	if stop := press(t, m, "p"); stop != nil {
		t.Fatalf("stopping should not schedule work, got %T", stop)
	}
	if m.sess.View().IsPlaying() {
		t.Fatal("playback flag should clear on stop")
	}

	// The watcher resolves after the explicit stop; its completion is stale
	// and must not flip the flag back.
	drain(t, m, watch)
	if m.sess.View().IsPlaying() {
		t.Fatal("a superseded completion must not resurrect the playing flag")
	}
}

func TestRelatedAndBackKeys(t *testing.T) {
	m, gw, _ := newTestModel(t)
	gw.related = []string{"Bite your tongue"}
	signIn(t, m, "maya", "pw")
	drain(t, m, press(t, m, "n"))

	drain(t, m, press(t, m, "r"))
	view := m.sess.View()
	if view.Kind() != session.KindRelatedResults {
		t.Fatalf("r should open the related list, got %v", view.Kind())
	}
	if len(view.Related()) != 1 || view.Related()[0].Text != "Bite your tongue" {
		t.Fatalf("unexpected related items %#v", view.Related())
	}
	if !strings.Contains(m.View(), `Related to "Bite the bullet"`) {
		t.Fatalf("related header missing:\n%s", m.View())
	}

	drain(t, m, press(t, m, "b"))
	view = m.sess.View()
	if view.Kind() != session.KindDetail || view.Item().Text != "Bite the bullet" {
		t.Fatalf("b should reselect the origin, got %v %q", view.Kind(), view.Item().Text)
	}
}

func TestFavoriteKeyTogglesHeart(t *testing.T) {
	m, _, store := newTestModel(t)
	signIn(t, m, "maya", "pw")
	drain(t, m, press(t, m, "n"))

	drain(t, m, press(t, m, "f"))
	if !m.sess.View().IsFavorite() {
		t.Fatal("f should save the shown phrase")
	}
	favs, err := store.List(context.Background(), m.user.ID)
	if err != nil || len(favs) != 1 {
		t.Fatalf("expected one stored favorite, got %d err=%v", len(favs), err)
	}
	if !strings.Contains(m.View(), "♥ saved") {
		t.Fatal("the saved badge should render")
	}

	drain(t, m, press(t, m, "f"))
	if m.sess.View().IsFavorite() {
		t.Fatal("f should remove the favorite on the second press")
	}
}

func TestSignOutReturnsToLogin(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	press(t, m, "ctrl+d")
	if m.stage != stageLogin {
		t.Fatalf("sign-out should return to the login stage, got %v", m.stage)
	}
	if m.sess != nil {
		t.Fatal("sign-out should drop the session")
	}
	if _, ok, err := m.config.Accounts.CurrentUser(); err != nil || ok {
		t.Fatalf("the persisted user should be gone, ok=%v err=%v", ok, err)
	}
}

func TestLanguageAndKindCycling(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	if got := m.sess.Language(); got != "English" {
		t.Fatalf("expected English first, got %q", got)
	}
	press(t, m, "l")
	if got := m.sess.Language(); got != "Spanish" {
		t.Fatalf("l should advance to the next catalog language, got %q", got)
	}

	press(t, m, "k")
	if got := m.sess.Kind(); got != phrase.KindWord {
		t.Fatalf("k should flip to words, got %v", got)
	}
	press(t, m, "k")
	if got := m.sess.Kind(); got != phrase.KindIdiom {
		t.Fatalf("k should flip back to idioms, got %v", got)
	}
}

func TestWindowSizeClampsViewport(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})
	if m.viewport.Width != minViewportWidth {
		t.Fatalf("narrow windows should clamp the viewport width, got %d", m.viewport.Width)
	}
	if m.viewport.Height != 5 {
		t.Fatalf("short windows should clamp the viewport height, got %d", m.viewport.Height)
	}
}

func TestQuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("q should quit from the browse stage")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected a quit msg, got %T", cmd())
	}
}

func TestHelpToggle(t *testing.T) {
	m, _, _ := newTestModel(t)
	signIn(t, m, "maya", "pw")

	press(t, m, "?")
	if !m.helpVisible {
		t.Fatal("? should open the help panel")
	}
	if !strings.Contains(m.View(), "Key Bindings") {
		t.Fatal("the key legend should render while help is open")
	}
	press(t, m, "esc")
	if m.helpVisible {
		t.Fatal("esc should close the help panel before quitting")
	}
}
