// Package tui is the outer terminal app: a sign-in screen, then a browse
// screen that renders whatever the session orchestrator's view value says.
// All domain state lives in the session; this package only holds widget
// state and translates keys into session operations.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/chirag6451/idiom-master/internal/account"
	"github.com/chirag6451/idiom-master/internal/audio"
	"github.com/chirag6451/idiom-master/internal/catalog"
	"github.com/chirag6451/idiom-master/internal/favorites"
	"github.com/chirag6451/idiom-master/internal/gateway"
	"github.com/chirag6451/idiom-master/internal/logging"
	"github.com/chirag6451/idiom-master/internal/phrase"
	"github.com/chirag6451/idiom-master/internal/session"
)

// Config wires the app's collaborators into the TUI program.
type Config struct {
	Accounts *account.Store
	Catalog  *catalog.Catalog
	Gateway  gateway.Client
	Store    favorites.Store
	Device   audio.Device
	Cache    *audio.Cache
	Log      *logrus.Logger
}

// New returns a tea.Model ready to be mounted into a Program. When a
// signed-in user is on record the login screen is skipped.
func New(config Config) tea.Model {
	if config.Log == nil {
		config.Log = logging.Log
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "Your name"
	nameInput.Focus()
	nameInput.CharLimit = 40
	nameInput.Width = 40

	passwordInput := textinput.New()
	passwordInput.Placeholder = "Password"
	passwordInput.CharLimit = 64
	passwordInput.Width = 40
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'

	searchInput := textinput.New()
	searchInput.Placeholder = "Search phrases in any configured language…"
	searchInput.CharLimit = 120
	searchInput.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		stage:         stageLogin,
		nameInput:     nameInput,
		passwordInput: passwordInput,
		searchInput:   searchInput,
		spinner:       spin,
		viewport:      vp,
		viewportDirty: true,
		infoMessage:   "Sign in to start studying.",
	}
	if config.Accounts != nil {
		user, ok, err := config.Accounts.CurrentUser()
		switch {
		case err != nil:
			config.Log.Debugf("tui: reading the signed-in user failed: %v", err)
		case ok:
			m.enterBrowse(user)
			m.infoMessage = fmt.Sprintf("Welcome back, %s. Press n for a random pick.", user.Name)
		}
	}
	return m
}

type stage int

const (
	stageLogin stage = iota
	stageBrowse
	stageSearch
)

const heroTagline = "Idioms and words, explained across languages."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
)

// noticeRedrawEvery paces the repaint loop that lets session toasts vanish
// on their own once they expire.
const noticeRedrawEvery = 500 * time.Millisecond

type model struct {
	config Config
	stage  stage

	nameInput     textinput.Model
	passwordInput textinput.Model
	searchInput   textinput.Model
	spinner       spinner.Model
	viewport      viewport.Model

	sess *session.Model
	user account.User

	loginFocus    int
	helpVisible   bool
	ticking       bool
	viewportDirty bool
	lastKind      session.ViewKind
	errorMessage  string
	infoMessage   string
}

type noticeTickMsg struct{}

func (m *model) Init() tea.Cmd {
	if m.stage == stageBrowse && m.sess != nil {
		return tea.Batch(textinput.Blink, m.sess.Init())
	}
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loadingActive() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case noticeTickMsg:
		m.ticking = false
		if m.sess != nil && len(m.sess.Notices()) > 0 {
			return m, m.noticeTick()
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			switch m.stage {
			case stageSearch:
				m.stage = stageBrowse
				m.searchInput.Blur()
				return m, nil
			case stageBrowse:
				if m.helpVisible {
					m.helpVisible = false
					return m, nil
				}
				return m, tea.Quit
			default:
				return m, tea.Quit
			}
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.stage == stageBrowse {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		newWidth := msg.Width - viewportHorizontalPadding
		if newWidth < minViewportWidth {
			newWidth = minViewportWidth
		}
		m.viewport.Width = newWidth
		height := msg.Height - 8
		if height < 5 {
			height = 5
		}
		m.viewport.Height = height
		m.markViewportDirty()
		return m, nil
	}
	if m.sess != nil {
		if cmd, handled := m.sess.Update(msg); handled {
			m.markViewportDirty()
			return m, m.withSessionCmd(cmd)
		}
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageLogin:
		return m.handleLoginKey(key)
	case stageSearch:
		return m.handleSearchKey(key)
	case stageBrowse:
		return m.handleBrowseKey(key)
	default:
		return m, nil
	}
}

func (m *model) handleLoginKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyDown, tea.KeyUp:
		m.focusLoginField(1 - m.loginFocus)
		return m, textinput.Blink
	case tea.KeyEnter:
		if m.loginFocus == 0 {
			m.focusLoginField(1)
			return m, textinput.Blink
		}
		return m.attemptLogin()
	}
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.nameInput, cmd = m.nameInput.Update(key)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(key)
	}
	return m, cmd
}

func (m *model) attemptLogin() (tea.Model, tea.Cmd) {
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" {
		m.errorMessage = "Enter a name to sign in."
		m.focusLoginField(0)
		return m, nil
	}
	user, err := m.config.Accounts.Login(name, m.passwordInput.Value())
	if err != nil {
		if errors.Is(err, account.ErrBadCredentials) {
			m.errorMessage = "That name is taken and the password does not match."
		} else {
			m.errorMessage = err.Error()
		}
		m.passwordInput.SetValue("")
		m.focusLoginField(1)
		return m, nil
	}
	if err := m.config.Accounts.SetCurrent(user); err != nil {
		m.config.Log.Debugf("tui: persisting the signed-in user failed: %v", err)
	}
	return m, m.enterBrowse(user)
}

// enterBrowse builds a fresh session for user and switches stages. The
// returned cmd seeds the favorites index.
func (m *model) enterBrowse(user account.User) tea.Cmd {
	m.user = user
	m.sess = session.New(session.Deps{
		Catalog: m.config.Catalog,
		Gateway: m.config.Gateway,
		Store:   m.config.Store,
		Device:  m.config.Device,
		Cache:   m.config.Cache,
		UserID:  user.ID,
		Log:     m.config.Log,
	})
	m.stage = stageBrowse
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Signed in as %s. Press n for a random pick.", user.Name)
	m.passwordInput.SetValue("")
	m.markViewportDirty()
	return m.sess.Init()
}

func (m *model) handleSearchKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(key)
	if key.Type == tea.KeyEnter {
		query := strings.TrimSpace(m.searchInput.Value())
		m.stage = stageBrowse
		m.searchInput.Blur()
		if query == "" {
			return m, cmd
		}
		m.markViewportDirty()
		return m, tea.Batch(cmd, m.withSessionCmd(m.sess.Search(query)))
	}
	return m, cmd
}

func (m *model) handleBrowseKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, nil
	}
	switch key.String() {
	case "up", "down", "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	case "n":
		if m.sess.Browsing() && m.sess.View().Kind() == session.KindDetail {
			return m.runSession(m.sess.NextFavorite())
		}
		return m.runSession(m.sess.SelectRandom())
	case "s":
		m.stage = stageSearch
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		return m, textinput.Blink
	case "r":
		if m.sess.View().Kind() == session.KindError {
			return m.runSession(m.sess.Retry())
		}
		return m.runSession(m.sess.ShowRelated())
	case "b":
		return m.runSession(m.sess.Back())
	case "f":
		return m.runSession(m.sess.ToggleFavorite())
	case "p":
		return m.runSession(m.sess.PlayStop())
	case "v":
		return m.runSession(m.sess.ShowFavorites())
	case "l":
		m.cycleLanguage()
		return m, nil
	case "k":
		m.toggleKind()
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		return m.openIndexed(int(key.String()[0] - '1'))
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "ctrl+d":
		return m.signOut()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// openIndexed maps the 1-9 shortcut onto whichever list is on screen.
func (m *model) openIndexed(index int) (tea.Model, tea.Cmd) {
	v := m.sess.View()
	switch v.Kind() {
	case session.KindSearchResults:
		if index < len(v.Results()) {
			return m.runSession(m.sess.Select(v.Results()[index]))
		}
	case session.KindRelatedResults:
		if index < len(v.Related()) {
			return m.runSession(m.sess.Select(v.Related()[index]))
		}
	case session.KindFavoritesList:
		return m.runSession(m.sess.OpenFavorite(index))
	}
	return m, nil
}

// cycleLanguage advances the random-pick language through catalog order.
func (m *model) cycleLanguage() {
	langs := m.config.Catalog.Languages()
	if len(langs) < 2 {
		return
	}
	current := m.sess.Language()
	next := langs[0].Tag
	for i, lang := range langs {
		if strings.EqualFold(lang.Tag, current) {
			next = langs[(i+1)%len(langs)].Tag
			break
		}
	}
	m.sess.SetLanguage(next)
	m.infoMessage = fmt.Sprintf("Random picks now draw from %s.", next)
}

func (m *model) toggleKind() {
	next := phrase.KindWord
	if m.sess.Kind() == phrase.KindWord {
		next = phrase.KindIdiom
	}
	m.sess.SetKind(next)
	m.infoMessage = fmt.Sprintf("Random picks now draw %ss.", next)
}

func (m *model) signOut() (tea.Model, tea.Cmd) {
	if err := m.config.Accounts.SignOut(); err != nil {
		m.config.Log.Debugf("tui: sign-out failed: %v", err)
	}
	if m.sess != nil {
		m.sess.Shutdown()
	}
	m.sess = nil
	m.stage = stageLogin
	m.errorMessage = ""
	m.infoMessage = "Signed out."
	m.nameInput.SetValue("")
	m.passwordInput.SetValue("")
	m.focusLoginField(0)
	return m, textinput.Blink
}

func (m *model) focusLoginField(field int) {
	m.loginFocus = field
	if field == 0 {
		m.nameInput.Focus()
		m.passwordInput.Blur()
		return
	}
	m.nameInput.Blur()
	m.passwordInput.Focus()
}

func (m *model) runSession(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.markViewportDirty()
	return m, m.withSessionCmd(cmd)
}

// withSessionCmd keeps the spinner and the notice repaint tick alive next
// to whatever work the session scheduled.
func (m *model) withSessionCmd(cmd tea.Cmd) tea.Cmd {
	var cmds []tea.Cmd
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.loadingActive() {
		cmds = append(cmds, m.spinner.Tick)
	}
	if m.sess != nil && len(m.sess.Notices()) > 0 && !m.ticking {
		cmds = append(cmds, m.noticeTick())
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *model) noticeTick() tea.Cmd {
	m.ticking = true
	return tea.Tick(noticeRedrawEvery, func(time.Time) tea.Msg { return noticeTickMsg{} })
}

func (m *model) loadingActive() bool {
	if m.sess == nil {
		return false
	}
	v := m.sess.View()
	switch v.Kind() {
	case session.KindLoading:
		return true
	case session.KindDetail:
		return v.EquivalentsLoading()
	case session.KindSearchResults:
		return v.SearchLoading()
	case session.KindRelatedResults:
		return v.RelatedLoading()
	}
	return false
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	subtitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	heroAccentColor        = lipgloss.Color("#ff8c00")
	heroSecondaryTextColor = lipgloss.Color("#ffb347")

	heroTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	taglineStyle   = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	helpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
)
