package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run mounts the TUI and blocks until the user quits. Alt-screen can be
// disabled for terminals that misbehave with the secondary buffer. Playback
// started from the final session is stopped before returning.
func Run(config Config, altScreen bool) error {
	opts := []tea.ProgramOption{}
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(New(config), opts...)
	final, err := program.Run()
	if m, ok := final.(*model); ok && m.sess != nil {
		m.sess.Shutdown()
	}
	return err
}
