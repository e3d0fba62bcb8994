package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpass/internal/credential"
)

// detailModel displays one stored password.
type detailModel struct {
	record   credential.Record
	revealed bool
	flash    string
	flashErr bool
	clip     func(string) error
}

func newDetailModel(rec credential.Record, clip func(string) error) detailModel {
	return detailModel{record: rec, clip: clip}
}

func (m detailModel) Init() tea.Cmd {
	return nil
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		m.flashErr = false
		return m, nil
	}

	return m, nil
}

func (m detailModel) handleKey(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewList} }
	}

	switch msg.String() {
	case "r":
		m.revealed = !m.revealed
		return m, nil

	case "c":
		if err := m.clip(m.record.Password); err != nil {
			return m.setError("copy: " + err.Error()), clearFlashAfter()
		}
		m.flash, m.flashErr = "copied!", false
		return m, clearFlashAfter()

	case "v":
		rec := m.record
		return m, func() tea.Msg { return showQRMsg{label: rec.Service, content: rec.Password} }

	case "d":
		rec := m.record
		return m, func() tea.Msg { return forgetStartMsg{record: rec} }
	}

	return m, nil
}

func (m detailModel) View() string {
	s := "\n  " + zstyle.Subtitle.Render(m.record.Service) + "\n\n"

	pw := m.record.Masked()
	if m.revealed {
		pw = m.record.Password
	}

	s += "    " + zstyle.MutedText.Render(fmt.Sprintf("%-10s", "password")) + " " + pw + "\n"
	s += "    " + zstyle.MutedText.Render(fmt.Sprintf("%-10s", "created")) + " " +
		m.record.CreatedAt.Local().Format(time.DateTime) + "\n"

	s += "\n"

	// always reserve a line for flash to prevent layout shift
	switch {
	case m.flash == "":
		s += "\n"
	case m.flashErr:
		s += "  " + zstyle.StatusErr.Render(m.flash) + "\n"
	default:
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	}

	return s
}

func (m detailModel) setError(msg string) detailModel {
	m.flash = msg
	m.flashErr = true
	return m
}
