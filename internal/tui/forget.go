package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpass/internal/credential"
)

// forgetRecordMsg requests deleting a record.
type forgetRecordMsg struct {
	record credential.Record
}

// forgetModel asks for confirmation before a record is deleted.
type forgetModel struct {
	record credential.Record
	err    string
}

func newForgetModel(rec credential.Record) forgetModel {
	return forgetModel{record: rec}
}

func (m forgetModel) Init() tea.Cmd {
	return nil
}

func (m forgetModel) Update(msg tea.Msg) (forgetModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	// quit always works
	if key.Matches(keyMsg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if keyMsg.String() == "y" {
		rec := m.record
		return m, func() tea.Msg { return forgetRecordMsg{record: rec} }
	}

	// any other key cancels
	return m, func() tea.Msg { return navigateMsg{view: viewList} }
}

func (m forgetModel) View() string {
	s := "\n  " + zstyle.Subtitle.Render("forget "+m.record.Service+"?") + "\n\n"
	s += "  " + zstyle.StatusWarn.Render("this cannot be undone.") + " (y/n)\n"

	if m.err != "" {
		s += "\n  " + zstyle.StatusErr.Render(m.err) + "\n"
	}

	return s
}
