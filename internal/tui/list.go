package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpass/internal/credential"
)

// listModel displays stored passwords in a scrollable list.
type listModel struct {
	records []credential.Record
	cursor  int
	flash   string
}

// viewRecordMsg requests viewing a specific record.
type viewRecordMsg struct {
	record credential.Record
}

// forgetStartMsg tells the root model to confirm deleting a record.
type forgetStartMsg struct {
	record credential.Record
}

func newListModel(recs []credential.Record) listModel {
	return listModel{records: recs}
}

func (m listModel) Init() tea.Cmd {
	return nil
}

func (m listModel) Update(msg tea.Msg) (listModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m, nil
}

func (m listModel) handleKey(msg tea.KeyMsg) (listModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewMenu} }
	}

	if len(m.records) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		rec := m.records[m.cursor]
		return m, func() tea.Msg { return viewRecordMsg{record: rec} }
	}

	if msg.String() == "d" {
		rec := m.records[m.cursor]
		return m, func() tea.Msg { return forgetStartMsg{record: rec} }
	}

	return m, nil
}

func (m listModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n"

	if len(m.records) == 0 {
		s += "  " + zstyle.MutedText.Render("no passwords stored") + "\n"
		s += "\n"
		s += m.flashLine()
		return s
	}

	for i, rec := range m.records {
		service := truncate(rec.Service, 24)
		created := rec.CreatedAt.Local().Format("2006-01-02 15:04")
		line := fmt.Sprintf("%-24s %-16s  %s", service, truncate(rec.Masked(), 16), zstyle.MutedText.Render(created))

		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	s += "\n"
	s += m.flashLine()
	return s
}

// flashLine always reserves a line to prevent layout shift.
func (m listModel) flashLine() string {
	if m.flash == "" {
		return "\n"
	}
	return "  " + zstyle.StatusOK.Render(m.flash) + "\n"
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
