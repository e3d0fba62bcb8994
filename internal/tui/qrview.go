package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// qrModel shows a password as a terminal QR code.
type qrModel struct {
	label string
	code  string
	back  viewID
}

// showQRMsg requests a QR code for content.
type showQRMsg struct {
	label   string
	content string
}

func newQRModel(label, code string, back viewID) qrModel {
	return qrModel{label: label, code: code, back: back}
}

func (m qrModel) Init() tea.Cmd {
	return nil
}

func (m qrModel) Update(msg tea.Msg) (qrModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(keyMsg, zstyle.KeyBack) {
		back := m.back
		return m, func() tea.Msg { return backMsg{view: back} }
	}

	return m, nil
}

func (m qrModel) View() string {
	s := "\n  " + zstyle.Subtitle.Render(m.label) + "\n\n"
	for _, line := range strings.Split(strings.TrimRight(m.code, "\n"), "\n") {
		s += "  " + line + "\n"
	}
	return s
}
