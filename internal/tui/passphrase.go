package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
)

type passphraseStep int

const (
	stepEnter passphraseStep = iota
	stepConfirm
)

// passphraseModel unlocks a sealed database, or seals a new one when create
// is set. sealing asks for the passphrase twice.
type passphraseModel struct {
	input    textinput.Model
	create   bool
	step     passphraseStep
	first    string
	failures int
	errMsg   string
}

// passphraseSubmitMsg carries a passphrase to open the store with.
type passphraseSubmitMsg struct {
	passphrase string
}

// passphraseErrMsg reports that the store refused to open.
type passphraseErrMsg struct {
	err error
}

func newPassphraseModel(create bool) passphraseModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	return passphraseModel{input: ti, create: create}
}

func (m passphraseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m passphraseModel) Update(msg tea.Msg) (passphraseModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// q is a valid passphrase character, only ctrl+c leaves
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if key.Matches(msg, zstyle.KeyEnter) {
			return m.submit()
		}

	case passphraseErrMsg:
		m.failures++
		return m.restart(msg.err.Error()), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m passphraseModel) submit() (passphraseModel, tea.Cmd) {
	val := m.input.Value()
	if val == "" {
		return m, nil
	}

	if m.create {
		switch {
		case m.step == stepEnter:
			m.first = val
			m.step = stepConfirm
			m.errMsg = ""
			m.input.SetValue("")
			return m, nil
		case val != m.first:
			return m.restart("passphrases do not match"), nil
		}
	}

	m.errMsg = ""
	return m, func() tea.Msg { return passphraseSubmitMsg{passphrase: val} }
}

// restart clears the input and goes back to the first entry.
func (m passphraseModel) restart(errMsg string) passphraseModel {
	m.errMsg = errMsg
	m.step = stepEnter
	m.first = ""
	m.input.SetValue("")
	return m
}

func (m passphraseModel) prompt() string {
	switch {
	case m.create && m.step == stepConfirm:
		return "confirm passphrase:"
	case m.create:
		return "create passphrase:"
	}
	return "passphrase:"
}

func (m passphraseModel) hint() string {
	if m.create {
		return "stored passwords will be sealed with this passphrase"
	}
	return "this database is sealed"
}

func (m passphraseModel) View() string {
	title := lipgloss.NewStyle().Foreground(accent).Bold(true).Render("zpass")

	s := "\n  " + title + "\n"
	s += "  " + zstyle.MutedText.Render(m.hint()) + "\n\n"
	s += "  " + m.prompt() + "\n"
	s += "  " + m.input.View() + "\n"

	if m.errMsg != "" {
		msg := m.errMsg
		if m.failures > 1 {
			msg = fmt.Sprintf("%s (%d attempts)", msg, m.failures)
		}
		s += "\n  " + zstyle.StatusErr.Render(msg) + "\n"
	}

	return s
}
