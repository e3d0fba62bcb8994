package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpass/internal/generator"
)

type generateFocus int

const (
	focusOptions generateFocus = iota
	focusService
)

// generateModel builds a password from a policy and saves it under a service.
type generateModel struct {
	gen      *generator.Generator
	policy   generator.Policy
	password string
	visible  bool
	service  textinput.Model
	focus    generateFocus
	flash    string
	flashErr bool
	clip     func(string) error
}

// savePasswordMsg requests saving a password under a service name.
type savePasswordMsg struct {
	service  string
	password string
}

// passwordSavedMsg confirms the password was saved.
type passwordSavedMsg struct{}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

func newGenerateModel(gen *generator.Generator, policy generator.Policy, clip func(string) error) generateModel {
	ti := textinput.New()
	ti.Placeholder = "service name"
	ti.CharLimit = 256
	ti.Width = 40

	m := generateModel{
		gen:     gen,
		policy:  policy,
		service: ti,
		clip:    clip,
	}
	m.policy.Length = generator.ClampLength(m.policy.Length)
	m, _ = m.regenerate()
	return m
}

func (m generateModel) Init() tea.Cmd {
	if m.flash != "" {
		return clearFlashAfter()
	}
	return nil
}

func (m generateModel) Update(msg tea.Msg) (generateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.focus == focusService {
			return m.handleServiceKey(msg)
		}
		return m.handleKey(msg)

	case passwordSavedMsg:
		// the saved password stays up so it can still be copied or shown as qr
		m.service.SetValue("")
		m.service.Blur()
		m.focus = focusOptions
		return m.setFlash("saved!"), nil

	case flashMsg:
		m.flash = ""
		m.flashErr = false
		return m, nil
	}

	if m.focus == focusService {
		var cmd tea.Cmd
		m.service, cmd = m.service.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m generateModel) handleServiceKey(msg tea.KeyMsg) (generateModel, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) || key.Matches(msg, zstyle.KeyTab) {
		m.service.Blur()
		m.focus = focusOptions
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m, m.save()
	}

	var cmd tea.Cmd
	m.service, cmd = m.service.Update(msg)
	return m, cmd
}

func (m generateModel) handleKey(msg tea.KeyMsg) (generateModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	if key.Matches(msg, zstyle.KeyBack) {
		return m, func() tea.Msg { return navigateMsg{view: viewMenu} }
	}

	if key.Matches(msg, zstyle.KeyTab) {
		m.focus = focusService
		cmd := m.service.Focus()
		return m, cmd
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		return m, m.save()
	}

	switch msg.String() {
	case "g":
		return m.regenerate()

	case "+", "=":
		m.policy.Length = generator.ClampLength(m.policy.Length + 1)
		return m.regenerate()

	case "-", "_":
		m.policy.Length = generator.ClampLength(m.policy.Length - 1)
		return m.regenerate()

	case "u":
		m.policy.Upper = !m.policy.Upper
		return m.regenerate()

	case "l":
		m.policy.Lower = !m.policy.Lower
		return m.regenerate()

	case "d":
		m.policy.Digits = !m.policy.Digits
		return m.regenerate()

	case "s":
		m.policy.Symbols = !m.policy.Symbols
		return m.regenerate()

	case "r":
		m.visible = !m.visible
		return m, nil

	case "c":
		if m.password == "" {
			return m.setError("generate or enter a password first"), clearFlashAfter()
		}
		if err := m.clip(m.password); err != nil {
			return m.setError("copy: " + err.Error()), clearFlashAfter()
		}
		return m.setFlash("copied!"), clearFlashAfter()

	case "v":
		pw := m.password
		return m, func() tea.Msg { return showQRMsg{label: "generated password", content: pw} }
	}

	return m, nil
}

// regenerate replaces the password using the current policy. on failure the
// previous password stays and the error is flashed.
func (m generateModel) regenerate() (generateModel, tea.Cmd) {
	pw, err := m.gen.Generate(m.policy)
	if err != nil {
		return m.setError(errorText(err)), clearFlashAfter()
	}
	m.password = pw
	return m, nil
}

func (m generateModel) save() tea.Cmd {
	service := strings.TrimSpace(m.service.Value())
	pw := m.password
	return func() tea.Msg { return savePasswordMsg{service: service, password: pw} }
}

func (m generateModel) setFlash(msg string) generateModel {
	m.flash = msg
	m.flashErr = false
	return m
}

func (m generateModel) setError(msg string) generateModel {
	m.flash = msg
	m.flashErr = true
	return m
}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}

func (m generateModel) shown() string {
	if m.visible {
		return m.password
	}
	return strings.Repeat("*", len(m.password))
}

func (m generateModel) View() string {
	s := "\n"

	label := zstyle.MutedText.Render(fmt.Sprintf("%-10s", "password"))
	s += "  " + label + " " + zstyle.Highlight.Render(m.shown()) + "\n\n"

	s += "  " + zstyle.MutedText.Render(fmt.Sprintf("%-10s", "length")) + fmt.Sprintf(" %d\n", m.policy.Length)
	s += "  " + zstyle.MutedText.Render(fmt.Sprintf("%-10s", "classes")) + " " + m.classes() + "\n\n"

	svc := zstyle.MutedText.Render(fmt.Sprintf("%-10s", "service"))
	if m.focus == focusService {
		s += zstyle.ActiveBorder.Render("> "+svc+" "+m.service.View()) + "\n"
	} else {
		s += "  " + svc + " " + m.service.View() + "\n"
	}

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

func (m generateModel) classes() string {
	toggles := []struct {
		key string
		on  bool
	}{
		{"u upper", m.policy.Upper},
		{"l lower", m.policy.Lower},
		{"d digits", m.policy.Digits},
		{"s symbols", m.policy.Symbols},
	}

	parts := make([]string, 0, len(toggles))
	for _, t := range toggles {
		if t.on {
			parts = append(parts, zstyle.StatusOK.Render("[x] "+t.key))
		} else {
			parts = append(parts, zstyle.MutedText.Render("[ ] "+t.key))
		}
	}
	return strings.Join(parts, "  ")
}
