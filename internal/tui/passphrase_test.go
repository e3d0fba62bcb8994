package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPassphraseUnlockView(t *testing.T) {
	m := newPassphraseModel(false)
	view := m.View()

	for _, want := range []string{"zpass", "this database is sealed", "passphrase:"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
	if strings.Contains(view, "create") {
		t.Error("unlock view should not offer to create a passphrase")
	}
}

func TestPassphraseCreateView(t *testing.T) {
	m := newPassphraseModel(true)
	view := m.View()

	if !strings.Contains(view, "create passphrase:") {
		t.Error("create view should ask for a new passphrase")
	}
	if !strings.Contains(view, "sealed with this passphrase") {
		t.Error("create view should explain what the passphrase seals")
	}
}

func TestPassphraseQIsInput(t *testing.T) {
	m := newPassphraseModel(false)

	m, cmd := m.Update(keyMsg('q'))
	if isQuit(cmd) {
		t.Fatal("q should not quit the passphrase view")
	}
	if m.input.Value() != "q" {
		t.Fatalf("input = %q, want q", m.input.Value())
	}
}

func TestPassphraseCtrlCQuits(t *testing.T) {
	m := newPassphraseModel(false)

	if _, cmd := m.Update(specialKey(tea.KeyCtrlC)); !isQuit(cmd) {
		t.Fatal("ctrl+c should quit")
	}
}

func TestPassphraseUnlockSubmits(t *testing.T) {
	m := newPassphraseModel(false)
	m.input.SetValue("correct horse")

	_, cmd := m.Update(enterKey())
	submit, ok := mustMsg(t, cmd).(passphraseSubmitMsg)
	if !ok {
		t.Fatal("enter should emit passphraseSubmitMsg")
	}
	if submit.passphrase != "correct horse" {
		t.Errorf("passphrase = %q, want correct horse", submit.passphrase)
	}
}

func TestPassphraseEmptyIgnored(t *testing.T) {
	m := newPassphraseModel(true)

	m, cmd := m.Update(enterKey())
	if cmd != nil {
		t.Error("empty passphrase should not submit")
	}
	if m.step != stepEnter {
		t.Error("empty passphrase should not advance to confirmation")
	}
}

func TestPassphraseCreateConfirms(t *testing.T) {
	m := newPassphraseModel(true)

	m.input.SetValue("correct horse")
	m, cmd := m.Update(enterKey())
	if cmd != nil {
		t.Fatal("first entry should not submit")
	}
	if m.step != stepConfirm || m.input.Value() != "" {
		t.Fatal("first entry should move to an empty confirmation")
	}
	if !strings.Contains(m.View(), "confirm passphrase:") {
		t.Error("should show the confirm prompt")
	}

	m.input.SetValue("correct horse")
	_, cmd = m.Update(enterKey())
	submit, ok := mustMsg(t, cmd).(passphraseSubmitMsg)
	if !ok || submit.passphrase != "correct horse" {
		t.Errorf("matching confirmation should submit, got %+v", submit)
	}
}

func TestPassphraseCreateMismatch(t *testing.T) {
	m := newPassphraseModel(true)

	m.input.SetValue("correct horse")
	m, _ = m.Update(enterKey())
	m.input.SetValue("battery staple")
	m, cmd := m.Update(enterKey())

	if cmd != nil {
		t.Error("mismatch should not submit")
	}
	if m.step != stepEnter || m.first != "" {
		t.Error("mismatch should restart from the first entry")
	}
	if !strings.Contains(m.View(), "passphrases do not match") {
		t.Error("should show the mismatch error")
	}
	if m.failures != 0 {
		t.Error("a mismatch is not a failed unlock")
	}
}

func TestPassphraseErrorCountsAttempts(t *testing.T) {
	m := newPassphraseModel(false)

	m.input.SetValue("wrong")
	m, _ = m.Update(passphraseErrMsg{err: errTest("wrong passphrase")})
	if m.input.Value() != "" {
		t.Error("input should clear after a refused passphrase")
	}
	view := m.View()
	if !strings.Contains(view, "wrong passphrase") || strings.Contains(view, "attempts") {
		t.Errorf("first failure should show the bare error, got %q", view)
	}

	m, _ = m.Update(passphraseErrMsg{err: errTest("wrong passphrase")})
	if !strings.Contains(m.View(), "wrong passphrase (2 attempts)") {
		t.Error("repeated failures should show the attempt count")
	}
}

func TestPassphraseErrorRestartsCreate(t *testing.T) {
	m := newPassphraseModel(true)
	m.input.SetValue("correct horse")
	m, _ = m.Update(enterKey())

	m, _ = m.Update(passphraseErrMsg{err: errTest("storage unavailable")})
	if m.step != stepEnter {
		t.Error("a refused store should restart passphrase creation")
	}
}
