package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/store"
)

// openIntegrationStore opens a real sqlite store in a temp dir.
func openIntegrationStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "password_manager.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// setupModel creates a root Model with an open store, bypassing the passphrase.
func setupModel(t *testing.T) (Model, *store.Store, *fakeClip) {
	t.Helper()
	s := openIntegrationStore(t)
	clip := &fakeClip{}
	m := New(Options{
		Context:   context.Background(),
		Version:   "1.0",
		Gen:       generator.New(),
		Policy:    generator.DefaultPolicy(),
		Store:     s,
		Clipboard: clip.copy,
	})
	return m, s, clip
}

// processMsg sends a message through the model and returns the updated model.
func processMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	result, _ := m.Update(msg)
	return result.(Model)
}

// followCmd sends msg and feeds the resulting command's message back in.
func followCmd(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	result, cmd := m.Update(msg)
	m = result.(Model)
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return processMsg(t, m, cmd())
}

func TestIntegrationStartsAtMenu(t *testing.T) {
	m, s, _ := setupModel(t)
	if m.active != viewMenu {
		t.Fatalf("active = %d, want viewMenu", m.active)
	}
	if m.menu.count != 0 {
		t.Errorf("count = %d, want 0", m.menu.count)
	}

	if _, err := s.Save(context.Background(), "github", "Xk9#mQ2p"); err != nil {
		t.Fatal(err)
	}
	m = processMsg(t, m, navigateMsg{view: viewMenu})
	if m.menu.count != 1 {
		t.Errorf("count = %d, want 1", m.menu.count)
	}
}

func TestIntegrationSaveGenerated(t *testing.T) {
	m, s, _ := setupModel(t)
	ctx := context.Background()

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	if m.active != viewGenerate {
		t.Fatalf("active = %d, want viewGenerate", m.active)
	}
	pw := m.generate.password

	m.generate.service.SetValue("github")
	m = followCmd(t, m, enterKey())

	rec, err := s.Get(ctx, "github")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Password != pw {
		t.Errorf("stored password = %q, want %q", rec.Password, pw)
	}
	if m.generate.flash != "saved!" {
		t.Errorf("flash = %q, want saved!", m.generate.flash)
	}
	if m.generate.service.Value() != "" {
		t.Error("service should be cleared after save")
	}
}

func TestIntegrationSaveDuplicate(t *testing.T) {
	m, s, _ := setupModel(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "github", "original"); err != nil {
		t.Fatal(err)
	}

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	m = processMsg(t, m, savePasswordMsg{service: "github", password: "replacement"})

	if m.generate.flash != "service already exists" || !m.generate.flashErr {
		t.Errorf("flash = %q, want duplicate error", m.generate.flash)
	}

	rec, err := s.Get(ctx, "github")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Password != "original" {
		t.Errorf("password = %q, duplicate save must not overwrite", rec.Password)
	}
}

func TestIntegrationSaveEmptyService(t *testing.T) {
	m, s, _ := setupModel(t)

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	m = followCmd(t, m, enterKey())

	if m.generate.flash != "enter both service name and password" {
		t.Errorf("flash = %q, want validation error", m.generate.flash)
	}
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestIntegrationSaveKeepsPolicy(t *testing.T) {
	m, _, _ := setupModel(t)

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	m = processMsg(t, m, keyMsg('+'))
	m = processMsg(t, m, keyMsg('+'))
	m = processMsg(t, m, savePasswordMsg{service: "github", password: m.generate.password})

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	if m.generate.policy.Length != 14 {
		t.Errorf("length = %d, want 14 after returning", m.generate.policy.Length)
	}
}

func TestIntegrationListAndDetail(t *testing.T) {
	m, s, clip := setupModel(t)
	ctx := context.Background()
	for _, svc := range []string{"github", "gitlab"} {
		if _, err := s.Save(ctx, svc, svc+"-pw"); err != nil {
			t.Fatal(err)
		}
	}

	m = processMsg(t, m, navigateMsg{view: viewList})
	if m.active != viewList {
		t.Fatalf("active = %d, want viewList", m.active)
	}
	if len(m.list.records) != 2 || m.list.records[0].Service != "github" {
		t.Fatalf("records = %+v", m.list.records)
	}

	m = processMsg(t, m, keyMsg('j'))
	m = followCmd(t, m, enterKey())
	if m.active != viewDetail {
		t.Fatalf("active = %d, want viewDetail", m.active)
	}
	if m.detail.record.Service != "gitlab" {
		t.Errorf("detail = %q, want gitlab", m.detail.record.Service)
	}

	m = processMsg(t, m, keyMsg('c'))
	if len(clip.copied) != 1 || clip.copied[0] != "gitlab-pw" {
		t.Errorf("copied = %v", clip.copied)
	}

	m = followCmd(t, m, escKey())
	if m.active != viewList {
		t.Errorf("active = %d, want viewList", m.active)
	}
}

func TestIntegrationQRReturnsToGenerate(t *testing.T) {
	m, _, _ := setupModel(t)

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	pw := m.generate.password

	m = followCmd(t, m, keyMsg('v'))
	if m.active != viewQR {
		t.Fatalf("active = %d, want viewQR", m.active)
	}
	if !strings.Contains(m.View(), "QR Code") {
		t.Error("qr view should render its title")
	}

	m = followCmd(t, m, escKey())
	if m.active != viewGenerate {
		t.Fatalf("active = %d, want viewGenerate", m.active)
	}
	if m.generate.password != pw {
		t.Error("returning from qr should keep the generated password")
	}
}

func TestIntegrationQREmptyPassword(t *testing.T) {
	m, _, _ := setupModel(t)

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	m = processMsg(t, m, showQRMsg{label: "generated password", content: ""})

	if m.active != viewGenerate {
		t.Errorf("active = %d, want viewGenerate", m.active)
	}
	if m.generate.flash != "generate or enter a password first" {
		t.Errorf("flash = %q", m.generate.flash)
	}
}

func TestIntegrationForget(t *testing.T) {
	m, s, _ := setupModel(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "github", "Xk9#mQ2p"); err != nil {
		t.Fatal(err)
	}

	m = processMsg(t, m, navigateMsg{view: viewList})
	m = followCmd(t, m, keyMsg('d'))
	if m.active != viewForget {
		t.Fatalf("active = %d, want viewForget", m.active)
	}

	m = followCmd(t, m, keyMsg('y'))
	if m.active != viewList {
		t.Fatalf("active = %d, want viewList", m.active)
	}
	if len(m.list.records) != 0 {
		t.Errorf("records = %d, want 0", len(m.list.records))
	}
	if m.list.flash != "forgot github" {
		t.Errorf("flash = %q, want forgot github", m.list.flash)
	}

	if _, err := s.Get(ctx, "github"); err == nil {
		t.Error("record should be gone from the store")
	}
}

func TestIntegrationForgetCancelled(t *testing.T) {
	m, s, _ := setupModel(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "github", "Xk9#mQ2p"); err != nil {
		t.Fatal(err)
	}

	m = processMsg(t, m, navigateMsg{view: viewList})
	m = followCmd(t, m, keyMsg('d'))
	m = followCmd(t, m, keyMsg('n'))

	if m.active != viewList || len(m.list.records) != 1 {
		t.Errorf("active = %d records = %d, want list with 1", m.active, len(m.list.records))
	}
}

func TestIntegrationPassphraseFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password_manager.db")
	ctx := context.Background()

	m := New(Options{
		Context:  ctx,
		Version:  "1.0",
		FirstRun: true,
		Open: func(p string) (*store.Store, error) {
			return store.Open(ctx, path, store.WithPassphrase([]byte(p)))
		},
	})
	if m.active != viewPassphrase {
		t.Fatalf("active = %d, want viewPassphrase", m.active)
	}

	m = processMsg(t, m, passphraseSubmitMsg{passphrase: "correct horse"})
	if m.active != viewMenu {
		t.Fatalf("active = %d, want viewMenu", m.active)
	}
	if !m.store.Sealed() {
		t.Error("store opened with a passphrase should be sealed")
	}
	if _, err := m.store.Save(ctx, "github", "Xk9#mQ2p"); err != nil {
		t.Fatal(err)
	}
	m.Close()

	// a wrong passphrase keeps the prompt up
	m = New(Options{
		Context: ctx,
		Open: func(p string) (*store.Store, error) {
			return store.Open(ctx, path, store.WithPassphrase([]byte(p)))
		},
	})
	m = processMsg(t, m, passphraseSubmitMsg{passphrase: "wrong"})
	if m.active != viewPassphrase {
		t.Fatalf("active = %d, want viewPassphrase", m.active)
	}
	if !strings.Contains(m.View(), "wrong passphrase") {
		t.Error("should show wrong passphrase error")
	}

	m = processMsg(t, m, passphraseSubmitMsg{passphrase: "correct horse"})
	defer m.Close()
	if m.active != viewMenu || m.menu.count != 1 {
		t.Errorf("active = %d count = %d, want menu with 1", m.active, m.menu.count)
	}
}

func TestIntegrationPassphrasePlaintextDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "password_manager.db")
	ctx := context.Background()

	s, err := store.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "github", "Xk9#mQ2p"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	m := New(Options{
		Context:  ctx,
		FirstRun: true,
		Open: func(p string) (*store.Store, error) {
			return store.Open(ctx, path, store.WithPassphrase([]byte(p)))
		},
	})
	m = processMsg(t, m, passphraseSubmitMsg{passphrase: "correct horse"})
	if m.active != viewPassphrase {
		t.Fatalf("active = %d, want viewPassphrase", m.active)
	}
	if !strings.Contains(m.View(), "open it without --encrypt") {
		t.Error("should explain how to open an unencrypted database")
	}
}

func TestIntegrationQRAfterSave(t *testing.T) {
	m, s, _ := setupModel(t)

	m = processMsg(t, m, navigateMsg{view: viewGenerate})
	m.generate.service.SetValue("github")
	m = followCmd(t, m, enterKey())

	rec, err := s.Get(context.Background(), "github")
	if err != nil {
		t.Fatal(err)
	}
	if m.generate.password != rec.Password {
		t.Fatal("the saved password should stay on screen")
	}

	_, cmd := m.Update(keyMsg('v'))
	show, ok := mustMsg(t, cmd).(showQRMsg)
	if !ok || show.content != rec.Password {
		t.Error("qr after a save should encode the saved password")
	}
}

func TestIntegrationRootQuit(t *testing.T) {
	m := New(Options{})
	if _, cmd := m.Update(specialKey(tea.KeyCtrlC)); !isQuit(cmd) {
		t.Error("ctrl+c should quit from the passphrase view")
	}

	m, _, _ = setupModel(t)
	if _, cmd := m.Update(keyMsg('q')); !isQuit(cmd) {
		t.Error("q should quit from the menu")
	}
}
