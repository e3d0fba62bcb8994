// Package tui implements the root Bubble Tea model for zpass.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/zpass/internal/credential"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/qr"
	"github.com/zarlcorp/zpass/internal/seal"
	"github.com/zarlcorp/zpass/internal/store"
)

// accent is the zpass color, the zarlcorp mauve used for secrets.
var accent = zstyle.ZvaultAccent

type viewID int

const (
	viewPassphrase viewID = iota
	viewMenu
	viewGenerate
	viewList
	viewDetail
	viewQR
	viewForget
)

// Options wires the model to its collaborators.
type Options struct {
	Context context.Context
	Version string
	Gen     *generator.Generator
	Policy  generator.Policy

	// Store is the open store. when nil the model asks for a passphrase
	// and calls Open with it.
	Store    *store.Store
	Open     func(passphrase string) (*store.Store, error)
	FirstRun bool

	Clipboard func(text string) error
}

// Model is the root TUI model.
type Model struct {
	ctx       context.Context
	version   string
	gen       *generator.Generator
	policy    generator.Policy
	store     *store.Store
	ownsStore bool
	open      func(string) (*store.Store, error)
	clipboard func(string) error

	active   viewID
	unlock   passphraseModel
	menu     menuModel
	generate generateModel
	list     listModel
	detail   detailModel
	qr       qrModel
	forget   forgetModel

	// terminal dimensions
	width  int
	height int
}

// New creates the root TUI model.
func New(opts Options) Model {
	m := Model{
		ctx:       opts.Context,
		version:   opts.Version,
		gen:       opts.Gen,
		policy:    opts.Policy,
		store:     opts.Store,
		open:      opts.Open,
		clipboard: opts.Clipboard,
		menu:      newMenuModel(opts.Version),
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.gen == nil {
		m.gen = generator.New()
	}
	if m.policy.Length == 0 {
		m.policy = generator.DefaultPolicy()
	}
	if m.clipboard == nil {
		m.clipboard = copyToClipboard
	}

	if m.store == nil {
		m.active = viewPassphrase
		m.unlock = newPassphraseModel(opts.FirstRun)
	} else {
		m.active = viewMenu
		m.menu.count = m.count()
	}

	return m
}

// Close releases a store the model opened itself.
func (m Model) Close() {
	if m.ownsStore && m.store != nil {
		m.store.Close()
	}
}

func (m Model) Init() tea.Cmd {
	if m.active == viewPassphrase {
		return m.unlock.Init()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case passphraseSubmitMsg:
		return m.openStore(msg.passphrase)

	case navigateMsg:
		return m.navigate(msg.view)

	case backMsg:
		m.active = msg.view
		return m, tea.ClearScreen

	case savePasswordMsg:
		return m.handleSave(msg.service, msg.password)

	case viewRecordMsg:
		m.detail = newDetailModel(msg.record, m.clipboard)
		m.active = viewDetail
		return m, nil

	case showQRMsg:
		return m.showQR(msg)

	case forgetStartMsg:
		m.forget = newForgetModel(msg.record)
		m.active = viewForget
		return m, nil

	case forgetRecordMsg:
		return m.handleForget(msg.record)
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	// passphrase and menu render their own heading
	switch m.active {
	case viewPassphrase:
		return m.unlock.View()
	case viewMenu:
		return m.menu.View()
	}

	var content string
	switch m.active {
	case viewGenerate:
		content = m.generate.View()
	case viewList:
		content = m.list.View()
	case viewDetail:
		content = m.detail.View()
	case viewQR:
		content = m.qr.View()
	case viewForget:
		content = m.forget.View()
	}

	header := zstyle.RenderHeader("zpass", viewTitle(m.active), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(helpFor(m.active))

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

// viewTitle returns the display title for each view.
func viewTitle(id viewID) string {
	switch id {
	case viewGenerate:
		return "Generate Password"
	case viewList:
		return "Stored Passwords"
	case viewDetail:
		return "Password"
	case viewQR:
		return "QR Code"
	case viewForget:
		return "Forget"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func helpFor(id viewID) []zstyle.HelpPair {
	switch id {
	case viewGenerate:
		return []zstyle.HelpPair{
			{Key: "g", Desc: "generate"},
			{Key: "+/-", Desc: "length"},
			{Key: "u/l/d/s", Desc: "classes"},
			{Key: "r", Desc: "show/hide"},
			{Key: "c", Desc: "copy"},
			{Key: "v", Desc: "qr"},
			{Key: "tab", Desc: "service"},
			{Key: "esc", Desc: "back"},
		}
	case viewList:
		return []zstyle.HelpPair{
			{Key: "j/k", Desc: "navigate"},
			{Key: "enter", Desc: "view"},
			{Key: "d", Desc: "forget"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewDetail:
		return []zstyle.HelpPair{
			{Key: "r", Desc: "reveal"},
			{Key: "c", Desc: "copy"},
			{Key: "v", Desc: "qr"},
			{Key: "d", Desc: "forget"},
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewQR:
		return []zstyle.HelpPair{
			{Key: "esc", Desc: "back"},
			{Key: "q", Desc: "quit"},
		}
	case viewForget:
		return []zstyle.HelpPair{
			{Key: "y", Desc: "confirm"},
			{Key: "n", Desc: "cancel"},
			{Key: "q", Desc: "quit"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewPassphrase:
		m.unlock, cmd = m.unlock.Update(msg)
	case viewMenu:
		m.menu, cmd = m.menu.Update(msg)
	case viewGenerate:
		m.generate, cmd = m.generate.Update(msg)
	case viewList:
		m.list, cmd = m.list.Update(msg)
	case viewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case viewQR:
		m.qr, cmd = m.qr.Update(msg)
	case viewForget:
		m.forget, cmd = m.forget.Update(msg)
	}

	return m, cmd
}

func (m Model) openStore(passphrase string) (tea.Model, tea.Cmd) {
	if m.open == nil {
		m.unlock, _ = m.unlock.Update(passphraseErrMsg{err: errors.New("no store configured")})
		return m, nil
	}

	s, err := m.open(passphrase)
	if err != nil {
		m.unlock, _ = m.unlock.Update(passphraseErrMsg{err: errors.New(errorText(err))})
		return m, nil
	}

	m.store = s
	m.ownsStore = true
	return m.navigate(viewMenu)
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	switch view {
	case viewMenu:
		mm := newMenuModel(m.version)
		mm.count = m.count()
		m.menu = mm
		m.active = viewMenu
		return m, tea.ClearScreen

	case viewGenerate:
		m.generate = newGenerateModel(m.gen, m.policy, m.clipboard)
		m.active = viewGenerate
		return m, tea.Batch(m.generate.Init(), tea.ClearScreen)

	case viewList:
		m, cmd := m.loadList()
		return m, tea.Batch(cmd, tea.ClearScreen)

	case viewDetail:
		m.active = viewDetail
		return m, tea.ClearScreen
	}

	return m, nil
}

func (m Model) count() int {
	if m.store == nil {
		return 0
	}
	n, err := m.store.Count(m.ctx)
	if err != nil {
		return 0
	}
	return n
}

func (m Model) loadList() (Model, tea.Cmd) {
	recs, err := m.store.List(m.ctx)
	if err != nil {
		// show empty list with error flash
		m.list = newListModel(nil)
		m.list.flash = "load: " + err.Error()
		m.active = viewList
		return m, clearFlashAfter()
	}

	m.list = newListModel(recs)
	m.active = viewList
	return m, nil
}

func (m Model) handleSave(service, password string) (tea.Model, tea.Cmd) {
	if _, err := m.store.Save(m.ctx, service, password); err != nil {
		m.generate = m.generate.setError(errorText(err))
		return m, clearFlashAfter()
	}

	// keep the policy the user settled on for the next visit
	m.policy = m.generate.policy
	m.generate, _ = m.generate.Update(passwordSavedMsg{})
	return m, clearFlashAfter()
}

func (m Model) showQR(msg showQRMsg) (tea.Model, tea.Cmd) {
	code, err := qr.Terminal(msg.content)
	if err != nil {
		text := errorText(err)
		switch m.active {
		case viewGenerate:
			m.generate = m.generate.setError(text)
		case viewDetail:
			m.detail = m.detail.setError(text)
		}
		return m, clearFlashAfter()
	}

	m.qr = newQRModel(msg.label, code, m.active)
	if m.active == viewGenerate {
		m.policy = m.generate.policy
	}
	m.active = viewQR
	return m, tea.ClearScreen
}

func (m Model) handleForget(rec credential.Record) (tea.Model, tea.Cmd) {
	if err := m.store.Delete(m.ctx, rec.Service); err != nil {
		m.forget.err = err.Error()
		return m, nil
	}

	m2, cmd := m.loadList()
	m2.list.flash = "forgot " + rec.Service
	return m2, tea.Batch(cmd, clearFlashAfter())
}

// errorText turns core errors into messages for the user.
func errorText(err error) string {
	switch {
	case errors.Is(err, generator.ErrNoCharacterClass):
		return "select at least one character type"
	case errors.Is(err, credential.ErrInvalid):
		return "enter both service name and password"
	case errors.Is(err, store.ErrDuplicateService):
		return "service already exists"
	case errors.Is(err, store.ErrNotFound):
		return "service not found"
	case errors.Is(err, qr.ErrEmpty):
		return "generate or enter a password first"
	case errors.Is(err, seal.ErrWrongPassphrase):
		return "wrong passphrase"
	case errors.Is(err, store.ErrPlaintextRecords):
		return "database holds unencrypted passwords, open it without --encrypt"
	case errors.Is(err, store.ErrLocked):
		return "database is encrypted, open it with --encrypt"
	}
	return err.Error()
}
