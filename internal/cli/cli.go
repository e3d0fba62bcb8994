// Package cli implements zpass's command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/zarlcorp/zpass/internal/config"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/store"
	"github.com/zarlcorp/zpass/internal/tui"
	"golang.org/x/term"
)

// Deps are the collaborators main injects into the command tree.
type Deps struct {
	Version string
	Config  config.Config
	Gen     *generator.Generator
	Logger  *slog.Logger
	Stdout  io.Writer
	Stderr  io.Writer

	// Prompt reads a secret without echo. defaults to ReadPassword on Stderr.
	Prompt func(prompt string) (string, error)

	// Clipboard writes text to the system clipboard.
	Clipboard func(text string) error

	// RunTUI runs the interactive interface.
	RunTUI func(ctx context.Context, opts tui.Options) error
}

type app struct {
	Deps
	dbPath  string
	encrypt bool
}

// NewRootCmd builds the zpass command tree. running it with no subcommand
// starts the TUI.
func NewRootCmd(d Deps) *cobra.Command {
	a := &app{Deps: d}
	if a.Gen == nil {
		a.Gen = generator.New()
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Stdout == nil {
		a.Stdout = os.Stdout
	}
	if a.Stderr == nil {
		a.Stderr = os.Stderr
	}
	if a.Prompt == nil {
		a.Prompt = func(prompt string) (string, error) {
			return ReadPassword(prompt, a.Stderr)
		}
	}
	if a.Clipboard == nil {
		a.Clipboard = clipboard.WriteAll
	}

	root := &cobra.Command{
		Use:           "zpass",
		Short:         "generate, store and share passwords",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          a.runTUI,
	}
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.dbPath, "db", a.Config.DBPath, "database file")
	pf.BoolVar(&a.encrypt, "encrypt", a.Config.Encrypt, "encrypt stored passwords with a passphrase")

	root.AddCommand(
		a.versionCmd(),
		a.generateCmd(),
		a.saveCmd(),
		a.listCmd(),
		a.showCmd(),
		a.qrCmd(),
		a.forgetCmd(),
	)

	return root
}

// ReadPassword prompts on w and reads a line from stdin without echo.
func ReadPassword(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// ReadNewPassword prompts twice and requires both entries to match.
func ReadNewPassword(prompt func(string) (string, error)) (string, error) {
	pass, err := prompt("new passphrase: ")
	if err != nil {
		return "", err
	}
	confirm, err := prompt("confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passphrases do not match")
	}
	if pass == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	return pass, nil
}

func (a *app) passphrase(ctx context.Context) (string, error) {
	if !a.encrypt {
		return "", nil
	}
	fresh, err := a.needsNewPassphrase(ctx)
	if err != nil {
		return "", err
	}
	if fresh {
		return ReadNewPassword(a.Prompt)
	}
	return a.Prompt("passphrase: ")
}

// needsNewPassphrase reports whether the database is not sealed yet, so the
// passphrase must be chosen and confirmed. a database that already holds
// plaintext records cannot be sealed.
func (a *app) needsNewPassphrase(ctx context.Context) (bool, error) {
	s, err := store.Open(ctx, a.dbPath, store.WithLogger(a.Logger))
	if errors.Is(err, store.ErrLocked) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer s.Close()

	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, fmt.Errorf("encrypt %s: %w", a.dbPath, store.ErrPlaintextRecords)
	}
	return true, nil
}

func (a *app) storeOptions(pass string) []store.Option {
	opts := []store.Option{store.WithLogger(a.Logger)}
	if pass != "" {
		opts = append(opts, store.WithPassphrase([]byte(pass)))
	}
	return opts
}

// openStore prompts for a passphrase when encryption is on and opens the store.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	pass, err := a.passphrase(ctx)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, a.dbPath, a.storeOptions(pass)...)
}

func (a *app) runTUI(cmd *cobra.Command, _ []string) error {
	if a.RunTUI == nil {
		return fmt.Errorf("no interactive interface available")
	}

	ctx := cmd.Context()
	opts := tui.Options{
		Context: ctx,
		Version: a.Version,
		Gen:     a.Gen,
		Policy:  a.Config.Policy(),
		Open: func(pass string) (*store.Store, error) {
			return store.Open(ctx, a.dbPath, a.storeOptions(pass)...)
		},
		Clipboard: a.Clipboard,
	}

	if a.encrypt {
		fresh, err := a.needsNewPassphrase(ctx)
		if err != nil {
			return err
		}
		opts.FirstRun = fresh
		return a.RunTUI(ctx, opts)
	}

	// without encryption there is nothing to ask, so open up front. a
	// sealed database still gets the passphrase prompt.
	s, err := store.Open(ctx, a.dbPath, a.storeOptions("")...)
	switch {
	case errors.Is(err, store.ErrLocked):
	case err != nil:
		return err
	default:
		defer s.Close()
		opts.Store = s
	}

	return a.RunTUI(ctx, opts)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
