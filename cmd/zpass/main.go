package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zpass/internal/cli"
	"github.com/zarlcorp/zpass/internal/config"
	"github.com/zarlcorp/zpass/internal/generator"
	"github.com/zarlcorp/zpass/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zpass"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zpass: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	// Load already rejected an invalid level
	lvl, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	root := cli.NewRootCmd(cli.Deps{
		Version: version,
		Config:  cfg,
		Gen:     generator.New(),
		Logger:  logger,
		RunTUI:  runTUI,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "zpass: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func runTUI(ctx context.Context, opts tui.Options) error {
	p := tea.NewProgram(tui.New(opts), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := finalModel.(tui.Model); ok {
		fm.Close()
	}

	return nil
}
