package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/snapwatch/internal/bootstrap"
	"github.com/five82/snapwatch/internal/bus"
	"github.com/five82/snapwatch/internal/config"
	"github.com/five82/snapwatch/internal/prefs"
	"github.com/five82/snapwatch/internal/query"
	"github.com/five82/snapwatch/internal/snapshot"
	"github.com/five82/snapwatch/internal/ui"
)

// bootstrapTimeout bounds the lookup made before the UI starts.
const bootstrapTimeout = 5 * time.Second

// Options configure the snapwatch client.
type Options struct {
	ConfigPath string
	SnapshotID string // empty opens the listing
	Theme      string // empty uses the saved, then the configured theme
	PrefsPath  string // empty uses ~/.config/snapwatch/prefs.toml
}

// Run boots the snapwatch TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := newFileLogger(cfg.LogFile, cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog.Close()

	client, err := snapshot.NewClient(cfg.APIBind)
	if err != nil {
		return fmt.Errorf("init snapshot client: %w", err)
	}

	poller := query.NewPoller(client, client, query.Options{
		Bus:    bus.New(),
		Logger: logger,
	})
	defer poller.Close()

	prefsFile, err := prefs.Open(opts.PrefsPath)
	if err != nil {
		return err
	}
	theme := pickTheme(opts.Theme, prefsFile.Load().Theme, cfg.Theme)

	logger.Info("snapwatch starting", "api", cfg.APIBind, "snapshot", opts.SnapshotID)
	return ui.Run(ui.Options{
		Context:   ctx,
		Poller:    poller,
		Lister:    client,
		Fetcher:   client,
		ThemeName: theme,
		Prefs:     prefsFile,
		Logger:    logger,
		StaticURL: cfg.StaticURL,
		Initial:   openInitial(ctx, client, opts.SnapshotID, logger),
	})
}

// pickTheme returns the first non-blank of the flag, the saved preference and
// the config value.
func pickTheme(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return ""
}

// openInitial runs the bootstrap lookup for id before the first frame. It
// returns nil when no id was requested.
func openInitial(ctx context.Context, lookup snapshot.Fetcher, id string, logger *slog.Logger) *ui.Bootstrap {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	seed, err := bootstrap.Load(ctx, lookup, id)
	if err != nil {
		logger.Warn("bootstrap failed", "id", id, "error", err)
	}
	return &ui.Bootstrap{ID: id, Seed: seed, Err: err}
}

// newFileLogger writes text logs to path. The terminal belongs to the TUI.
func newFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(h), f, nil
}
