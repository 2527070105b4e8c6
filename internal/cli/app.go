package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/calvinalkan/grocer/internal/config"
	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/intake"
	"github.com/calvinalkan/grocer/internal/parse"
	"github.com/calvinalkan/grocer/internal/remote"
	"github.com/calvinalkan/grocer/internal/section"
	"github.com/calvinalkan/grocer/internal/store"
)

// app holds what commands share. The store is opened on first use so that
// commands like print-config and health never touch the data directory.
type app struct {
	cfg        *config.Config
	env        map[string]string
	log        *slog.Logger
	classifier *section.Classifier
	registry   *prometheus.Registry

	kv       store.KV
	lists    *grocery.Manager
	pipeline *intake.Pipeline
}

func newApp(cfg *config.Config, env map[string]string, errOut io.Writer) *app {
	return &app{
		cfg:        cfg,
		env:        env,
		log:        newLogger(errOut, cfg.Level),
		classifier: section.Default(),
		registry:   prometheus.NewRegistry(),
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
		Level:      level,
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// manager opens the store and returns the owner's list manager.
func (a *app) manager(ctx context.Context) (*grocery.Manager, error) {
	if a.lists != nil {
		return a.lists, nil
	}

	kv, err := store.Open(ctx, a.cfg.Backend, a.cfg.DataDirAbs)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a.kv = kv
	a.lists = grocery.NewManager(kv, a.cfg.Owner,
		grocery.WithLocation(a.cfg.Location),
		grocery.WithLogger(a.log.With("owner", a.cfg.Owner)),
	)

	a.log.Debug("store opened", "backend", a.cfg.Backend, "dir", a.cfg.DataDirAbs)

	return a.lists, nil
}

// service returns the organizing service client, or nil if none is set.
func (a *app) service() *remote.Client {
	if a.cfg.ServiceURL == "" {
		return nil
	}

	return remote.New(a.cfg.ServiceURL, remote.WithTimeout(a.cfg.Timeout))
}

// transcripts returns the transcript pipeline, wired to the service if any.
func (a *app) transcripts(ctx context.Context) (*intake.Pipeline, error) {
	if a.pipeline != nil {
		return a.pipeline, nil
	}

	lists, err := a.manager(ctx)
	if err != nil {
		return nil, err
	}

	opts := []intake.Option{
		intake.WithTimeout(a.cfg.Timeout),
		intake.WithLogger(a.log),
		intake.WithMetrics(intake.NewMetrics(a.registry)),
	}

	if svc := a.service(); svc != nil {
		opts = append(opts, intake.WithCategorizer(svc))
	}

	a.pipeline = intake.New(parse.Default(), lists, opts...)

	return a.pipeline, nil
}

func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location)
}

func (a *app) close() {
	if a.kv == nil {
		return
	}

	err := a.kv.Close()
	if err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// domainWarning maps expected lifecycle errors to a warning and a hint.
func domainWarning(err error) (string, string, bool) {
	switch {
	case errors.Is(err, grocery.ErrListNotFound):
		return err.Error(), "run 'grocer history' to see list IDs", true
	case errors.Is(err, grocery.ErrItemNotFound):
		return err.Error(), "run 'grocer show' to see item IDs", true
	case errors.Is(err, grocery.ErrDuplicateItem):
		return err.Error(), "list unchanged", true
	case errors.Is(err, grocery.ErrNoActiveList):
		return err.Error(), "add items or run 'grocer new' to start a list", true
	case errors.Is(err, grocery.ErrListArchived):
		return err.Error(), "archived lists cannot be changed", true
	default:
		return "", "", false
	}
}
