// Package app wires the stores, the classifier and the backup targets from
// a Config. Both binaries start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/backup"
	"github.com/dvloznov/financas-voz/internal/config"
	"github.com/dvloznov/financas-voz/internal/dispatch"
	"github.com/dvloznov/financas-voz/internal/intent"
	"github.com/dvloznov/financas-voz/internal/kvstore"
	"github.com/dvloznov/financas-voz/internal/logger"
	"github.com/dvloznov/financas-voz/internal/state"
)

// ErrNoAPIKey is reported for every command when no Gemini key is configured.
var ErrNoAPIKey = errors.New("no Gemini API key configured")

// App holds the long-lived components.
type App struct {
	Config   config.Config
	Location *time.Location
	Log      zerolog.Logger

	KV         *kvstore.Store
	Store      *state.Store
	Dispatcher *dispatch.Dispatcher

	// Nil when the target is not configured.
	Snapshotter *backup.Snapshotter
	Exporter    *backup.Exporter

	closers []func() error
}

// New opens the data directory and connects the configured services.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	a := &App{Config: cfg, Location: loc, Log: log}

	a.KV = kvstore.Open(kvstore.Options{
		Dir:      cfg.DataDir,
		Location: loc,
		Log:      logger.Component(log, "kvstore"),
	})
	a.Store = state.Open(a.KV, logger.Component(log, "state"))

	classifier, err := newClassifier(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Dispatcher = dispatch.New(classifier, a.Store, loc, logger.Component(log, "dispatch"))

	if cfg.BackupEnabled() {
		gcs, err := backup.NewGCSStore(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		a.Snapshotter = backup.NewSnapshotter(gcs, cfg.BackupBucket)
	}
	if cfg.ExportEnabled() {
		exporter, err := backup.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.closers = append(a.closers, exporter.Close)
		a.Exporter = exporter
	}

	return a, nil
}

func newClassifier(ctx context.Context, cfg config.Config, log zerolog.Logger) (intent.Classifier, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("No Gemini API key configured - commands will fail")
		return intent.ClassifierFunc(func(ctx context.Context, req intent.Request) (intent.Response, error) {
			return intent.Response{}, ErrNoAPIKey
		}), nil
	}

	client, err := intent.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return intent.NewGeminiClassifier(client.Models, cfg.Model, logger.Component(log, "intent")), nil
}

// BackupRunner returns a job handler over the configured targets.
func (a *App) BackupRunner() *backup.Runner {
	return backup.NewRunner(a.Store, a.Snapshotter, a.Exporter, logger.Component(a.Log, "backup"))
}

// Close releases the cloud clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
