package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"spycats/internal/blob"
	"spycats/internal/catalog"
	"spycats/internal/config"
	"spycats/internal/core"
	"spycats/internal/dossier"
	"spycats/internal/observability"
)

const serviceName = "spycats"

// app holds the wired runtime components.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    core.PersistentStore
	service  *core.Service
	metrics  *observability.PrometheusRecorder
	dossiers *dossier.Archiver
	shutdown func(context.Context) error
}

func newLogger(cfg config.Config, out io.Writer) *slog.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:  observability.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: out,
	})
}

func newCatalog(cfg config.Config) catalog.Client {
	if cfg.CatalogStatic != "" {
		return catalog.NewStatic(cfg.CatalogStatic)
	}
	return catalog.NewHTTPClient(cfg.CatalogURL,
		catalog.WithAPIKey(cfg.CatalogAPIKey),
		catalog.WithTimeout(cfg.CatalogTimeout),
	)
}

func buildApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger := newLogger(cfg, logOut)
	shutdown, err := observability.SetupTracing(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}
	store, err := core.OpenPersistentStore(cfg.Storage(), core.NewDefaultRulesEngine())
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}
	blobs, err := blob.Open(ctx, cfg.BlobStore())
	if err != nil {
		return nil, errors.Join(err, store.Close(), shutdown(ctx))
	}
	metrics := observability.NewPrometheusRecorder()
	svc := core.NewService(store, newCatalog(cfg),
		core.WithLogger(observability.ForComponent(logger, "core")),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(observability.NewOTelTracer(nil)),
	)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		service:  svc,
		metrics:  metrics,
		dossiers: dossier.NewArchiver(svc, blobs),
		shutdown: shutdown,
	}, nil
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.store.Close(), a.shutdown(ctx))
}
