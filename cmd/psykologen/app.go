package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/adapters/llm"
	"github.com/PabloGalante/psykologen/internal/adapters/storage"
	"github.com/PabloGalante/psykologen/internal/app/conversation"
	"github.com/PabloGalante/psykologen/internal/app/journal"
	"github.com/PabloGalante/psykologen/internal/config"
	"github.com/PabloGalante/psykologen/internal/observability"
)

// app holds everything both subcommands need.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	svc     *conversation.Service
	journal *journal.Service
	backend *storage.Backend
}

// loadApp reads the configuration and wires the service. Non-empty fields of
// logOverride replace the configured log settings; --verbose wins over both.
func loadApp(ctx context.Context, logOverride observability.Options) (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	opts := observability.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if logOverride.Level != "" {
		opts.Level = logOverride.Level
	}
	if logOverride.Format != "" {
		opts.Format = logOverride.Format
	}
	if verbose {
		opts.Level = "debug"
	}
	log, err := observability.Init(opts)
	if err != nil {
		return nil, err
	}

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing completion client: %w", err)
	}

	backend, err := storage.Open(ctx, cfg.Storage, cfg.Session.TranscriptDir)
	if err != nil {
		return nil, err
	}

	svc := conversation.NewService(client, backend.Sessions, backend.Documents, conversation.Options{
		EndMarker:     cfg.Session.EndMarker,
		Budget:        cfg.Session.Budget,
		ContextWindow: cfg.LLM.ContextWindow,
		Workers:       cfg.Enrichment.Workers,
		QueueSize:     cfg.Enrichment.QueueSize,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		svc:     svc,
		journal: journal.NewService(backend.Transcripts),
		backend: backend,
	}, nil
}

// close drains background enrichment, then releases the stores.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Enrichment.ShutdownTimeout)
	defer cancel()

	if err := a.svc.Shutdown(ctx); err != nil {
		a.log.Warn("enrichment did not finish before shutdown", zap.Error(err))
	}
	if err := a.backend.Close(); err != nil {
		a.log.Warn("failed to close storage", zap.Error(err))
	}
	_ = a.log.Sync()
}
