package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/adapters/storage/file"
	firestorestore "github.com/PabloGalante/psykologen/internal/adapters/storage/firestore"
	"github.com/PabloGalante/psykologen/internal/adapters/storage/memory"
	"github.com/PabloGalante/psykologen/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/psykologen/internal/config"
	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

// Backend bundles the stores selected by configuration.
type Backend struct {
	Sessions    domain.SessionStore
	Documents   domain.DocumentStore
	Transcripts domain.TranscriptStore

	closers []func() error
}

// Open builds the stores for cfg.Backend. Sessions always live in memory.
// Transcripts go to transcriptDir for the memory and file backends and
// into the database otherwise.
func Open(ctx context.Context, cfg config.StorageConfig, transcriptDir string) (*Backend, error) {
	log := observability.LoggerFromContext(ctx)
	b := &Backend{Sessions: memory.NewSessionStore()}

	switch cfg.Backend {
	case config.StorageFirestore:
		log.Info("using Firestore storage", zap.String("project", cfg.GCPProjectID))
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("error initializing Firestore store: %w", err)
		}
		// 1 store, implements 2 interfaces
		b.Documents = fsStore
		b.Transcripts = fsStore
		b.closers = append(b.closers, fsStore.Close)

	case config.StorageSQLite:
		log.Info("using SQLite storage", zap.String("dsn", cfg.SQLiteDSN))
		db, err := sqlite.New(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("error initializing SQLite store: %w", err)
		}
		b.Documents = db
		b.Transcripts = db
		b.closers = append(b.closers, db.Close)

	case config.StorageFile:
		log.Info("using file storage", zap.String("dir", cfg.Dir))
		docs, err := file.NewDocumentStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		b.Documents = docs

	default:
		log.Info("using in-memory storage")
		b.Documents = memory.NewDocumentStore()
	}

	if b.Transcripts == nil {
		ts, err := file.NewTranscriptStore(transcriptDir)
		if err != nil {
			return nil, err
		}
		b.Transcripts = ts
	}
	return b, nil
}

// Close releases database clients.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
