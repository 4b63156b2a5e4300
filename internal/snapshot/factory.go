package snapshot

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/database"
)

// Open builds the store selected by cfg.Backend. The returned close func releases
// any connections and is never nil.
func Open(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger) (Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Directory, logger), noop, nil

	case config.BackendPostgres:
		db, err := database.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, db.Close, nil

	case config.BackendMemory:
		logger.Warn("Using in-memory snapshot store, snapshots will not survive a restart")
		return NewMemoryStore(), noop, nil

	case config.BackendS3:
		store, err := NewS3Store(ctx, cfg.Region, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
