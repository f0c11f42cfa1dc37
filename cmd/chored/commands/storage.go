package commands

import (
	"context"

	"go.trai.ch/zerr"

	"github.com/cyp0633/chorecal/internal/config"
	"github.com/cyp0633/chorecal/storage"
	"github.com/cyp0633/chorecal/storage/file"
	"github.com/cyp0633/chorecal/storage/memory"
	"github.com/cyp0633/chorecal/storage/postgres"
)

// openStorage opens the configured backend. The postgres schema is
// migrated on open.
func openStorage(ctx context.Context, sc config.StorageConfig) (storage.Storage, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil

	case config.DriverFile:
		store, err := file.New(sc.Path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to open task file"), "path", sc.Path)
		}
		return store, nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, sc.Postgres.ConnString())
		if err != nil {
			return nil, zerr.Wrap(err, "failed to open database")
		}
		store := postgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, zerr.Wrap(err, "failed to migrate database")
		}
		return store, nil
	}

	return nil, zerr.With(zerr.New("unknown storage driver"), "driver", sc.Driver)
}
