package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pluginrefs/internal/config"
	"pluginrefs/internal/docstore"
	"pluginrefs/internal/docstore/elastic"
	"pluginrefs/internal/docstore/postgres"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/storage"
)

// OpenStore connects the document store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (docstore.Store, error) {
	var (
		store docstore.Store
		err   error
	)
	switch cfg.Driver {
	case "", "sqlite":
		store, err = storage.Open(cfg.DSN, logger)
	case "postgres":
		store, err = postgres.Open(ctx, cfg.DSN)
	case "elasticsearch":
		store, err = elastic.New(elastic.Options{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Gzip:     cfg.Gzip,
			Timeout:  time.Duration(cfg.TimeoutSecs) * time.Second,
		}, logger)
	default:
		return nil, errors.New(errors.ConfigInvalid, fmt.Sprintf("unknown store driver %q", cfg.Driver), nil)
	}
	if err != nil {
		return nil, errors.New(errors.IndexWriteFailure, "Failed to open document store", err)
	}
	return store, nil
}
