package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dyike/ValueArena/config"
)

// Open returns the store selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageFile, "":
		return NewFileStore(filepath.Join(cfg.DataDir, "portfolios")), nil
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.StorageS3:
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.AWSRegion)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
