package inkpost

import (
	"context"
	"fmt"
	"strings"

	"github.com/eringen/inkpost/objectstore"
	"github.com/eringen/inkpost/store"
	"github.com/eringen/inkpost/store/mongo"
	"github.com/eringen/inkpost/store/postgres"
	"github.com/eringen/inkpost/store/sqlite"
)

// OpenStore picks the backend from the scheme of cfg.DatabaseURL:
// mongodb:// and mongodb+srv:// use MongoDB, postgres:// and postgresql://
// use PostgreSQL, anything else is a SQLite path (an optional sqlite://
// prefix is stripped).
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	dsn := cfg.DatabaseURL
	var (
		s   store.Store
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		s, err = mongo.Open(ctx, dsn, cfg.MongoDatabase)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err = postgres.Open(ctx, dsn)
	default:
		s, err = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenUploader returns the object storage adapter named by cfg.Storage.
func OpenUploader(ctx context.Context, cfg Config) (objectstore.Uploader, error) {
	switch cfg.Storage {
	case "s3":
		u, err := objectstore.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return u, nil
	case "local":
		return &objectstore.Local{
			Dir:     cfg.UploadDir,
			BaseURL: BuildURL(cfg.PublicURL, "uploads"),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
