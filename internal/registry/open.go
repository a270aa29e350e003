package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendBlob     = "blob"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and locates a backend. For blob the URL is a bucket URL
// (gs://, s3://, file:///, mem://); for sqlite a file path or ":memory:";
// for postgres a connection string.
type Config struct {
	Backend string
	URL     string
}

// Open opens the configured store. An empty backend is inferred from the
// URL: postgres:// and postgresql:// select postgres, other URLs with a
// scheme select blob, and anything else is a sqlite path.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := cfg.Backend
	if backend == "" {
		backend = inferBackend(cfg.URL)
	}

	var (
		store Store
		err   error
	)
	switch backend {
	case BackendBlob:
		store, err = OpenBlob(ctx, cfg.URL, logger)
	case BackendSQLite:
		store, err = OpenSQLite(ctx, cfg.URL, logger)
	case BackendPostgres:
		store, err = OpenPostgres(ctx, cfg.URL, logger)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func inferBackend(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return BackendPostgres
	case strings.Contains(url, "://"):
		return BackendBlob
	}
	return BackendSQLite
}
