package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Supported drivers.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and locates a cache backend.
type Options struct {
	Driver      string
	Path        string // file path for json and sqlite
	DatabaseURL string // connection string for postgres
}

// Open creates the cache described by opts.
// An empty driver means json, or postgres when a database URL is set.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverJSON
		if strings.TrimSpace(opts.DatabaseURL) != "" {
			driver = DriverPostgres
		}
	}

	var (
		store *Store
		err   error
	)
	switch driver {
	case DriverJSON:
		store, err = NewJSONFile(opts.Path)
	case DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite cache: empty path")
		}
		store, err = NewSQLite(opts.Path)
	case DriverPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, fmt.Errorf("postgres cache: database_url is required")
		}
		store, err = NewPostgres(ctx, opts.DatabaseURL)
	case DriverMemory:
		store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown cache driver: %q (expected json|sqlite|postgres|memory)", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Debug("cache opened", slog.String("driver", driver), slog.String("path", opts.Path))
	}
	return store, nil
}
