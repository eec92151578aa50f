package session

import (
	"context"
	"fmt"
	"strings"
)

// StoreOptions selects the session backend.
type StoreOptions struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// NewStore creates the configured backend. An empty driver picks postgres when a
// database URL is set and memory otherwise.
func NewStore(ctx context.Context, opts StoreOptions) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = "memory"
		if strings.TrimSpace(opts.DatabaseURL) != "" {
			driver = "postgres"
		}
	}
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported session store driver %q", opts.Driver)
	}
}
