package agent

import (
	"context"
	"fmt"
	"strings"
)

type StoreOptions struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// NewStore mirrors session.NewStore so both records live in the same backend.
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
		return nil, fmt.Errorf("unsupported agent store driver %q", opts.Driver)
	}
}
