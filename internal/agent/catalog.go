package agent

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Catalog is the on-disk TOML shape used to seed agents:
//
//	[[agent]]
//	id = "7"
//	name = "Support"
//	voice_id = "v1"
//	[agent.voice_settings]
//	stability = 0.5
//	similarity_boost = 0.8
type Catalog struct {
	Agents []Agent `toml:"agent"`
}

func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse agent catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return Catalog{}, err
		}
		if _, dup := seen[a.ID]; dup {
			return Catalog{}, fmt.Errorf("agent catalog: duplicate id %q", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return c, nil
}

func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read agent catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Import writes every catalog agent into store and returns how many were written.
func Import(ctx context.Context, store Store, c Catalog) (int, error) {
	for i, a := range c.Agents {
		if err := store.Put(ctx, a); err != nil {
			return i, fmt.Errorf("import agent %s: %w", a.ID, err)
		}
	}
	return len(c.Agents), nil
}
