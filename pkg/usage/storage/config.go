package storage

import (
	"fmt"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

// FromConfig builds the store the usage configuration selects. The
// caller owns the returned store and must close it.
func FromConfig(cfg config.UsageConfig) (usage.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		sc := DefaultSQLiteConfig()
		sc.Path = cfg.SQLitePath
		return NewSQLite(sc)
	default:
		return nil, fmt.Errorf("unknown usage store %q", cfg.Backend)
	}
}
