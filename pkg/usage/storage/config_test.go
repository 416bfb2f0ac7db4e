package storage

import (
	"path/filepath"
	"testing"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
)

func TestFromConfig(t *testing.T) {
	store, err := FromConfig(config.UsageConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	if _, ok := store.(*Memory); !ok {
		t.Errorf("got %T, want *Memory", store)
	}

	store, err = FromConfig(config.UsageConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "usage.db"),
	})
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	if _, ok := store.(*SQLite); !ok {
		t.Errorf("got %T, want *SQLite", store)
	}
	store.Close()

	if _, err := FromConfig(config.UsageConfig{Backend: "redis"}); err == nil {
		t.Error("unknown backend accepted")
	}
}
