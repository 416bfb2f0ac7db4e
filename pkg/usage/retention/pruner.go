package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

// Config controls what the pruner removes.
type Config struct {
	// Days is the retention window; records older than this are
	// removed. Zero disables age-based pruning.
	Days int

	// MaxRecords caps the ledger size; the oldest records beyond the
	// cap are removed. Zero disables count-based pruning.
	MaxRecords int64
}

// FromConfig maps the gateway retention configuration.
func FromConfig(cfg config.RetentionConfig) Config {
	return Config{
		Days:       cfg.Days,
		MaxRecords: cfg.MaxRecords,
	}
}

// Pruner removes expired and excess records from a usage store.
type Pruner struct {
	store  usage.Store
	cfg    Config
	logger *slog.Logger
}

// NewPruner returns a pruner over store. A nil logger falls back to
// slog.Default.
func NewPruner(store usage.Store, cfg Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "retention"),
	}
}

// Prune removes records older than the retention window, then trims
// the ledger to its size cap. It returns how many records went. Both
// phases are disabled by their zero config values, so a zero Config
// makes Prune a no-op.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var removed int64

	if p.cfg.Days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.Days)
		n, err := p.store.Delete(ctx, &usage.Query{End: &cutoff})
		if err != nil {
			return removed, fmt.Errorf("pruning by age: %w", err)
		}
		removed += n
	}

	if p.cfg.MaxRecords > 0 {
		n, err := p.store.Trim(ctx, p.cfg.MaxRecords)
		if err != nil {
			return removed, fmt.Errorf("pruning by count: %w", err)
		}
		removed += n
	}

	if removed > 0 {
		p.logger.Info("usage records pruned", "removed", removed)
	}
	return removed, nil
}
