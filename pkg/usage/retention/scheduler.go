package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// pruneTimeout bounds one scheduled pruning run.
const pruneTimeout = 5 * time.Minute

// Scheduler runs a pruner on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	pruner  *Pruner
	logger  *slog.Logger
	entryID cron.EntryID
}

// NewScheduler returns a scheduler that runs pruner on the given cron
// expression (standard five-field syntax). The expression is validated
// here so a bad schedule fails at startup rather than silently never
// firing.
func NewScheduler(pruner *Pruner, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, fmt.Errorf("prune schedule is required")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:   cron.New(),
		pruner: pruner,
		logger: logger.With("component", "retention"),
	}
	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, fmt.Errorf("registering prune job: %w", err)
	}
	s.entryID = id
	return s, nil
}

// Start begins running the schedule in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("prune scheduler started", "next_run", s.NextRun())
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// NextRun returns when the next pruning run fires. It is zero before
// Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	if _, err := s.pruner.Prune(ctx); err != nil {
		s.logger.Error("scheduled prune failed", "error", err)
	}
}
