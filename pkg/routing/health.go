package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/telemetry/metrics"
)

// healthMonitor runs the active probe loop. It is a signal separate
// from the circuit breaker: breakers react to request traffic, probes
// catch a backend that went down while idle. A backend is routable only
// when both agree.
type healthMonitor struct {
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
	snapshot  func() []backends.Backend

	mu      sync.RWMutex
	healthy map[string]bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func newHealthMonitor(cfg config.HealthConfig, logger *slog.Logger, collector *metrics.Collector, snapshot func() []backends.Backend) *healthMonitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = config.DefaultHealthInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHealthTimeout
	}
	return &healthMonitor{
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		collector: collector,
		snapshot:  snapshot,
		healthy:   make(map[string]bool),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (m *healthMonitor) start() {
	go m.run()
}

func (m *healthMonitor) run() {
	defer close(m.doneCh)

	m.probeAll()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probeAll()
		}
	}
}

// probeAll sweeps every registered backend concurrently. Backends that
// do not implement backends.HealthChecker count as healthy. The result
// map replaces the previous one wholesale, so entries for unregistered
// backends disappear on the next sweep.
func (m *healthMonitor) probeAll() {
	current := m.snapshot()

	results := make(map[string]bool, len(current))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, b := range current {
		wg.Add(1)
		go func(b backends.Backend) {
			defer wg.Done()

			name := b.Name()
			healthy := true
			var probeErr error
			if hc, ok := b.(backends.HealthChecker); ok {
				ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
				probeErr = hc.HealthCheck(ctx)
				cancel()
				healthy = probeErr == nil
			}

			if was := m.Healthy(name); healthy != was {
				if healthy {
					m.logger.Info("backend recovered", "backend", name)
				} else {
					m.logger.Warn("backend unhealthy", "backend", name, "error", probeErr)
				}
			}
			if m.collector != nil {
				m.collector.UpdateBackendHealth(name, healthy)
			}

			resultsMu.Lock()
			results[name] = healthy
			resultsMu.Unlock()
		}(b)
	}
	wg.Wait()

	m.mu.Lock()
	m.healthy = results
	m.mu.Unlock()
}

// Healthy reports the backend's latest probe verdict. Backends never
// probed count as healthy.
func (m *healthMonitor) Healthy(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	healthy, ok := m.healthy[name]
	if !ok {
		return true
	}
	return healthy
}

func (m *healthMonitor) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.doneCh
}
