package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RecorderConfig configures the async recorder.
type RecorderConfig struct {
	// BufferSize is the channel capacity between the request path and
	// the write worker. Records are dropped and counted when the buffer
	// is full.
	BufferSize int

	// WriteTimeout bounds a single store write.
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the recorder defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:   1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes ledger records to a store from a single background
// worker. Record never blocks: a full buffer drops the record and
// increments the drop counter, so a slow or broken store costs the
// request path nothing.
type Recorder struct {
	store  Store
	cfg    RecorderConfig
	logger *slog.Logger

	ch      chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

// NewRecorder starts a recorder writing to store. A nil logger falls
// back to slog.Default. Close must be called to drain the buffer and
// stop the worker; the store's lifecycle stays with the caller.
func NewRecorder(store Store, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultRecorderConfig().BufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultRecorderConfig().WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "usage"),
		ch:     make(chan *Record, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues one record for writing. It returns immediately; if
// the buffer is full or the recorder is closed the record is dropped.
func (r *Recorder) Record(rec *Record) {
	if rec == nil {
		return
	}
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.ch <- rec:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("usage record dropped, buffer full",
			"record_id", rec.ID,
			"dropped_total", n)
	}
}

// Dropped returns how many records were discarded because the buffer
// was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Store returns the underlying store for queries.
func (r *Recorder) Store() Store {
	return r.store
}

// Close stops accepting records, drains the buffer, and waits for the
// worker to finish.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.ch:
			r.write(rec)
		case <-r.done:
			// Drain whatever made it into the buffer before shutdown.
			for {
				select {
				case rec := <-r.ch:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.store.Insert(ctx, rec); err != nil {
		r.logger.Error("usage write failed",
			"record_id", rec.ID,
			"request_id", rec.RequestID,
			"error", err)
		return
	}
	if elapsed := time.Since(start); elapsed > r.cfg.WriteTimeout/2 {
		r.logger.Warn("slow usage write",
			"record_id", rec.ID,
			"duration", elapsed)
	}
}
