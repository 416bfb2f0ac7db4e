package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

// Memory is an in-memory usage.Store. Records are copied on the way in
// and out, so callers cannot mutate stored state.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*usage.Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*usage.Record)}
}

// Insert implements usage.Store.
func (m *Memory) Insert(ctx context.Context, rec *usage.Record) error {
	if rec == nil {
		return fmt.Errorf("usage record is nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("usage record id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec.Clone()
	return nil
}

// Query implements usage.Store.
func (m *Memory) Query(ctx context.Context, q *usage.Query) ([]*usage.Record, error) {
	matched := m.collect(q)

	limit := usage.DefaultQueryLimit
	offset := 0
	if q != nil {
		if q.Limit > 0 {
			limit = q.Limit
		}
		if q.Offset > 0 {
			offset = q.Offset
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*usage.Record, len(matched))
	for i, rec := range matched {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Count implements usage.Store.
func (m *Memory) Count(ctx context.Context, q *usage.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, rec := range m.records {
		if q == nil || q.Matches(rec) {
			n++
		}
	}
	return n, nil
}

// Summarize implements usage.Store.
func (m *Memory) Summarize(ctx context.Context, q *usage.Query) (*usage.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := &usage.Summary{ByBackend: make(map[string]*usage.BackendTotals)}
	for _, rec := range m.records {
		if q != nil && !q.Matches(rec) {
			continue
		}
		sum.Requests++
		if !rec.Succeeded() {
			sum.Failures++
		}
		sum.PromptTokens += int64(rec.PromptTokens)
		sum.CompletionTokens += int64(rec.CompletionTokens)
		sum.TotalTokens += int64(rec.TotalTokens)
		sum.Cost += rec.Cost

		totals := sum.ByBackend[rec.Backend]
		if totals == nil {
			totals = &usage.BackendTotals{}
			sum.ByBackend[rec.Backend] = totals
		}
		totals.Requests++
		totals.TotalTokens += int64(rec.TotalTokens)
		totals.Cost += rec.Cost
	}
	return sum, nil
}

// Delete implements usage.Store.
func (m *Memory) Delete(ctx context.Context, q *usage.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.records {
		if q == nil || q.Matches(rec) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Trim implements usage.Store.
func (m *Memory) Trim(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	excess := int64(len(m.records)) - keep
	if excess <= 0 {
		return 0, nil
	}

	all := make([]*usage.Record, 0, len(m.records))
	for _, rec := range m.records {
		all = append(all, rec)
	}
	// Oldest first, record id as the tiebreaker so trimming is stable.
	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].ID < all[j].ID
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	for _, rec := range all[:excess] {
		delete(m.records, rec.ID)
	}
	return excess, nil
}

// Close implements usage.Store. It is a no-op for the memory store.
func (m *Memory) Close() error {
	return nil
}

// collect returns the matching records newest first. The result holds
// the stored pointers; callers clone before returning them.
func (m *Memory) collect(q *usage.Query) []*usage.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*usage.Record, 0, len(m.records))
	for _, rec := range m.records {
		if q == nil || q.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched
}
