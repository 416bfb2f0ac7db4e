package storage

import (
	"context"
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

var baseTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// seedRecord builds a record n days after baseTime.
func seedRecord(id string, day int, backend string) *usage.Record {
	return &usage.Record{
		ID:               id,
		RequestID:        "req-" + id,
		Timestamp:        baseTime.AddDate(0, 0, day),
		Frontend:         "native",
		Backend:          backend,
		Model:            "test-model",
		Latency:          120 * time.Millisecond,
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		Cost:             0.25,
		FinishReason:     "stop",
	}
}

func mustInsert(t *testing.T, store usage.Store, recs ...*usage.Record) {
	t.Helper()
	for _, rec := range recs {
		if err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("Insert %s: %v", rec.ID, err)
		}
	}
}

func TestMemoryQueryNewestFirst(t *testing.T) {
	store := NewMemory()
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "alpha"),
		seedRecord("c", 2, "beta"),
	)

	got, err := store.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, want := range []string{"c", "b", "a"} {
		if got[i].ID != want {
			t.Errorf("record %d = %q, want %q", i, got[i].ID, want)
		}
	}

	// Results are copies; mutating one must not touch the store.
	got[0].Backend = "mutated"
	again, err := store.Query(context.Background(), &usage.Query{Backend: "beta"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(again) != 1 {
		t.Errorf("mutating a result changed stored records")
	}
}

func TestMemoryQueryFilters(t *testing.T) {
	store := NewMemory()
	failed := seedRecord("d", 3, "beta")
	failed.ErrorCode = "RATE_LIMIT_ERROR"
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "alpha"),
		seedRecord("c", 2, "beta"),
		failed,
	)

	cutoff := baseTime.AddDate(0, 0, 1)
	isFailed := true

	tests := []struct {
		name  string
		query *usage.Query
		want  []string
	}{
		{"by backend", &usage.Query{Backend: "alpha"}, []string{"b", "a"}},
		{"by start", &usage.Query{Start: &cutoff}, []string{"d", "c", "b"}},
		{"by end", &usage.Query{End: &cutoff}, []string{"b", "a"}},
		{"failures only", &usage.Query{Failed: &isFailed}, []string{"d"}},
		{"by error code", &usage.Query{ErrorCode: "RATE_LIMIT_ERROR"}, []string{"d"}},
		{"no match", &usage.Query{Backend: "gamma"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if got[i].ID != want {
					t.Errorf("record %d = %q, want %q", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestMemoryQueryPagination(t *testing.T) {
	store := NewMemory()
	for i := 0; i < 5; i++ {
		mustInsert(t, store, seedRecord(string(rune('a'+i)), i, "alpha"))
	}

	page, err := store.Query(context.Background(), &usage.Query{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 2 || page[0].ID != "d" || page[1].ID != "c" {
		t.Errorf("page = %v, want [d c]", ids(page))
	}

	past, err := store.Query(context.Background(), &usage.Query{Offset: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("offset past the end returned %d records", len(past))
	}
}

func TestMemoryCount(t *testing.T) {
	store := NewMemory()
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "beta"),
	)

	n, err := store.Count(context.Background(), &usage.Query{Backend: "alpha"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestMemorySummarize(t *testing.T) {
	store := NewMemory()
	failed := seedRecord("c", 2, "beta")
	failed.ErrorCode = "NETWORK_ERROR"
	failed.PromptTokens, failed.CompletionTokens, failed.TotalTokens = 0, 0, 0
	failed.Cost = 0
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "alpha"),
		failed,
	)

	sum, err := store.Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Requests != 3 {
		t.Errorf("requests = %d, want 3", sum.Requests)
	}
	if sum.Failures != 1 {
		t.Errorf("failures = %d, want 1", sum.Failures)
	}
	if sum.TotalTokens != 300 {
		t.Errorf("total tokens = %d, want 300", sum.TotalTokens)
	}
	if sum.Cost != 0.5 {
		t.Errorf("cost = %v, want 0.5", sum.Cost)
	}
	alpha := sum.ByBackend["alpha"]
	if alpha == nil || alpha.Requests != 2 || alpha.TotalTokens != 300 {
		t.Errorf("alpha totals = %+v, want 2 requests, 300 tokens", alpha)
	}
	beta := sum.ByBackend["beta"]
	if beta == nil || beta.Requests != 1 {
		t.Errorf("beta totals = %+v, want 1 request", beta)
	}
}

func TestMemoryDelete(t *testing.T) {
	store := NewMemory()
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "alpha"),
		seedRecord("c", 2, "beta"),
	)

	cutoff := baseTime.AddDate(0, 0, 1)
	n, err := store.Delete(context.Background(), &usage.Query{End: &cutoff})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	remaining, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if remaining != 1 {
		t.Errorf("%d records remain, want 1", remaining)
	}
}

func TestMemoryTrim(t *testing.T) {
	store := NewMemory()
	for i := 0; i < 5; i++ {
		mustInsert(t, store, seedRecord(string(rune('a'+i)), i, "alpha"))
	}

	n, err := store.Trim(context.Background(), 2)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if n != 3 {
		t.Errorf("trimmed %d, want 3", n)
	}

	got, err := store.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e" || got[1].ID != "d" {
		t.Errorf("remaining = %v, want the two newest [e d]", ids(got))
	}

	// Already under the cap.
	n, err = store.Trim(context.Background(), 2)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if n != 0 {
		t.Errorf("second trim removed %d, want 0", n)
	}
}

func TestMemoryInsertValidation(t *testing.T) {
	store := NewMemory()
	if err := store.Insert(context.Background(), nil); err == nil {
		t.Error("nil record accepted")
	}
	if err := store.Insert(context.Background(), &usage.Record{}); err == nil {
		t.Error("record without id accepted")
	}
}

func ids(recs []*usage.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.ID
	}
	return out
}
