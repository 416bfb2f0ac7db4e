package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/usage"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "usage.db")
	store, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := newTestSQLite(t)

	want := &usage.Record{
		ID:               "rec-1",
		RequestID:        "req-1",
		Timestamp:        time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
		Frontend:         "native",
		Backend:          "alpha",
		Model:            "test-model",
		Latency:          340 * time.Millisecond,
		Streamed:         true,
		PromptTokens:     120,
		CompletionTokens: 80,
		TotalTokens:      200,
		Cost:             0.0125,
		FinishReason:     "tool_calls",
		Warnings:         2,
		Attempted:        []string{"alpha", "beta"},
	}
	if err := store.Insert(context.Background(), want); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	rec := got[0]

	if rec.ID != want.ID || rec.RequestID != want.RequestID {
		t.Errorf("ids = %q/%q, want %q/%q", rec.ID, rec.RequestID, want.ID, want.RequestID)
	}
	if !rec.Timestamp.Equal(want.Timestamp) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, want.Timestamp)
	}
	if rec.Frontend != want.Frontend || rec.Backend != want.Backend || rec.Model != want.Model {
		t.Errorf("adapters = %q/%q/%q, want %q/%q/%q",
			rec.Frontend, rec.Backend, rec.Model, want.Frontend, want.Backend, want.Model)
	}
	if rec.Latency != want.Latency {
		t.Errorf("latency = %v, want %v", rec.Latency, want.Latency)
	}
	if !rec.Streamed {
		t.Error("streamed flag lost")
	}
	if rec.PromptTokens != 120 || rec.CompletionTokens != 80 || rec.TotalTokens != 200 {
		t.Errorf("tokens = %d/%d/%d, want 120/80/200",
			rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens)
	}
	if rec.Cost != want.Cost {
		t.Errorf("cost = %v, want %v", rec.Cost, want.Cost)
	}
	if rec.FinishReason != want.FinishReason {
		t.Errorf("finish reason = %q, want %q", rec.FinishReason, want.FinishReason)
	}
	if rec.Warnings != 2 {
		t.Errorf("warnings = %d, want 2", rec.Warnings)
	}
	if len(rec.Attempted) != 2 || rec.Attempted[0] != "alpha" || rec.Attempted[1] != "beta" {
		t.Errorf("attempted = %v, want [alpha beta]", rec.Attempted)
	}
	if rec.ErrorCode != "" {
		t.Errorf("error code = %q, want empty", rec.ErrorCode)
	}
}

func TestSQLiteQueryFiltersAndPagination(t *testing.T) {
	store := newTestSQLite(t)
	failed := seedRecord("d", 3, "beta")
	failed.ErrorCode = "TIMEOUT_ERROR"
	mustInsert(t, store,
		seedRecord("a", 0, "alpha"),
		seedRecord("b", 1, "alpha"),
		seedRecord("c", 2, "beta"),
		failed,
	)

	got, err := store.Query(context.Background(), &usage.Query{Backend: "alpha"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("alpha records = %v, want [b a]", ids(got))
	}

	cutoff := baseTime.AddDate(0, 0, 1)
	got, err = store.Query(context.Background(), &usage.Query{Start: &cutoff})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 || got[0].ID != "d" {
		t.Errorf("windowed records = %v, want [d c b]", ids(got))
	}

	isFailed := true
	got, err = store.Query(context.Background(), &usage.Query{Failed: &isFailed})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d" {
		t.Errorf("failed records = %v, want [d]", ids(got))
	}

	page, err := store.Query(context.Background(), &usage.Query{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Errorf("page = %v, want [c b]", ids(page))
	}
}

func TestSQLiteSummarize(t *testing.T) {
	store := newTestSQLite(t)
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
	if sum.Requests != 3 || sum.Failures != 1 {
		t.Errorf("requests/failures = %d/%d, want 3/1", sum.Requests, sum.Failures)
	}
	if sum.PromptTokens != 200 || sum.CompletionTokens != 100 || sum.TotalTokens != 300 {
		t.Errorf("tokens = %d/%d/%d, want 200/100/300",
			sum.PromptTokens, sum.CompletionTokens, sum.TotalTokens)
	}
	if sum.Cost != 0.5 {
		t.Errorf("cost = %v, want 0.5", sum.Cost)
	}
	alpha := sum.ByBackend["alpha"]
	if alpha == nil || alpha.Requests != 2 || alpha.TotalTokens != 300 || alpha.Cost != 0.5 {
		t.Errorf("alpha totals = %+v", alpha)
	}
	if beta := sum.ByBackend["beta"]; beta == nil || beta.Requests != 1 {
		t.Errorf("beta totals = %+v", beta)
	}

	// A filter that matches nothing still yields a zero summary.
	empty, err := store.Summarize(context.Background(), &usage.Query{Backend: "gamma"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if empty.Requests != 0 || empty.Cost != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestSQLiteDeleteAndTrim(t *testing.T) {
	store := newTestSQLite(t)
	for i := 0; i < 5; i++ {
		mustInsert(t, store, seedRecord(string(rune('a'+i)), i, "alpha"))
	}

	cutoff := baseTime.AddDate(0, 0, 0)
	n, err := store.Delete(context.Background(), &usage.Query{End: &cutoff})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}

	n, err = store.Trim(context.Background(), 2)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}
	if n != 2 {
		t.Errorf("trimmed %d, want 2", n)
	}

	got, err := store.Query(context.Background(), nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e" || got[1].ID != "d" {
		t.Errorf("remaining = %v, want [e d]", ids(got))
	}
}

func TestSQLiteReopenKeepsRecords(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "usage.db")

	store, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	mustInsert(t, store, seedRecord("a", 0, "alpha"))
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLite(cfg)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after reopen = %d, want 1", n)
	}
}

func TestSQLiteInsertValidation(t *testing.T) {
	store := newTestSQLite(t)
	if err := store.Insert(context.Background(), nil); err == nil {
		t.Error("nil record accepted")
	}
	if err := store.Insert(context.Background(), &usage.Record{}); err == nil {
		t.Error("record without id accepted")
	}
}

func TestSQLiteRequiresPath(t *testing.T) {
	if _, err := NewSQLite(SQLiteConfig{}); err == nil {
		t.Error("empty path accepted")
	}
}
