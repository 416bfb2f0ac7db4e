package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/johnhenry/ai.matey-sub001/pkg/config"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// DefaultQueryLimit is the page size applied when a query does not set
// one. It keeps an unbounded ledger from being read in a single call.
const DefaultQueryLimit = 100

// Record is one ledger entry describing a completed request.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// RequestID is the gateway request identifier, shared with logs,
	// traces, and response metadata.
	RequestID string `json:"requestId"`

	// Timestamp is when the request entered the gateway.
	Timestamp time.Time `json:"timestamp"`

	// Frontend names the adapter that admitted the request.
	Frontend string `json:"frontend,omitempty"`

	// Backend names the adapter that produced the response, or the last
	// one tried when the request failed.
	Backend string `json:"backend,omitempty"`

	// Model is the requested model identifier.
	Model string `json:"model,omitempty"`

	// Latency is the time from dispatch to completion. For streams it
	// runs until the terminal chunk.
	Latency time.Duration `json:"latency"`

	// Streamed reports whether the request used the streaming path.
	Streamed bool `json:"streamed"`

	// Token counts from the provider, zero when the request failed
	// before producing usage.
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`

	// Cost is the USD price of the request under the configured
	// per-backend rates, zero when no rates are known.
	Cost float64 `json:"cost"`

	// FinishReason is why generation stopped, empty on failure.
	FinishReason string `json:"finishReason,omitempty"`

	// Warnings counts the translation warnings attached to the response.
	Warnings int `json:"warnings"`

	// ErrorCode is the classified failure code, empty on success.
	ErrorCode string `json:"errorCode,omitempty"`

	// Attempted lists every backend tried for this request, in order.
	Attempted []string `json:"attemptedBackends,omitempty"`
}

// Succeeded reports whether the request completed without a classified
// failure.
func (r *Record) Succeeded() bool {
	return r.ErrorCode == ""
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Attempted = append([]string(nil), r.Attempted...)
	return &out
}

// BuildRecord assembles a ledger record from one completed request.
// Any of resp and reqErr may be nil; the record carries whatever the
// inputs provide. Cost is left zero for the caller to price.
func BuildRecord(req *ir.ChatRequest, resp *ir.ChatResponse, reqErr error, latency time.Duration) *Record {
	rec := &Record{
		ID:      uuid.New().String(),
		Latency: latency,
	}
	if req != nil {
		rec.RequestID = req.Metadata.RequestID
		rec.Timestamp = req.Metadata.Timestamp
		rec.Model = req.Model
		rec.Streamed = req.Stream
		if len(req.Metadata.Provenance) > 0 {
			rec.Frontend = req.Metadata.Provenance[0]
		}
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if resp != nil {
		rec.Backend = resp.Metadata.Backend
		rec.FinishReason = string(resp.FinishReason)
		rec.Warnings = len(resp.Metadata.Warnings)
		rec.Attempted = append([]string(nil), resp.Metadata.AttemptedBackends...)
		if resp.Usage != nil {
			rec.PromptTokens = resp.Usage.PromptTokens
			rec.CompletionTokens = resp.Usage.CompletionTokens
			rec.TotalTokens = resp.Usage.TotalTokens
		}
	}
	if reqErr != nil {
		rec.ErrorCode = string(ir.CodeOf(reqErr))
		if e := ir.AsError(reqErr); e != nil {
			if rec.Backend == "" {
				rec.Backend = e.Backend
			}
			if len(rec.Attempted) == 0 {
				rec.Attempted = append([]string(nil), e.Attempted...)
			}
		}
	}
	return rec
}

// CostOf prices token usage against one backend's per-million rates.
func CostOf(rates config.CostConfig, u *ir.Usage) float64 {
	if u == nil {
		return 0
	}
	return (float64(u.PromptTokens)*rates.InputPerMillion +
		float64(u.CompletionTokens)*rates.OutputPerMillion) / 1e6
}

// Query selects ledger records. Zero-valued fields do not filter.
type Query struct {
	// Start and End bound Timestamp, both inclusive.
	Start *time.Time
	End   *time.Time

	// Backend and Model match exactly.
	Backend string
	Model   string

	// ErrorCode matches the classified failure code exactly.
	ErrorCode string

	// Failed selects only failures (true) or only successes (false).
	Failed *bool

	// Limit caps the result size; zero applies DefaultQueryLimit.
	// Offset skips that many records for pagination. Both apply only to
	// Query; Count, Summarize, and Delete ignore them.
	Limit  int
	Offset int
}

// Matches reports whether rec satisfies the query's filters. Limit and
// Offset are not considered.
func (q *Query) Matches(rec *Record) bool {
	if q.Start != nil && rec.Timestamp.Before(*q.Start) {
		return false
	}
	if q.End != nil && rec.Timestamp.After(*q.End) {
		return false
	}
	if q.Backend != "" && rec.Backend != q.Backend {
		return false
	}
	if q.Model != "" && rec.Model != q.Model {
		return false
	}
	if q.ErrorCode != "" && rec.ErrorCode != q.ErrorCode {
		return false
	}
	if q.Failed != nil && *q.Failed == rec.Succeeded() {
		return false
	}
	return true
}

// Summary aggregates the records a query selects.
type Summary struct {
	// Requests is the number of records, Failures the subset carrying an
	// error code.
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`

	// Token and cost totals across all selected records.
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	Cost             float64 `json:"cost"`

	// ByBackend breaks the totals down per backend. Records without a
	// backend (rejected before routing) appear under the empty key.
	ByBackend map[string]*BackendTotals `json:"byBackend,omitempty"`
}

// BackendTotals is one backend's share of a summary.
type BackendTotals struct {
	Requests    int64   `json:"requests"`
	TotalTokens int64   `json:"totalTokens"`
	Cost        float64 `json:"cost"`
}

// Store persists usage records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Insert adds one record. The record's ID must be non-empty.
	Insert(ctx context.Context, rec *Record) error

	// Query returns matching records newest first, honoring Limit and
	// Offset. A nil query selects everything.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, q *Query) (int64, error)

	// Summarize aggregates the matching records.
	Summarize(ctx context.Context, q *Query) (*Summary, error)

	// Delete removes the matching records and returns how many went.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Trim removes the oldest records beyond keep and returns how many
	// went.
	Trim(ctx context.Context, keep int64) (int64, error)

	// Close releases the store's resources.
	Close() error
}
