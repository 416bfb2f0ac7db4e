package ir

import (
	"time"

	"github.com/google/uuid"
)

// Metadata travels with a request through the pipeline and is echoed,
// extended, back on the response. It carries correlation identity,
// provenance, accumulated warnings, and routing outcomes.
type Metadata struct {
	// RequestID correlates a response or stream with its originating
	// request. It is an opaque string, never a live back-reference.
	RequestID string `json:"requestId,omitempty"`

	// Timestamp is when the request entered the pipeline.
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Provenance is the ordered trail of adapters and backends that
	// handled the request.
	Provenance []string `json:"provenance,omitempty"`

	// Warnings accumulates every semantic transformation applied so far.
	Warnings []Warning `json:"warnings,omitempty"`

	// PreferredBackend names the backend the caller wants (explicit
	// routing). Empty means the routing strategy decides.
	PreferredBackend string `json:"preferredBackend,omitempty"`

	// Backend is the backend that produced the response.
	Backend string `json:"backend,omitempty"`

	// Duration is the backend execution time for the response.
	Duration time.Duration `json:"duration,omitempty"`

	// AttemptedBackends lists every backend tried by the fallback chain,
	// in order, including the one that succeeded.
	AttemptedBackends []string `json:"attemptedBackends,omitempty"`

	// FailedBackends lists the backends that failed before a success.
	FailedBackends []string `json:"failedBackends,omitempty"`

	// Extra carries free-form caller or middleware annotations.
	Extra map[string]string `json:"extra,omitempty"`
}

// NewMetadata returns request metadata with a fresh request id and the
// current timestamp.
func NewMetadata() Metadata {
	return Metadata{
		RequestID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}
}

// AddProvenance appends a handling stage (adapter or backend name).
func (m *Metadata) AddProvenance(stage string) {
	m.Provenance = append(m.Provenance, stage)
}

// AddWarning appends a warning. Warnings are only ever appended; no
// component removes one.
func (m *Metadata) AddWarning(w Warning) {
	m.Warnings = append(m.Warnings, w)
}

// AddWarnings appends a batch of warnings in order.
func (m *Metadata) AddWarnings(ws []Warning) {
	m.Warnings = append(m.Warnings, ws...)
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Provenance != nil {
		out.Provenance = append([]string(nil), m.Provenance...)
	}
	if m.Warnings != nil {
		out.Warnings = append([]Warning(nil), m.Warnings...)
	}
	if m.AttemptedBackends != nil {
		out.AttemptedBackends = append([]string(nil), m.AttemptedBackends...)
	}
	if m.FailedBackends != nil {
		out.FailedBackends = append([]string(nil), m.FailedBackends...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
