package backends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

func TestErrorFromStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		retryAfter    string
		wantCode      ir.ErrorCode
		wantRetryable bool
	}{
		{name: "bad request", status: 400, wantCode: ir.ErrCodeProvider, wantRetryable: false},
		{name: "unauthorized", status: 401, wantCode: ir.ErrCodeAuthentication, wantRetryable: false},
		{name: "forbidden", status: 403, wantCode: ir.ErrCodeAuthentication, wantRetryable: false},
		{name: "not found", status: 404, wantCode: ir.ErrCodeProvider, wantRetryable: false},
		{name: "request timeout", status: 408, wantCode: ir.ErrCodeTimeout, wantRetryable: true},
		{name: "unprocessable", status: 422, wantCode: ir.ErrCodeProvider, wantRetryable: false},
		{name: "rate limited", status: 429, retryAfter: "30", wantCode: ir.ErrCodeRateLimit, wantRetryable: true},
		{name: "server error", status: 500, wantCode: ir.ErrCodeProvider, wantRetryable: true},
		{name: "bad gateway", status: 502, wantCode: ir.ErrCodeProvider, wantRetryable: true},
		{name: "unavailable", status: 503, wantCode: ir.ErrCodeProviderUnavailable, wantRetryable: true},
		{name: "gateway timeout", status: 504, wantCode: ir.ErrCodeTimeout, wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ErrorFromStatus("alpha", tt.status, "body", tt.retryAfter)
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if err.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tt.wantRetryable)
			}
			if err.Backend != "alpha" {
				t.Errorf("backend = %q, want %q", err.Backend, "alpha")
			}
			if err.HTTPStatus != tt.status {
				t.Errorf("httpStatus = %d, want %d", err.HTTPStatus, tt.status)
			}
		})
	}

	t.Run("retry-after seconds honored", func(t *testing.T) {
		err := ErrorFromStatus("alpha", 429, "", "42")
		if err.RetryAfter != 42*time.Second {
			t.Errorf("retryAfter = %s, want 42s", err.RetryAfter)
		}
	})
}

func TestErrorFromTransport(t *testing.T) {
	t.Run("caller cancellation is not retryable", func(t *testing.T) {
		err := ErrorFromTransport("alpha", context.Canceled)
		if err.Code != ir.ErrCodeTimeout || err.Retryable {
			t.Errorf("got {%s retryable=%v}, want {%s retryable=false}", err.Code, err.Retryable, ir.ErrCodeTimeout)
		}
	})
	t.Run("deadline expiry is retryable", func(t *testing.T) {
		err := ErrorFromTransport("alpha", context.DeadlineExceeded)
		if err.Code != ir.ErrCodeTimeout || !err.Retryable {
			t.Errorf("got {%s retryable=%v}, want {%s retryable=true}", err.Code, err.Retryable, ir.ErrCodeTimeout)
		}
	})
	t.Run("generic transport failure is a network error", func(t *testing.T) {
		err := ErrorFromTransport("alpha", errors.New("connection refused"))
		if err.Code != ir.ErrCodeNetwork || !err.Retryable {
			t.Errorf("got {%s retryable=%v}, want {%s retryable=true}", err.Code, err.Retryable, ir.ErrCodeNetwork)
		}
		if err.Backend != "alpha" {
			t.Errorf("backend = %q, want %q", err.Backend, "alpha")
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "empty", header: "", want: 0},
		{name: "seconds", header: "15", want: 15 * time.Second},
		{name: "garbage", header: "soon", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRetryAfter(tt.header); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
			}
		})
	}

	t.Run("http date", func(t *testing.T) {
		header := time.Now().Add(90 * time.Second).UTC().Format(time.RFC1123)
		got := ParseRetryAfter(header)
		if got <= 0 || got > 91*time.Second {
			t.Errorf("ParseRetryAfter(date) = %s, want about 90s", got)
		}
	})
}
