package backends

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// ErrorFromStatus classifies a provider HTTP status into the error
// taxonomy. Client mistakes (400/404/422) and credential failures
// (401/403) are not retryable; throttling (429) and server-side failures
// (5xx) are. retryAfter is the raw Retry-After header value, honored on
// 429 and 503.
func ErrorFromStatus(backend string, status int, body string, retryAfter string) *ir.Error {
	e := &ir.Error{
		Backend:    backend,
		HTTPStatus: status,
		Message:    truncateBody(body),
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Code = ir.ErrCodeAuthentication
	case http.StatusTooManyRequests:
		e.Code = ir.ErrCodeRateLimit
		e.RetryAfter = ParseRetryAfter(retryAfter)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Code = ir.ErrCodeTimeout
	case http.StatusServiceUnavailable:
		e.Code = ir.ErrCodeProviderUnavailable
		e.RetryAfter = ParseRetryAfter(retryAfter)
	default:
		e.Code = ir.ErrCodeProvider
	}
	e.Retryable = e.Code.Retryable()
	if e.Code == ir.ErrCodeProvider && status < http.StatusInternalServerError {
		// 4xx responses reflect the request itself; do not retry.
		e.Retryable = false
	}
	return e
}

// ErrorFromTransport classifies a transport-level failure. Context
// cancellation by the caller is not retryable; deadline expiry and
// network failures are.
func ErrorFromTransport(backend string, err error) *ir.Error {
	switch {
	case errors.Is(err, context.Canceled):
		e := ir.WrapError(ir.ErrCodeTimeout, err, "request cancelled")
		e.Retryable = false
		return e.WithBackend(backend)
	case errors.Is(err, context.DeadlineExceeded):
		return ir.WrapError(ir.ErrCodeTimeout, err, "request deadline exceeded").WithBackend(backend)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ir.WrapError(ir.ErrCodeTimeout, err, "network timeout").WithBackend(backend)
	}
	return ir.WrapError(ir.ErrCodeNetwork, err, "transport failure").WithBackend(backend)
}

// ParseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form, returning 0 when absent or unparseable.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// truncateBody bounds provider error bodies carried in messages.
func truncateBody(body string) string {
	const limit = 512
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
