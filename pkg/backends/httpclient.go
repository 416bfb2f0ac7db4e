package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// HTTP client defaults applied when the config leaves a field zero.
const (
	defaultTimeout             = 60 * time.Second
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// HTTPConfig configures a backend's HTTP transport.
type HTTPConfig struct {
	// Name is the backend identifier used in error provenance and logs.
	Name string

	// BaseURL is the API endpoint base URL.
	BaseURL string

	// APIKey is the bearer credential sent with each request.
	APIKey string

	// Timeout bounds a complete non-streaming request.
	Timeout time.Duration

	// MaxIdleConns is the connection pool size.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the per-host connection pool size.
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	IdleConnTimeout time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
	return c
}

// HTTPClient is the pooled HTTP transport concrete backends embed. It
// issues exactly one attempt per call and classifies every failure;
// retrying belongs to the retry middleware and the router's fallback
// chain, never to the transport.
type HTTPClient struct {
	config HTTPConfig

	// client bounds complete request/response cycles with the timeout.
	client *http.Client

	// streamClient has no overall timeout: a healthy stream may outlive
	// any fixed deadline, so only ctx cancellation bounds it.
	streamClient *http.Client
}

// NewHTTPClient creates a pooled HTTP client for one backend.
func NewHTTPClient(config HTTPConfig) *HTTPClient {
	config = config.withDefaults()
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	return &HTTPClient{
		config:       config,
		client:       &http.Client{Transport: transport, Timeout: config.Timeout},
		streamClient: &http.Client{Transport: transport},
	}
}

// Config returns the client configuration.
func (c *HTTPClient) Config() HTTPConfig {
	return c.config
}

// Do issues one request and returns the response with a 2xx status and an
// open body. Any other outcome returns a classified error.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.do(ctx, c.client, method, url, body, headers)
}

// DoStream is Do without the overall client timeout, for responses that
// stay open while chunks arrive.
func (c *HTTPClient) DoStream(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return c.do(ctx, c.streamClient, method, url, body, headers)
}

func (c *HTTPClient) do(ctx context.Context, client *http.Client, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeInternal, err, "building request").WithBackend(c.config.Name)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	slog.Debug("sending backend request",
		"backend", c.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := client.Do(req)
	if err != nil {
		return nil, ErrorFromTransport(c.config.Name, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	classified := ErrorFromStatus(c.config.Name, resp.StatusCode, string(errorBody), resp.Header.Get("Retry-After"))
	slog.Warn("backend request failed",
		"backend", c.config.Name,
		"status", resp.StatusCode,
		"code", classified.Code,
	)
	return nil, classified
}

// DoJSON issues a JSON request and decodes the response body into out.
// A malformed provider response is a conversion failure, not a transient
// one.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return ir.WrapError(ir.ErrCodeConversion, err, "encoding request").WithBackend(c.config.Name)
		}
	}
	resp, err := c.Do(ctx, method, url, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrorFromTransport(c.config.Name, err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return ir.WrapError(ir.ErrCodeConversion, err, "decoding response").WithBackend(c.config.Name)
		}
	}
	return nil
}

// Close releases pooled connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
