package generic

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/johnhenry/ai.matey-sub001/pkg/backends"
	"github.com/johnhenry/ai.matey-sub001/pkg/ir"
)

// Wire paths relative to the configured base URL.
const (
	chatPath   = "/v1/chat"
	streamPath = "/v1/chat/stream"
	healthPath = "/v1/health"
)

// Config configures a generic backend instance.
type Config struct {
	// HTTP is the transport configuration (name, base URL, credentials).
	HTTP backends.HTTPConfig

	// Capabilities overrides the default capability declaration. Leave
	// zero to accept everything the canonical format can express.
	Capabilities *backends.Capabilities

	// PassRaw retains the untranslated response payload on responses.
	PassRaw bool
}

// DefaultCapabilities returns the capability declaration of an endpoint
// that accepts the full canonical format.
func DefaultCapabilities() backends.Capabilities {
	return backends.Capabilities{
		Streaming:      true,
		MultiModal:     true,
		Tools:          true,
		SystemMessages: backends.SystemInMessages,
		MultiSystem:    true,
		Parameters: backends.ParameterSupport{
			Temperature: true,
			TopP:        true,
			TopK:        true,
			MaxTokens:   true,
			Seed:        true,
			Stop:        true,
		},
	}
}

// Client executes canonical requests against a canonical-format endpoint.
type Client struct {
	config Config
	caps   backends.Capabilities
	http   *backends.HTTPClient
}

// New creates a generic backend from config.
func New(config Config) *Client {
	caps := DefaultCapabilities()
	if config.Capabilities != nil {
		caps = *config.Capabilities
	}
	return &Client{
		config: config,
		caps:   caps,
		http:   backends.NewHTTPClient(config.HTTP),
	}
}

// Name returns the configured backend name.
func (c *Client) Name() string {
	return c.config.HTTP.Name
}

// Capabilities returns the declared capabilities.
func (c *Client) Capabilities() backends.Capabilities {
	return c.caps
}

// Execute runs a request to completion against the remote endpoint.
func (c *Client) Execute(ctx context.Context, req *ir.ChatRequest) (*ir.ChatResponse, error) {
	normalized := backends.Normalize(req, c.caps, c.Name())
	normalized.Stream = false

	body, err := json.Marshal(normalized)
	if err != nil {
		return nil, ir.WrapError(ir.ErrCodeConversion, err, "encoding request").WithBackend(c.Name())
	}

	started := time.Now()
	resp, err := c.http.Do(ctx, http.MethodPost, c.config.HTTP.BaseURL+chatPath, body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var remote ir.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, ir.WrapError(ir.ErrCodeConversion, err, "decoding response").WithBackend(c.Name())
	}
	out, err := c.translateResponse(&remote, normalized)
	if err != nil {
		return nil, err
	}
	out.Metadata.Backend = c.Name()
	out.Metadata.Duration = time.Since(started)
	return out, nil
}

// translateResponse rebuilds the remote response around the local request
// identity: local metadata (id, provenance, normalization warnings) wins,
// remote warnings are appended, and tool inputs are validated and
// repaired where needed.
func (c *Client) translateResponse(remote *ir.ChatResponse, req *ir.ChatRequest) (*ir.ChatResponse, error) {
	out := remote.Clone()
	md := req.Metadata.Clone()
	md.AddWarnings(remote.Metadata.Warnings)
	md.AddProvenance(c.Name())
	out.Metadata = md

	for i := range out.Message.Content {
		block := &out.Message.Content[i]
		if block.Type != ir.ContentTypeToolUse || block.ToolUse == nil {
			continue
		}
		repaired, warning, err := backends.RepairToolInput(c.Name(), string(block.ToolUse.Input))
		if err != nil {
			return nil, err
		}
		block.ToolUse.Input = repaired
		if warning != nil {
			out.Metadata.AddWarning(*warning)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, ir.WrapError(ir.ErrCodeConversion, err, "remote response violates canonical shape").WithBackend(c.Name())
	}
	if !c.config.PassRaw {
		out.Raw = nil
	}
	return out, nil
}

// HealthCheck probes the remote health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.http.Do(ctx, http.MethodGet, c.config.HTTP.BaseURL+healthPath, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Close releases pooled connections.
func (c *Client) Close() error {
	return c.http.Close()
}
