// Package generic implements a backend adapter for endpoints that speak
// the gateway's canonical wire format directly: requests and responses are
// the ir JSON encoding, and streams are server-sent events whose data
// payloads are ir stream chunks.
//
// It is the reference shape for concrete provider adapters: declare
// capabilities, normalize the request against them, issue the call through
// the shared HTTP client, and translate the result back, never retrying
// internally. It is also useful on its own for chaining gateways or for
// services that choose to accept the canonical format.
package generic
