// Package frontends defines the frontend adapter contract: translation
// between one caller wire format and the canonical request/response model.
//
// A Frontend is the inverse of a backend. Where a backend speaks a
// provider's API on the far side of the gateway, a frontend speaks a
// caller's API on the near side: ToIR parses and validates a raw caller
// request, FromIR and FromIRStream encode the canonical result back into
// the caller's shape. Frontends hold no per-request state; one instance
// serves any number of concurrent requests.
//
// The package ships a single implementation, Native, which speaks the
// canonical JSON wire format directly. Caller-format adapters follow the
// same shape: parse, validate, stamp identity, hand over an ir.ChatRequest.
package frontends
