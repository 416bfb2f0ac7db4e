// Package tracing wires OpenTelemetry distributed tracing into the
// gateway.
//
// New returns a Tracer that exports spans to an OTLP/gRPC collector. When
// tracing is disabled in configuration the returned Tracer is a no-op and
// adds nothing to the request path, so callers never need to branch on
// whether tracing is on:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil { ... }
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "gateway.chat")
//	defer span.End()
//
// W3C Trace Context propagation is installed globally so trace ids survive
// hops through the generic HTTP backend.
package tracing
