// Package telemetry provides observability for the gateway.
//
// # Components
//
//   - metrics: Prometheus metric collection for requests, backends,
//     streaming, and the response cache
//   - tracing: OpenTelemetry distributed tracing with OTLP/gRPC export
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("primary", "gpt-4", "success", time.Second, usage)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
//	shutdown, err := tracing.Setup(ctx, &cfg.Telemetry.Tracing)
//	defer shutdown(ctx)
//
// Both components are optional: a nil metrics collector and an unconfigured
// tracer are valid and cost nothing on the request path.
package telemetry
