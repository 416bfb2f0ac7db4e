// Package metrics implements Prometheus metric collection for the gateway.
//
// Collector owns a private registry and groups metric families by concern:
// request outcomes, backend behavior (health, errors, breaker state), and
// the response cache. All recording methods are safe for concurrent use and
// become no-ops when metrics are disabled in configuration.
//
// # Cardinality
//
// Backend and model names form metric labels. A cardinality limiter caps
// the number of unique label combinations; once the cap is reached new
// model names are aggregated under "other" so a misbehaving client cannot
// grow the registry without bound.
//
// # Exposition
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
