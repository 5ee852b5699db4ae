// Package metrics exposes the controller's Prometheus instrumentation.
//
// Metrics owns a private registry rather than the global one so tests and
// embedded controllers never collide. It observes dispatcher cycles,
// records device circuit breaker transitions and serves the registry over
// HTTP for the status API's /metrics route.
package metrics
