package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/nerrad567/theatre-core/internal/controller"
)

const namespace = "theatre"

// Result label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the controller's collectors.
type Metrics struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	routeErrors    prometheus.Counter
	cycleDuration  prometheus.Histogram
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	breakerTrips   *prometheus.CounterVec
}

// New creates the collectors and registers them, with the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Device events taken off the queue, by event name.",
		}, []string{"event"}),
		routeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_errors_total",
			Help:      "Events whose routing failed or panicked.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time to route one event and run its triggered actions.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_actions_total",
			Help:      "Executed rule actions, by rule scope and result.",
		}, []string{"scope", "result"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rule_action_duration_seconds",
			Help:      "Rule action latency, by rule scope.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"scope"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_breaker_state",
			Help:      "Device circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"device"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_breaker_trips_total",
			Help:      "Times a device circuit breaker opened.",
		}, []string{"device"}),
	}

	m.registry.MustRegister(
		m.events,
		m.routeErrors,
		m.cycleDuration,
		m.actions,
		m.actionDuration,
		m.breakerState,
		m.breakerTrips,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterQueueDepth exports depth as a gauge sampled at scrape time.
func (m *Metrics) RegisterQueueDepth(depth func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Events waiting in the dispatcher queue.",
	}, func() float64 { return float64(depth()) }))
}

// CycleCompleted implements controller.Observer.
func (m *Metrics) CycleCompleted(_ context.Context, cycle controller.Cycle) {
	m.events.WithLabelValues(cycle.EventName).Inc()
	m.cycleDuration.Observe(cycle.Duration.Seconds())
	if cycle.RouteErr != nil {
		m.routeErrors.Inc()
	}

	for _, res := range cycle.Results {
		scope := RuleScope(res.Rule)
		result := resultSuccess
		if res.Err != nil {
			result = resultFailure
		}
		m.actions.WithLabelValues(scope, result).Inc()
		m.actionDuration.WithLabelValues(scope).Observe(res.Duration.Seconds())
	}
}

// BreakerChanged records a device breaker transition. Its signature
// matches the device clients' OnBreakerChange hook.
func (m *Metrics) BreakerChanged(device string, _, to gobreaker.State) {
	m.breakerState.WithLabelValues(device).Set(breakerValue(to))
	if to == gobreaker.StateOpen {
		m.breakerTrips.WithLabelValues(device).Inc()
	}
}

// TrackDevice exports a closed breaker for device before any transition.
func (m *Metrics) TrackDevice(device string) {
	m.breakerState.WithLabelValues(device).Set(breakerValue(gobreaker.StateClosed))
}

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// RuleScope returns the scope of a qualified rule name: "display" for
// "display/hdr". Unscoped names are their own scope.
func RuleScope(rule string) string {
	scope, _, _ := strings.Cut(rule, "/")
	return scope
}

var _ controller.Observer = (*Metrics)(nil)
