// Package metrics exports Prometheus counters and histograms fed by bus
// events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/linkgraph/linkgraph/internal/eventbus"
	events "github.com/linkgraph/linkgraph/internal/events"
	executor "github.com/linkgraph/linkgraph/internal/executor"
)

const namespace = "linkgraph"

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	opDuration     *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	panics         prometheus.Counter
	resolverTasks  *prometheus.CounterVec
	resolverFailed *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "Executed GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help:    "GraphQL execution latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "errors_total",
			Help: "GraphQL errors by error type.",
		}, []string{"type"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "panics_total",
			Help: "Recovered panics during execution.",
		}),
		resolverTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "resolver", Name: "tasks_total",
			Help: "Resolver tasks run by field.",
		}, []string{"field"}),
		resolverFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "resolver", Name: "failures_total",
			Help: "Resolver tasks that returned an error, by field.",
		}, []string{"field"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.opDuration, m.errors, m.panics,
		m.resolverTasks, m.resolverFailed,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Subscribe attaches the collectors to the global bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			typ := e.OperationType
			if typ == "" {
				typ = "unknown"
			}
			outcome := "ok"
			if len(e.Errors) > 0 {
				outcome = "error"
			}
			m.operations.WithLabelValues(typ, outcome).Inc()
			m.opDuration.WithLabelValues(typ).Observe(e.Duration.Seconds())
			for _, err := range e.Errors {
				m.errors.WithLabelValues(string(errorType(err))).Inc()
			}
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLPanic) {
			m.panics.Inc()
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
			field := e.ObjectType + "." + e.Field
			m.resolverTasks.WithLabelValues(field).Add(float64(e.Tasks))
			m.resolverFailed.WithLabelValues(field).Add(float64(e.Failed))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func errorType(err error) executor.ErrorType {
	if gqlErr, ok := err.(executor.GraphQLError); ok && gqlErr.Type != "" {
		return gqlErr.Type
	}
	return executor.ErrorDataFetching
}
