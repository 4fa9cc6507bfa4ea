// Package metrics exposes Prometheus metrics fed by the event bus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
)

const namespace = "usergraph"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	graphqlRequests *prometheus.CounterVec
	graphqlDuration *prometheus.HistogramVec

	loaderBatches  *prometheus.CounterVec
	loaderKeys     *prometheus.HistogramVec
	loaderDuration *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "code"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		graphqlRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "requests_total",
			Help:      "Total number of GraphQL operations by outcome",
		}, []string{"type", "outcome"}), // outcome: ok, syntax, validation, execution

		graphqlDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "duration_seconds",
			Help:      "GraphQL operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		loaderBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batches_total",
			Help:      "Total number of loader batch fetches",
		}, []string{"loader", "status"}),

		loaderKeys: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batch_keys",
			Help:      "Distinct keys per loader batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"loader"}),

		loaderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "batch_duration_seconds",
			Help:      "Loader batch fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"loader"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.graphqlRequests,
		m.graphqlDuration,
		m.loaderBatches,
		m.loaderKeys,
		m.loaderDuration,
	)
	return m
}

// Register subscribes the collectors to the global event bus.
func (m *Metrics) Register() (unsubscribe func()) {
	offs := []func(){
		eventbus.Subscribe(m.onHTTP),
		eventbus.Subscribe(m.onGraphQL),
		eventbus.Subscribe(m.onLoaderBatch),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func (m *Metrics) onHTTP(ctx context.Context, e events.HTTPFinish) {
	m.httpRequests.WithLabelValues(e.Route, e.Request.Method, strconv.Itoa(e.Status)).Inc()
	m.httpDuration.WithLabelValues(e.Route).Observe(e.Duration.Seconds())
}

func (m *Metrics) onGraphQL(ctx context.Context, e events.GraphQLFinish) {
	typ := e.OperationType
	if typ == "" {
		typ = "unknown"
	}
	m.graphqlRequests.WithLabelValues(typ, e.Outcome).Inc()
	m.graphqlDuration.WithLabelValues(typ).Observe(e.Duration.Seconds())
}

func (m *Metrics) onLoaderBatch(ctx context.Context, e events.LoaderBatch) {
	status := "ok"
	if e.Err != nil {
		status = "error"
	}
	m.loaderBatches.WithLabelValues(e.Loader, status).Inc()
	m.loaderKeys.WithLabelValues(e.Loader).Observe(float64(e.Keys))
	m.loaderDuration.WithLabelValues(e.Loader).Observe(e.Duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
