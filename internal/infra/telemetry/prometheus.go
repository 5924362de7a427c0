package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const metricsNamespace = "nacos_mcp_gateway"

type PrometheusMetrics struct {
	cacheRequests       *prometheus.CounterVec
	catalogLoads        *prometheus.CounterVec
	catalogLoadDuration prometheus.Histogram
	toolCalls           *prometheus.CounterVec
	toolCallDuration    *prometheus.HistogramVec
	activeSessions      prometheus.Gauge
	mailboxOverwrites   prometheus.Counter
	inflightRequests    prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cache_requests_total",
				Help:      "Catalog cache lookups by result",
			},
			[]string{"result"},
		),
		catalogLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "catalog_loads_total",
				Help:      "Catalog aggregation runs by status",
			},
			[]string{"status"},
		),
		catalogLoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "catalog_load_duration_seconds",
				Help:      "Duration of catalog aggregation in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tool_calls_total",
				Help:      "Routed tool calls by server and outcome",
			},
			[]string{"server", "outcome"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Duration of routed tool calls in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"server"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_sessions",
				Help:      "Open push-channel sessions",
			},
		),
		mailboxOverwrites: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "mailbox_overwrites_total",
				Help:      "Mailbox writes that replaced an unread message",
			},
		),
		inflightRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "worker_pool_inflight",
				Help:      "Requests currently holding a worker slot",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveCacheLookup(result domain.CacheResult) {
	p.cacheRequests.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusMetrics) ObserveCatalogLoad(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.catalogLoads.WithLabelValues(status).Inc()
	p.catalogLoadDuration.Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveToolCall(metric domain.ToolCallMetric) {
	p.toolCalls.WithLabelValues(metric.Server, string(metric.Outcome)).Inc()
	p.toolCallDuration.WithLabelValues(metric.Server).Observe(metric.Duration.Seconds())
}

func (p *PrometheusMetrics) SetActiveSessions(count int) {
	p.activeSessions.Set(float64(count))
}

func (p *PrometheusMetrics) ObserveMailboxOverwrite() {
	p.mailboxOverwrites.Inc()
}

func (p *PrometheusMetrics) AddInflightRequests(delta int) {
	p.inflightRequests.Add(float64(delta))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
