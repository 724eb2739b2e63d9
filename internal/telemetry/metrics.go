package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Metrics records execution, workspace and callback metrics.
type Metrics struct {
	registry *prometheus.Registry

	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	workspacesCreated prometheus.Counter
	workspacesDeleted prometheus.Counter
	workspacesSwept   prometheus.Counter
	webhookDeliveries *prometheus.CounterVec
	asyncInflight     prometheus.Gauge
}

// NewMetrics creates a metrics collector. A disabled config yields a no-op instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	ns := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "executions_total",
				Help:      "Terraform executions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "execution_duration_seconds",
				Help:      "Duration of terraform executions in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"operation"},
		),
		workspacesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "workspaces_created_total",
			Help:      "Workspaces created",
		}),
		workspacesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "workspaces_deleted_total",
			Help:      "Workspaces deleted after harvest",
		}),
		workspacesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "workspaces_swept_total",
			Help:      "Abandoned workspaces removed by the retention sweep",
		}),
		webhookDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "webhook_deliveries_total",
				Help:      "Async result callbacks by outcome",
			},
			[]string{"outcome"},
		),
		asyncInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "async_tasks_inflight",
			Help:      "Async executions currently running",
		}),
	}

	registry.MustRegister(
		m.executions,
		m.executionDuration,
		m.workspacesCreated,
		m.workspacesDeleted,
		m.workspacesSwept,
		m.webhookDeliveries,
		m.asyncInflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Enabled reports whether metrics are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// ObserveExecution records one terraform invocation.
func (m *Metrics) ObserveExecution(operation string, successful bool, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.executions.WithLabelValues(operation, outcome(successful)).Inc()
	m.executionDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) WorkspaceCreated() {
	if m.Enabled() {
		m.workspacesCreated.Inc()
	}
}

func (m *Metrics) WorkspaceDeleted() {
	if m.Enabled() {
		m.workspacesDeleted.Inc()
	}
}

// WorkspacesSwept records n workspaces removed by one sweep.
func (m *Metrics) WorkspacesSwept(n int) {
	if m.Enabled() && n > 0 {
		m.workspacesSwept.Add(float64(n))
	}
}

// WebhookDelivered records a callback attempt.
func (m *Metrics) WebhookDelivered(ok bool) {
	if m.Enabled() {
		m.webhookDeliveries.WithLabelValues(outcome(ok)).Inc()
	}
}

func (m *Metrics) AsyncStarted() {
	if m.Enabled() {
		m.asyncInflight.Inc()
	}
}

func (m *Metrics) AsyncFinished() {
	if m.Enabled() {
		m.asyncInflight.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
