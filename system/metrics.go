package system

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is the additive ambient observability surface (SPEC_FULL §6):
// it exercises prometheus/client_golang, named in the domain stack but
// otherwise unwired by the teacher's transport-only scope. It has no
// effect on any wire-protocol behavior.
type Metrics struct {
	registry *prometheus.Registry

	clientConnected prometheus.Gauge
	algorithmRuns   *prometheus.CounterVec
	runDuration     prometheus.Histogram
	dispatched      *prometheus.CounterVec

	srv *http.Server
}

// NewMetrics constructs and registers the metric collectors described
// in SPEC_FULL §6.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		clientConnected: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "timetable_client_connected",
			Help: "Whether a scheduling client is currently connected (0 or 1).",
		}),
		algorithmRuns: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_algorithm_runs_total",
			Help: "Total algorithm runs, by terminal result.",
		}, []string{"result"}),
		runDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "timetable_algorithm_run_duration_seconds",
			Help:    "Algorithm run duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		dispatched: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_messages_dispatched_total",
			Help: "Total messages dispatched, by message type.",
		}, []string{"type"}),
	}
	return m
}

// SetClientConnected records the current connection state.
func (m *Metrics) SetClientConnected(connected bool) {
	if connected {
		m.clientConnected.Set(1)
	} else {
		m.clientConnected.Set(0)
	}
}

// ObserveRun records one terminal algorithm run outcome.
func (m *Metrics) ObserveRun(result string, duration time.Duration) {
	m.algorithmRuns.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// ObserveDispatch records one message routed through the dispatcher.
func (m *Metrics) ObserveDispatch(msgType string) {
	m.dispatched.WithLabelValues(msgType).Inc()
}

// Serve starts the /metrics HTTP endpoint on addr in the background.
// Call Shutdown to stop it. A no-op if addr is empty.
func (m *Metrics) Serve(addr string, log *zap.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.srv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server exited", zap.Error(err))
		}
	}()
}

// Shutdown stops the /metrics HTTP endpoint, if running.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
