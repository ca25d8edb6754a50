package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"keyword-pivot/pkg/pivot"
)

// Recorder owns the engine's Prometheus collectors. It implements
// pivot.Observer.
type Recorder struct {
	registry   *prometheus.Registry
	recomputes *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	visible    *prometheus.GaugeVec
	requests   *prometheus.CounterVec
	throttled  prometheus.Counter
	sessions   prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwpivot_recomputes_total",
			Help: "Recompute passes by operation and outcome",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kwpivot_recompute_duration_seconds",
			Help:    "Wall time of one filter/aggregate/page pass",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .2, .5, 1},
		}, []string{"op"}),
		visible: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kwpivot_visible_records",
			Help: "Visible subset size of the last successful pass",
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kwpivot_http_requests_total",
			Help: "Query API requests by route and status",
		}, []string{"route", "status"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kwpivot_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kwpivot_active_sessions",
			Help: "Operator sessions currently cached",
		}),
	}
	r.registry.MustRegister(r.recomputes, r.duration, r.visible, r.requests, r.throttled, r.sessions)
	return r
}

// Registry exposes the registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveRecompute(op string, visible int, elapsed time.Duration, err error) {
	r.recomputes.WithLabelValues(op, outcome(err)).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err == nil {
		r.visible.WithLabelValues(op).Set(float64(visible))
	}
}

// ObserveRequest counts one API request.
func (r *Recorder) ObserveRequest(route string, status int) {
	r.requests.WithLabelValues(route, statusClass(status)).Inc()
}

// ObserveThrottled counts one rate-limited request.
func (r *Recorder) ObserveThrottled() { r.throttled.Inc() }

// SetSessions reports the live session count.
func (r *Recorder) SetSessions(n int) { r.sessions.Set(float64(n)) }

// RegisterDataset publishes static dataset gauges: record count and issue
// counts per kind.
func (r *Recorder) RegisterDataset(store *pivot.Store) error {
	records := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kwpivot_dataset_records",
		Help: "Records held by the immutable store",
	})
	records.Set(float64(store.Len()))

	issues := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kwpivot_dataset_issues",
		Help: "Data quality issues found at load time by kind",
	}, []string{"kind"})
	for kind, n := range store.IssueCounts() {
		issues.WithLabelValues(string(kind)).Set(float64(n))
	}

	for _, c := range []prometheus.Collector{records, issues} {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

var _ pivot.Observer = (*Recorder)(nil)
