package metrics

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for the poll/notify pipeline.
type Metrics struct {
	PollCycles        prometheus.Counter
	FetchFailures     prometheus.Counter
	RecordsSeen       prometheus.Counter
	NormalizeFailures prometheus.Counter
	SpotsQueued       prometheus.Counter
	PostsSent         prometheus.Counter
	PostsFailed       prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// New registers all pipeline metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all pipeline metrics with reg. Tests pass a fresh
// registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_poll_cycles_total",
			Help: "Total number of completed poll cycles",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_fetch_failures_total",
			Help: "Total number of snapshot fetches treated as empty cycles",
		}),
		RecordsSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_records_total",
			Help: "Total number of raw aircraft records received from the feed",
		}),
		NormalizeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_normalize_failures_total",
			Help: "Total number of raw records dropped by normalization",
		}),
		SpotsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_spots_queued_total",
			Help: "Total number of sightings accepted and queued for reporting",
		}),
		PostsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_posts_sent_total",
			Help: "Total number of reports posted",
		}),
		PostsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "airspotter_posts_failed_total",
			Help: "Total number of reports that failed to post",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "airspotter_queue_depth",
			Help: "Number of sightings waiting in the outbound queue",
		}),
	}
}

// ListenAndServe exposes /metrics on addr in a background goroutine. An
// empty addr disables the listener.
func ListenAndServe(logger log.Logger, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		level.Info(logger).Log("msg", "metrics listener started", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			level.Error(logger).Log("msg", "metrics listener failed", "err", err)
		}
	}()
}
