package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec // labels: source, outcome
	UpstreamDuration *prometheus.HistogramVec

	LiveRefreshes *prometheus.CounterVec // outcome label: ok|error|stale
	ActiveViews   prometheus.Gauge

	CacheHits   *prometheus.CounterVec // cache label: schedule|history
	CacheMisses *prometheus.CounterVec

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	PollInterval prometheus.Gauge // seconds
}

func NewCollector(pollInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railview_upstream_requests_total",
			Help: "Requests sent to upstream timetable services.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railview_upstream_request_duration_seconds",
			Help:    "Latency of upstream timetable requests.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"source"}),
		LiveRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railview_live_refreshes_total",
			Help: "Live status refreshes by outcome.",
		}, []string{"outcome"}),
		ActiveViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railview_active_views",
			Help: "Number of open live views.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railview_cache_hits_total",
			Help: "In-memory cache hits.",
		}, []string{"cache"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railview_cache_misses_total",
			Help: "In-memory cache misses.",
		}, []string{"cache"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railview_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railview_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railview_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railview_live_poll_interval_seconds",
			Help: "Live status poll interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.UpstreamRequests, c.UpstreamDuration,
		c.LiveRefreshes, c.ActiveViews,
		c.CacheHits, c.CacheMisses,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.PollInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveUpstream records one upstream call. Safe on a nil collector.
func (c *Collector) ObserveUpstream(source string, start time.Time, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.UpstreamRequests.WithLabelValues(source, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func (c *Collector) LiveRefresh(outcome string) {
	if c == nil {
		return
	}
	c.LiveRefreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) ViewOpened() {
	if c != nil {
		c.ActiveViews.Inc()
	}
}

func (c *Collector) ViewClosed() {
	if c != nil {
		c.ActiveViews.Dec()
	}
}

func (c *Collector) CacheHit(cache string) {
	if c != nil {
		c.CacheHits.WithLabelValues(cache).Inc()
	}
}

func (c *Collector) CacheMiss(cache string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// Publisher metrics

func (c *Collector) NATSPublishedInc() {
	if c != nil {
		c.NATSPublished.Inc()
	}
}

func (c *Collector) NATSPublishErrInc() {
	if c != nil {
		c.NATSPublishErrs.Inc()
	}
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
