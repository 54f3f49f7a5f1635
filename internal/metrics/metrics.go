// Package metrics exposes Prometheus collectors for the post service and the
// HTTP layer. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	postsCreated  prometheus.Counter
	postsRejected prometheus.Counter
	postsDeleted  prometheus.Counter
	postsPruned   prometheus.Counter
	feedRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ysocial",
			Name:      "posts_created_total",
			Help:      "Posts accepted by the content filter.",
		}),
		postsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ysocial",
			Name:      "posts_rejected_total",
			Help:      "Posts rejected by the content filter.",
		}),
		postsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ysocial",
			Name:      "posts_deleted_total",
			Help:      "Posts removed through the delete operation.",
		}),
		postsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ysocial",
			Name:      "posts_pruned_total",
			Help:      "Posts removed by the invalid-post sweep.",
		}),
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ysocial",
			Name:      "feed_requests_total",
			Help:      "Feed reads by selection strategy.",
		}, []string{"strategy"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ysocial",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.postsCreated,
		m.postsRejected,
		m.postsDeleted,
		m.postsPruned,
		m.feedRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PostCreated() {
	if m != nil {
		m.postsCreated.Inc()
	}
}

func (m *Metrics) PostRejected() {
	if m != nil {
		m.postsRejected.Inc()
	}
}

func (m *Metrics) PostsDeleted(n int) {
	if m != nil && n > 0 {
		m.postsDeleted.Add(float64(n))
	}
}

func (m *Metrics) PostsPruned(n int) {
	if m != nil && n > 0 {
		m.postsPruned.Add(float64(n))
	}
}

func (m *Metrics) FeedRequested(strategy string) {
	if m != nil {
		m.feedRequests.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m != nil {
		m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
	}
}
