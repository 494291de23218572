package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	RateLimitWait      prometheus.Histogram
	RateLimitHitsTotal prometheus.Counter

	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	CacheInvalidationsTotal *prometheus.CounterVec
	CacheEntries            prometheus.Gauge

	ActiveChats prometheus.Gauge
}

// New регистрирует коллекторы в reg; nil - глобальный registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anime_bot_requests_total",
				Help: "Total number of chat updates processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anime_bot_request_duration_seconds",
				Help:    "Chat update handling duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "anime_bot_requests_in_flight",
				Help: "Number of chat updates currently being processed",
			},
		),

		APIRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anime_bot_api_requests_total",
				Help: "Total number of catalog API requests",
			},
			[]string{"endpoint", "status"},
		),
		APIRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anime_bot_api_request_duration_seconds",
				Help:    "Catalog API request duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),

		RateLimitWait: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "anime_bot_rate_limit_wait_seconds",
				Help:    "Time callers spent waiting for the outbound rate limit gate",
				Buckets: []float64{0, 0.1, 0.25, 0.5, 1, 5, 15, 30, 60},
			},
		),
		RateLimitHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "anime_bot_rate_limit_hits_total",
				Help: "Total number of chat commands rejected by the per-chat limiter",
			},
		),

		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "anime_bot_cache_hits_total",
				Help: "Total number of query cache hits",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "anime_bot_cache_misses_total",
				Help: "Total number of query cache misses",
			},
		),
		CacheInvalidationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anime_bot_cache_invalidations_total",
				Help: "Total number of cache entries dropped by tag invalidation",
			},
			[]string{"tag"},
		),
		CacheEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "anime_bot_cache_entries",
				Help: "Number of entries held by the query cache",
			},
		),

		ActiveChats: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "anime_bot_active_chats",
				Help: "Number of chats with a live session",
			},
		),
	}

	return m
}

func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordAPIRequest(endpoint, status string, duration time.Duration) {
	m.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitWait(wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	m.RateLimitWait.Observe(wait.Seconds())
}

func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitsTotal.Inc()
}

func (m *Metrics) RecordCacheHit() {
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordInvalidation - сколько записей выкинуто по тегу
func (m *Metrics) RecordInvalidation(tag string, dropped int) {
	m.CacheInvalidationsTotal.WithLabelValues(tag).Add(float64(dropped))
}

func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

func (m *Metrics) SetActiveChats(n int) {
	m.ActiveChats.Set(float64(n))
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
