// Package metrics defines the prometheus collectors of the SDK.
//
// All recording methods are safe to call on a nil *Collectors, which records
// nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "uofsdk"

// Collectors holds all SDK metrics.
type Collectors struct {
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheEvictions   *prometheus.CounterVec
	CacheItems       *prometheus.GaugeVec
	APIRequests      *prometheus.CounterVec
	APILatency       *prometheus.HistogramVec
	RecoveryRequests *prometheus.CounterVec
	ProducerDown     *prometheus.GaugeVec
	FeedMessages     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache lookups that found an item",
		}, []string{"cache"}),

		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache lookups that created a new item",
		}, []string{"cache"}),

		CacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Items removed from a cache by reason",
		}, []string{"cache", "reason"}),

		CacheItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_items",
			Help:      "Items held by a cache",
		}, []string{"cache"}),

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "REST API requests by endpoint, execution path and outcome",
		}, []string{"endpoint", "path", "outcome"}),

		APILatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "REST API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		RecoveryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_requests_total",
			Help:      "Recovery requests by producer and result",
		}, []string{"producer", "result"}),

		ProducerDown: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "producer_down",
			Help:      "1 if the producer is down, 0 otherwise",
		}, []string{"producer"}),

		FeedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_messages_total",
			Help:      "Feed messages processed by type",
		}, []string{"type"}),
	}
}

func (c *Collectors) CacheHit(cache string) {
	if c != nil {
		c.CacheHits.WithLabelValues(cache).Inc()
	}
}

func (c *Collectors) CacheMiss(cache string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(cache).Inc()
	}
}

func (c *Collectors) CacheEvicted(cache, reason string) {
	if c != nil {
		c.CacheEvictions.WithLabelValues(cache, reason).Inc()
	}
}

func (c *Collectors) SetCacheItems(cache string, n int) {
	if c != nil {
		c.CacheItems.WithLabelValues(cache).Set(float64(n))
	}
}

// APIRequest records a REST API request. A nil err counts as success.
func (c *Collectors) APIRequest(endpoint, path string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.APIRequests.WithLabelValues(endpoint, path, outcome).Inc()
	c.APILatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (c *Collectors) RecoveryRequest(producerID int, result string) {
	if c != nil {
		c.RecoveryRequests.WithLabelValues(strconv.Itoa(producerID), result).Inc()
	}
}

func (c *Collectors) SetProducerDown(producerID int, down bool) {
	if c == nil {
		return
	}
	var v float64
	if down {
		v = 1
	}
	c.ProducerDown.WithLabelValues(strconv.Itoa(producerID)).Set(v)
}

func (c *Collectors) FeedMessage(msgType string) {
	if c != nil {
		c.FeedMessages.WithLabelValues(msgType).Inc()
	}
}
