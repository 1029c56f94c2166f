// Package metrics exports resolver activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "email_json"

// Collector records resolutions, strategy attempts and fetch latency.
// A nil *Collector is valid and records nothing.
type Collector struct {
	resolutions   *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
}

// New creates a Collector and registers it on reg. A nil reg uses the
// default registerer. Collectors already registered under the same names
// are reused, so New may be called more than once per process.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolutions by outcome (found, not_found, error).",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_attempts_total",
			Help:      "Strategy attempts by strategy and result (hit, miss).",
		}, []string{"strategy", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of outbound fetches by kind (page, json).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed outbound fetches by kind.",
		}, []string{"kind"}),
	}

	var err error
	if c.resolutions, err = register(reg, c.resolutions); err != nil {
		return nil, err
	}
	if c.attempts, err = register(reg, c.attempts); err != nil {
		return nil, err
	}
	if c.fetchDuration, err = register(reg, c.fetchDuration); err != nil {
		return nil, err
	}
	if c.fetchErrors, err = register(reg, c.fetchErrors); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, fmt.Errorf("register metrics collector: %w", err)
	}
	return collector, nil
}

// ObserveResolution counts one finished resolution.
func (c *Collector) ObserveResolution(outcome string) {
	if c == nil {
		return
	}
	c.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveAttempt counts one strategy attempt.
func (c *Collector) ObserveAttempt(strategy string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.attempts.WithLabelValues(strategy, result).Inc()
}

// ObserveFetch records the latency of one fetch and whether it failed.
func (c *Collector) ObserveFetch(kind string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		c.fetchErrors.WithLabelValues(kind).Inc()
	}
}
