package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oddsfeed/go-uofsdk/metrics"
)

const (
	defaultCriticalTimeout    = 30 * time.Second
	defaultNonCriticalTimeout = 5 * time.Second
	defaultRetryMax           = 2
)

type config struct {
	accessToken        string
	httpClient         *http.Client
	metrics            *metrics.Collectors
	criticalTimeout    time.Duration
	nonCriticalTimeout time.Duration
	retryMax           int
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		criticalTimeout:    defaultCriticalTimeout,
		nonCriticalTimeout: defaultNonCriticalTimeout,
		retryMax:           defaultRetryMax,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient sets the http client underlying both execution paths.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		cfg.httpClient = c
		return nil
	}
}

// WithAccessToken sets the REST API access token.
func WithAccessToken(token string) Option {
	return func(cfg *config) error {
		cfg.accessToken = token
		return nil
	}
}

// WithTimeouts sets the request timeouts of the critical and non-critical
// execution paths.
//
// Defaults are 30 and 5 seconds.
func WithTimeouts(critical, nonCritical time.Duration) Option {
	return func(cfg *config) error {
		if critical <= 0 || nonCritical <= 0 {
			return fmt.Errorf("timeouts must be positive")
		}
		cfg.criticalTimeout = critical
		cfg.nonCriticalTimeout = nonCritical
		return nil
	}
}

// WithRetryMax sets how many times a failed critical request is retried.
// Non-critical requests are never retried.
//
// Default is 2.
func WithRetryMax(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return fmt.Errorf("retry count cannot be negative")
		}
		cfg.retryMax = n
		return nil
	}
}

// WithMetrics sets the collectors that record REST API requests.
func WithMetrics(c *metrics.Collectors) Option {
	return func(cfg *config) error {
		cfg.metrics = c
		return nil
	}
}
