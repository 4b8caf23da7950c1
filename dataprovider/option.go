package dataprovider

import (
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

type config struct {
	accessToken  string
	httpClient   *http.Client
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
	userAgent    string
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
		timeout:      defaultTimeout,
		userAgent:    "go-uofsdk",
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClient sets the http client used for requests. The client's timeout is
// replaced by the one set with WithTimeout.
func WithClient(c *http.Client) Option {
	return func(cfg *config) error {
		if c != nil {
			cfg.httpClient = c
		}
		return nil
	}
}

// WithAccessToken sets the token sent with every request.
func WithAccessToken(token string) Option {
	return func(cfg *config) error {
		cfg.accessToken = token
		return nil
	}
}

// WithTimeout sets the timeout of a single request, including reading the
// response body.
//
// Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		cfg.timeout = timeout
		return nil
	}
}

// WithRetry enables retrying of failed requests with exponential backoff.
// Connection errors and 5xx responses are retried up to retryMax times.
func WithRetry(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(cfg *config) error {
		if retryMax < 0 {
			return fmt.Errorf("retry count cannot be negative")
		}
		cfg.retryMax = retryMax
		if waitMin > 0 {
			cfg.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			cfg.retryWaitMax = waitMax
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *config) error {
		cfg.userAgent = ua
		return nil
	}
}
