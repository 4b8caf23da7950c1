package sportevent

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/metrics"
)

const (
	defaultName          = "SportEventCache"
	defaultPoolSize      = 200
	defaultSlidingExpiry = 12 * time.Hour
	defaultSweepInterval = 5 * time.Minute
)

type config struct {
	capacity      int
	clock         clock.Clock
	languages     []string
	metrics       *metrics.Collectors
	name          string
	poolSize      int
	sliding       time.Duration
	strategy      apierror.Strategy
	sweepInterval time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		clock:         clock.New(),
		languages:     []string{"en"},
		name:          defaultName,
		poolSize:      defaultPoolSize,
		sliding:       defaultSlidingExpiry,
		sweepInterval: defaultSweepInterval,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithName sets the name the cache registers with, and uses as requester
// name towards the data router.
func WithName(name string) Option {
	return func(c *config) error {
		if name == "" {
			return errors.New("empty cache name")
		}
		c.name = name
		return nil
	}
}

// WithLanguages sets the default languages. An item holding data in all of
// them is fully loaded. The first language is used for language-neutral
// data.
//
// Default is "en".
func WithLanguages(langs ...string) Option {
	return func(c *config) error {
		if len(langs) == 0 {
			return errors.New("at least one language is required")
		}
		c.languages = append([]string(nil), langs...)
		return nil
	}
}

// WithStrategy sets how getters report fetch errors.
func WithStrategy(s apierror.Strategy) Option {
	return func(c *config) error {
		c.strategy = s
		return nil
	}
}

// WithPoolSize sets the number of ids that can be fetched concurrently.
//
// Default is 200.
func WithPoolSize(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return errors.New("pool size must be positive")
		}
		c.poolSize = n
		return nil
	}
}

// WithCapacity bounds the number of cached items. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("capacity cannot be negative")
		}
		c.capacity = n
		return nil
	}
}

// WithExpiration sets how long an item stays cached after its last access.
//
// Default is 12 hours.
func WithExpiration(sliding time.Duration) Option {
	return func(c *config) error {
		if sliding < 0 {
			return errors.New("expiration cannot be negative")
		}
		c.sliding = sliding
		return nil
	}
}

// WithSweepInterval sets how often expired items are removed.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) error {
		c.sweepInterval = d
		return nil
	}
}

// WithClock sets the clock used for expiration and update times.
func WithClock(clk clock.Clock) Option {
	return func(c *config) error {
		if clk != nil {
			c.clock = clk
		}
		return nil
	}
}

// WithMetrics sets the collectors that record cache hits, misses and
// evictions.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
