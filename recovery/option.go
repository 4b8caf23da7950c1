package recovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oddsfeed/go-uofsdk/metrics"
)

const (
	// DefaultMaxExecution is how long a recovery may run before it is
	// considered failed and requested again.
	DefaultMaxExecution = time.Hour
	defaultCheckInterval = 5 * time.Second
)

type config struct {
	checkInterval time.Duration
	clock         clock.Clock
	lockTimeout   time.Duration
	maxExecution  time.Duration
	metrics       *metrics.Collectors
	nodeID        int
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		checkInterval: defaultCheckInterval,
		clock:         clock.New(),
		maxExecution:  DefaultMaxExecution,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	if cfg.lockTimeout == 0 {
		cfg.lockTimeout = cfg.maxExecution
	}
	return cfg, nil
}

// WithClock sets the clock used for inactivity and execution time checks.
func WithClock(clk clock.Clock) Option {
	return func(c *config) error {
		if clk != nil {
			c.clock = clk
		}
		return nil
	}
}

// WithNodeID sets the node id sent with recovery requests. The feed only
// delivers snapshot_complete messages for the node to routing keys carrying
// the same node id.
func WithNodeID(id int) Option {
	return func(c *config) error {
		c.nodeID = id
		return nil
	}
}

// WithMaxExecution sets how long a recovery may run before it is failed and
// requested again.
//
// Default is 1 hour.
func WithMaxExecution(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.New("max execution time must be positive")
		}
		c.maxExecution = d
		return nil
	}
}

// WithLockTimeout sets how long a duplicate recovery request waits for the
// running recovery to complete. Defaults to the max execution time.
func WithLockTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("lock timeout cannot be negative")
		}
		c.lockTimeout = d
		return nil
	}
}

// WithCheckInterval sets how often producer inactivity and recovery
// execution time are checked. If set to 0, checks only run when Check is
// called.
//
// Default is 5 seconds.
func WithCheckInterval(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("check interval cannot be negative")
		}
		c.checkInterval = d
		return nil
	}
}

// WithMetrics sets the collectors that record recovery requests and
// producer state.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
