package cachestore

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultShards           = 32
	defaultSweepInterval    = time.Minute
	defaultCompactionFactor = 0.1
)

type config[V any] struct {
	absolute      time.Duration
	capacity      int
	clock         clock.Clock
	compaction    float64
	name          string
	onEvict       EvictionFunc[V]
	shards        int
	sliding       time.Duration
	sweepInterval time.Duration
}

// Option is a function that sets a value in a config.
type Option[V any] func(*config[V]) error

// getOpts creates a config and applies Options to it.
func getOpts[V any](opts []Option[V]) (config[V], error) {
	cfg := config[V]{
		clock:         clock.New(),
		compaction:    defaultCompactionFactor,
		name:          "cache",
		shards:        defaultShards,
		sweepInterval: defaultSweepInterval,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config[V]{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithName sets the name used in log messages.
func WithName[V any](name string) Option[V] {
	return func(cfg *config[V]) error {
		cfg.name = name
		return nil
	}
}

// WithClock sets the clock used for expiration. Intended for tests.
func WithClock[V any](clk clock.Clock) Option[V] {
	return func(cfg *config[V]) error {
		if clk != nil {
			cfg.clock = clk
		}
		return nil
	}
}

// WithCapacity sets the number of entries above which the least recently
// accessed entries are compacted away. Zero, the default, means unbounded.
func WithCapacity[V any](n int) Option[V] {
	return func(cfg *config[V]) error {
		if n < 0 {
			return errors.New("capacity cannot be negative")
		}
		cfg.capacity = n
		return nil
	}
}

// WithCompaction sets the fraction of capacity removed by a compaction.
//
// Default is 0.1
func WithCompaction[V any](fraction float64) Option[V] {
	return func(cfg *config[V]) error {
		if fraction <= 0 || fraction >= 1 {
			return errors.New("compaction fraction must be between 0 and 1")
		}
		cfg.compaction = fraction
		return nil
	}
}

// WithDefaultExpiration sets the expiration applied by Put when no
// PutOption overrides it. A zero duration disables that kind of expiration.
func WithDefaultExpiration[V any](absolute, sliding time.Duration) Option[V] {
	return func(cfg *config[V]) error {
		if absolute < 0 || sliding < 0 {
			return errors.New("expiration cannot be negative")
		}
		cfg.absolute = absolute
		cfg.sliding = sliding
		return nil
	}
}

// WithSweepInterval sets how often expired entries are removed. If set to 0,
// proactive sweeping is disabled and expired entries are only removed when
// read.
//
// Default is 1 minute.
func WithSweepInterval[V any](interval time.Duration) Option[V] {
	return func(cfg *config[V]) error {
		cfg.sweepInterval = interval
		return nil
	}
}

// WithEvictionHandler sets a function that is called after an entry leaves
// the store.
func WithEvictionHandler[V any](fn EvictionFunc[V]) Option[V] {
	return func(cfg *config[V]) error {
		cfg.onEvict = fn
		return nil
	}
}

// WithShards sets the number of independently locked shards.
func WithShards[V any](n int) Option[V] {
	return func(cfg *config[V]) error {
		if n < 1 {
			return errors.New("shard count must be positive")
		}
		cfg.shards = n
		return nil
	}
}

type putConfig struct {
	absolute    time.Duration
	sliding     time.Duration
	absoluteSet bool
	slidingSet  bool
}

// PutOption overrides the default expiration of a single Put.
type PutOption func(*putConfig)

// AbsoluteExpiration expires the entry d after it is put, regardless of
// access. Zero means no absolute expiration.
func AbsoluteExpiration(d time.Duration) PutOption {
	return func(pc *putConfig) {
		pc.absolute = d
		pc.absoluteSet = true
	}
}

// SlidingExpiration expires the entry when it has not been read or written
// for d. Zero means no sliding expiration.
func SlidingExpiration(d time.Duration) PutOption {
	return func(pc *putConfig) {
		pc.sliding = d
		pc.slidingSet = true
	}
}
