package feed

import (
	"fmt"

	"github.com/oddsfeed/go-uofsdk/metrics"
	"github.com/oddsfeed/go-uofsdk/producer"
)

type config struct {
	metrics   *metrics.Collectors
	nodeID    int
	producers *producer.Manager
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	var cfg config
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithProducers sets the producer manager used to drop messages from
// disabled and unknown producers.
func WithProducers(m *producer.Manager) Option {
	return func(c *config) error {
		c.producers = m
		return nil
	}
}

// WithNodeID drops messages addressed to other nodes. Messages not addressed
// to any node are always processed.
func WithNodeID(id int) Option {
	return func(c *config) error {
		c.nodeID = id
		return nil
	}
}

// WithMetrics sets the collectors that count processed messages.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *config) error {
		c.metrics = m
		return nil
	}
}
