package uofsdk

import (
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/oddsfeed/go-uofsdk/exportstore"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	httpClient  *http.Client
	registerer  prometheus.Registerer
	exportStore exportstore.Store
	stateStore  StateStore
	clock       clock.Clock
}

// Option is a function that sets a value in options.
type Option func(*options) error

// getOpts creates options and applies Options to it.
func getOpts(opts []Option) (options, error) {
	cfg := options{
		httpClient: http.DefaultClient,
		clock:      clock.New(),
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return options{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithHTTPClient sets the client used for REST API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		if c != nil {
			o.httpClient = c
		}
		return nil
	}
}

// WithRegisterer registers the SDK metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithExportStore sets where the sport event cache is saved on Close and
// restored from on Open. It takes precedence over the configured store.
func WithExportStore(s exportstore.Store) Option {
	return func(o *options) error {
		o.exportStore = s
		return nil
	}
}

// WithStateStore sets where producer timestamps are saved on Close and
// restored from on Open. It takes precedence over the configured store.
func WithStateStore(s StateStore) Option {
	return func(o *options) error {
		o.stateStore = s
		return nil
	}
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk != nil {
			o.clock = clk
		}
		return nil
	}
}
