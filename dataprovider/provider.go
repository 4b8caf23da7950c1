package dataprovider

import (
	"context"
	"fmt"
	"time"
)

// Result is a fetched and decoded document.
type Result[D any] struct {
	Value   D
	URL     string
	Payload []byte
	Elapsed time.Duration
}

// Provider fetches documents from a URL template and decodes them.
type Provider[D any] struct {
	fetcher  *Fetcher
	template string
	decode   func([]byte) (D, error)
}

// NewProvider creates a Provider. The template is a format string whose %s
// verbs are replaced by the arguments passed to Get, in order.
func NewProvider[D any](fetcher *Fetcher, template string, decode func([]byte) (D, error)) *Provider[D] {
	return &Provider[D]{
		fetcher:  fetcher,
		template: template,
		decode:   decode,
	}
}

// URL resolves the template with args.
func (p *Provider[D]) URL(args ...string) string {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return fmt.Sprintf(p.template, vals...)
}

// Get fetches and decodes the document identified by args.
func (p *Provider[D]) Get(ctx context.Context, args ...string) (*Result[D], error) {
	url := p.URL(args...)
	start := time.Now()
	data, err := p.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	v, err := p.decode(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode document from %s: %w", redact(url), err)
	}
	return &Result[D]{
		Value:   v,
		URL:     url,
		Payload: data,
		Elapsed: time.Since(start),
	}, nil
}
