// Package dataprovider fetches documents from the REST API.
package dataprovider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logging "github.com/ipfs/go-log/v2"
	"github.com/oddsfeed/go-uofsdk/apierror"
)

var log = logging.Logger("dataprovider")

const accessTokenHeader = "x-access-token"

// Fetcher performs requests against the REST API.
type Fetcher struct {
	c         *http.Client
	token     string
	userAgent string
}

// NewFetcher creates a new Fetcher.
func NewFetcher(options ...Option) (*Fetcher, error) {
	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	var httpClient *http.Client
	if opts.httpClient != nil {
		cli := *opts.httpClient
		httpClient = &cli
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = opts.timeout

	if opts.retryMax != 0 {
		rclient := &retryablehttp.Client{
			HTTPClient:   httpClient,
			RetryWaitMin: opts.retryWaitMin,
			RetryWaitMax: opts.retryWaitMax,
			RetryMax:     opts.retryMax,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			Backoff:      retryablehttp.DefaultBackoff,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		}
		httpClient = rclient.StandardClient()
	}

	return &Fetcher{
		c:         httpClient,
		token:     opts.accessToken,
		userAgent: opts.userAgent,
	}, nil
}

// Get fetches url and returns the response body. Any non-2xx response is
// returned as an *apierror.Error carrying the url, status and body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	return f.do(ctx, http.MethodGet, url, nil)
}

// Post posts body to url and returns the response body.
func (f *Fetcher) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return f.do(ctx, http.MethodPost, url, body)
}

func (f *Fetcher) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, apierror.Wrap(url, err)
	}
	req.Header.Set("Accept", "application/xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	if f.token != "" {
		req.Header.Set(accessTokenHeader, f.token)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.c.Do(req)
	if err != nil {
		return nil, apierror.Wrap(url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.Wrap(url, fmt.Errorf("cannot read response: %w", err))
	}
	log.Debugw("Request complete", "method", method, "url", redact(url), "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(url, resp.StatusCode, data)
	}
	return data, nil
}

func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i != -1 {
		return url[:i]
	}
	return url
}
