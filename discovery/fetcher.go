// Copyright 2025 Quartier Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package discovery

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/quartierlab/prospect/resilience"
)

// FetchRequest describes one HTTP request. A zero Timeout falls back
// to the fetcher default.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResponse is the outcome of a successful fetch.
type FetchResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Fetcher performs HTTP requests with a deadline. Implementations
// return a *resilience.StatusError for non-2xx responses so callers
// can apply status-aware retry policy.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)
}

// defaultUserAgents is the rotating pool sent to scraped sites.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMinDelay     = 1 * time.Second
	defaultMaxDelay     = 3 * time.Second
	maxBodyBytes        = 16 << 20
)

// HTTPFetcher fetches over HTTP with a per-domain polite delay and a
// rotating User-Agent pool. Safe for concurrent use.
type HTTPFetcher struct {
	client     *http.Client
	timeout    time.Duration
	minDelay   time.Duration
	maxDelay   time.Duration
	userAgents []string
	logger     *slog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
	uaCursor int
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithFetchTimeout sets the default per-request timeout.
func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.timeout = timeout
	}
}

// WithDomainDelay sets the polite delay window between requests to
// the same domain. The actual delay is sampled uniformly from
// [min, max].
func WithDomainDelay(min, max time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		f.minDelay = min
		f.maxDelay = max
	}
}

// WithUserAgents replaces the rotating User-Agent pool.
func WithUserAgents(agents []string) FetcherOption {
	return func(f *HTTPFetcher) {
		if len(agents) > 0 {
			f.userAgents = agents
		}
	}
}

// WithFetcherLogger sets the logger. Defaults to slog.Default().
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher with polite defaults.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:     &http.Client{},
		timeout:    defaultFetchTimeout,
		minDelay:   defaultMinDelay,
		maxDelay:   defaultMaxDelay,
		userAgents: defaultUserAgents,
		logger:     slog.Default().With("component", "fetcher"),
		lastSeen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the request, honoring the per-domain delay and the
// context deadline. Non-2xx responses are returned as errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	if err := f.waitForDomain(ctx, parsed.Hostname()); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched",
		slog.String("url", req.URL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)))

	return &FetchResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// waitForDomain sleeps until the polite delay for the domain has
// elapsed, or the context is done.
func (f *HTTPFetcher) waitForDomain(ctx context.Context, domain string) error {
	f.mu.Lock()
	now := time.Now()
	delay := f.minDelay
	if f.maxDelay > f.minDelay {
		delay += rand.N(f.maxDelay - f.minDelay)
	}
	var wait time.Duration
	if last, ok := f.lastSeen[domain]; ok {
		if until := last.Add(delay); until.After(now) {
			wait = until.Sub(now)
		}
	}
	f.lastSeen[domain] = now.Add(wait)
	f.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *HTTPFetcher) nextUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ua := f.userAgents[f.uaCursor%len(f.userAgents)]
	f.uaCursor++
	return ua
}
