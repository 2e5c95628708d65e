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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

const (
	defaultMetaSearchURL = "https://searx.be/search"
	defaultMeteredURL    = "https://www.googleapis.com/customsearch/v1"
	searchTimeout        = 12 * time.Second
	maxSearchResults     = 30
)

// SearchResult is one raw web-search hit before normalization.
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

// MetaSearchProvider queries an aggregated meta-search endpoint
// (several engines behind one JSON API). Broad coverage, lower
// precision.
type MetaSearchProvider struct {
	fetcher  Fetcher
	vocab    features.Vocabulary
	endpoint string
	logger   *slog.Logger
}

// MetaSearchOption configures a MetaSearchProvider.
type MetaSearchOption func(*MetaSearchProvider)

// WithMetaSearchURL overrides the meta-search endpoint.
func WithMetaSearchURL(endpoint string) MetaSearchOption {
	return func(p *MetaSearchProvider) {
		p.endpoint = endpoint
	}
}

// WithMetaSearchLogger sets the logger.
func WithMetaSearchLogger(logger *slog.Logger) MetaSearchOption {
	return func(p *MetaSearchProvider) {
		p.logger = logger
	}
}

// NewMetaSearchProvider creates the aggregated-search provider.
func NewMetaSearchProvider(fetcher Fetcher, vocab features.Vocabulary, opts ...MetaSearchOption) (*MetaSearchProvider, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	p := &MetaSearchProvider{
		fetcher:  fetcher,
		vocab:    vocab,
		endpoint: defaultMetaSearchURL,
		logger:   slog.Default().With("component", "metasearch-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source implements Provider.
func (p *MetaSearchProvider) Source() core.Source {
	return core.SourceMetaSearch
}

// Discover runs the directive query through the meta-search endpoint.
func (p *MetaSearchProvider) Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	results, err := fetchMetaSearch(ctx, p.fetcher, p.endpoint, req.Query())
	if err != nil {
		return nil, err
	}
	return resultsToCandidates(results, core.SourceMetaSearch, p.vocab), nil
}

// fetchMetaSearch queries a SearxNG-style JSON API.
func fetchMetaSearch(ctx context.Context, fetcher Fetcher, endpoint, query string) ([]SearchResult, error) {
	searchURL := endpoint + "?q=" + url.QueryEscape(query) + "&format=json"
	resp, err := fetcher.Fetch(ctx, FetchRequest{
		URL:     searchURL,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: searchTimeout,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding meta-search response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, SearchResult{Title: r.Title, Snippet: r.Content, URL: r.URL})
	}
	return results, nil
}

// WebSearchProvider is the fallback of last resort: a metered search
// API when credentials are configured, then unauthenticated scraping
// of municipal search pages. Strategies are attempted in order and
// the first non-empty result set wins; partial results are never
// merged across strategies.
type WebSearchProvider struct {
	fetcher    Fetcher
	vocab      features.Vocabulary
	meteredURL string
	apiKey     string
	apiCx      string
	logger     *slog.Logger
}

// WebSearchOption configures a WebSearchProvider.
type WebSearchOption func(*WebSearchProvider)

// WithAPICredentials enables the metered search API strategy.
func WithAPICredentials(key, cx string) WebSearchOption {
	return func(p *WebSearchProvider) {
		p.apiKey = key
		p.apiCx = cx
	}
}

// WithMeteredURL overrides the metered search API endpoint.
func WithMeteredURL(endpoint string) WebSearchOption {
	return func(p *WebSearchProvider) {
		p.meteredURL = endpoint
	}
}

// WithWebSearchLogger sets the logger.
func WithWebSearchLogger(logger *slog.Logger) WebSearchOption {
	return func(p *WebSearchProvider) {
		p.logger = logger
	}
}

// NewWebSearchProvider creates the last-resort search provider.
func NewWebSearchProvider(fetcher Fetcher, vocab features.Vocabulary, opts ...WebSearchOption) (*WebSearchProvider, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	p := &WebSearchProvider{
		fetcher:    fetcher,
		vocab:      vocab,
		meteredURL: defaultMeteredURL,
		logger:     slog.Default().With("component", "websearch-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source implements Provider.
func (p *WebSearchProvider) Source() core.Source {
	return core.SourceWebSearch
}

// Discover tries each search strategy in order, returning candidates
// from the first strategy yielding results. Partial results are never
// merged across strategies.
func (p *WebSearchProvider) Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	type strategy struct {
		name string
		run  func(context.Context, Request) ([]core.CandidateRecord, error)
	}
	strategies := []strategy{}
	if p.apiKey != "" && p.apiCx != "" {
		strategies = append(strategies, strategy{"metered-api", p.meteredCandidates})
	}
	strategies = append(strategies, strategy{"municipal-scrape", p.municipalCandidates})

	var lastErr error
	for _, s := range strategies {
		candidates, err := s.run(ctx, req)
		if err != nil {
			p.logger.Warn("search strategy failed",
				slog.String("strategy", s.name),
				slog.Any("err", err))
			lastErr = err
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		p.logger.Info("search strategy succeeded",
			slog.String("strategy", s.name),
			slog.Int("results", len(candidates)))
		return candidates, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoSearchResults
}

func (p *WebSearchProvider) meteredCandidates(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	results, err := p.fetchMeteredAPI(ctx, req)
	if err != nil {
		return nil, err
	}
	return resultsToCandidates(results, core.SourceWebSearch, p.vocab), nil
}

// municipalCandidates converts scraped activity links into records.
// The excluded-domain filter does not apply here: the links point at
// activity pages, not at an organization's own website.
func (p *WebSearchProvider) municipalCandidates(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	results, err := p.scrapeMunicipalSearch(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidates := make([]core.CandidateRecord, 0, len(results))
	for _, r := range results {
		c := core.CandidateRecord{
			Name:         r.Title,
			Title:        core.LocalizedText{FR: r.Title},
			Source:       core.SourceWebSearch,
			SourceURL:    r.URL,
			DiscoveredAt: now,
		}
		c.Normalize()
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// fetchMeteredAPI queries a custom-search style JSON API.
func (p *WebSearchProvider) fetchMeteredAPI(ctx context.Context, req Request) ([]SearchResult, error) {
	searchURL := fmt.Sprintf("%s?key=%s&cx=%s&q=%s&num=10",
		p.meteredURL, url.QueryEscape(p.apiKey), url.QueryEscape(p.apiCx), url.QueryEscape(req.Query()))

	resp, err := p.fetcher.Fetch(ctx, FetchRequest{
		URL:     searchURL,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: searchTimeout,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding search api response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, SearchResult{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	return results, nil
}

// scrapeMunicipalSearch fetches the area's municipal search page and
// collects activity links from anchors and embedded JSON-LD metadata.
func (p *WebSearchProvider) scrapeMunicipalSearch(ctx context.Context, req Request) ([]SearchResult, error) {
	num := strings.TrimSuffix(strings.TrimSuffix(req.Area, "er"), "e")
	pageURL := fmt.Sprintf("https://mairie%s.paris.fr/recherche?q=%s", num, url.QueryEscape(req.Query()))

	resp, err := p.fetcher.Fetch(ctx, FetchRequest{URL: pageURL, Timeout: searchTimeout})
	if err != nil {
		return nil, err
	}

	links, err := activityLinks(resp.Body, pageURL)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(links))
	for _, link := range links {
		results = append(results, SearchResult{
			Title: "Activité Mairie " + req.Area,
			URL:   link,
		})
	}
	return results, nil
}

// activityLinks extracts activity page URLs from anchors and JSON-LD
// structured data.
func activityLinks(html []byte, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []string
	add := func(href string) {
		resolved, resolveErr := base.Parse(href)
		if resolveErr != nil || !strings.HasPrefix(resolved.Scheme, "http") {
			return
		}
		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.ToLower(sel.Text())
		if strings.Contains(strings.ToLower(href), "activite") ||
			strings.Contains(text, "activité") || strings.Contains(text, "activite") {
			add(href)
		}
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if jsonErr := json.Unmarshal([]byte(sel.Text()), &payload); jsonErr != nil {
			return
		}
		walkJSONURLs(payload, add)
	})

	return links, nil
}

// walkJSONURLs visits every "url" value mentioning an activity in a
// decoded JSON-LD document.
func walkJSONURLs(node any, add func(string)) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			walkJSONURLs(item, add)
		}
	case map[string]any:
		for key, value := range v {
			if key == "url" {
				if s, ok := value.(string); ok && strings.Contains(s, "activite") {
					add(s)
				}
				continue
			}
			walkJSONURLs(value, add)
		}
	}
}

// resultsToCandidates filters raw hits through the shared vocabulary
// and normalizes the survivors. Noise results (newsletter pages,
// excluded platforms, text with no activity signal) are dropped.
func resultsToCandidates(results []SearchResult, source core.Source, vocab features.Vocabulary) []core.CandidateRecord {
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	now := time.Now().UTC()
	candidates := make([]core.CandidateRecord, 0, len(results))
	for _, r := range results {
		if r.URL == "" || vocab.IsExcludedDomain(r.URL) {
			continue
		}
		text := r.Title + " " + r.Snippet + " " + r.URL
		if !vocab.IsRelevant(text) {
			continue
		}

		c := core.CandidateRecord{
			Name:         strings.TrimSpace(r.Title),
			Title:        core.LocalizedText{FR: strings.TrimSpace(r.Title)},
			Description:  core.LocalizedText{FR: r.Snippet},
			Contact:      core.Contact{Website: r.URL},
			Source:       source,
			SourceURL:    r.URL,
			DiscoveredAt: now,
		}
		if c.Name == "" {
			continue
		}
		c.Normalize()
		candidates = append(candidates, c)
	}
	return candidates
}
