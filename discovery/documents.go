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
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/documentloaders"

	"github.com/quartierlab/prospect/core"
)

const (
	maxPDFsPerPage          = 10
	documentTimeout         = 20 * time.Second
	defaultDocumentPoolSize = 4
)

// DocumentsProvider harvests PDF links from municipal pages, extracts
// their text and mines it for organizations. Medium trust; requires
// text extraction and entity-pattern matching.
type DocumentsProvider struct {
	fetcher   Fetcher
	extractor TextExtractor
	pool      *ants.Pool
	pages     func(area string) []string
	logger    *slog.Logger

	mu      sync.Mutex
	pdfText map[string]string // per-URL extracted text cache
}

// DocumentsOption configures a DocumentsProvider.
type DocumentsOption func(*DocumentsProvider) error

// WithDocumentPages replaces the default municipal page set with a
// fixed URL list.
func WithDocumentPages(urls []string) DocumentsOption {
	return func(p *DocumentsProvider) error {
		p.pages = func(string) []string { return urls }
		return nil
	}
}

// WithDocumentPoolSize sets the PDF fetch worker pool size.
func WithDocumentPoolSize(size int) DocumentsOption {
	return func(p *DocumentsProvider) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithDocumentsLogger sets the logger.
func WithDocumentsLogger(logger *slog.Logger) DocumentsOption {
	return func(p *DocumentsProvider) error {
		p.logger = logger
		return nil
	}
}

// NewDocumentsProvider creates the document-corpus provider.
func NewDocumentsProvider(fetcher Fetcher, extractor TextExtractor, opts ...DocumentsOption) (*DocumentsProvider, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	pool, err := ants.NewPool(defaultDocumentPoolSize)
	if err != nil {
		return nil, err
	}

	p := &DocumentsProvider{
		fetcher:   fetcher,
		extractor: extractor,
		pool:      pool,
		pages:     municipalPages,
		logger:    slog.Default().With("component", "documents-provider"),
		pdfText:   make(map[string]string),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// municipalPages builds the default search pages for an area label
// such as "20e" or "1er".
func municipalPages(area string) []string {
	num := strings.TrimSuffix(strings.TrimSuffix(area, "er"), "e")
	return []string{
		fmt.Sprintf("https://mairie%s.paris.fr/recherche?q=associations+pdf", num),
		fmt.Sprintf("https://mairie%s.paris.fr/recherche?q=activit%%C3%%A9s+pdf", num),
		fmt.Sprintf("https://www.paris.fr/pages/associations-%s", area),
	}
}

// Source implements Provider.
func (p *DocumentsProvider) Source() core.Source {
	return core.SourceDocuments
}

// Release frees the worker pool. The provider must not be used after.
func (p *DocumentsProvider) Release() {
	p.pool.Release()
}

// Discover crawls the municipal pages for PDF links and mines every
// linked document. Per-page and per-document failures are logged and
// skipped; Discover errors only when no page could be fetched at all.
func (p *DocumentsProvider) Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	pages := p.pages(req.Area)

	var results []core.CandidateRecord
	fetched := 0
	for _, pageURL := range pages {
		candidates, err := p.minePage(ctx, pageURL)
		if err != nil {
			p.logger.Warn("page mining failed",
				slog.String("page", pageURL),
				slog.Any("err", err))
			continue
		}
		fetched++
		results = append(results, candidates...)
	}

	if fetched == 0 {
		return nil, fmt.Errorf("%w for area %s", ErrNoPagesReachable, req.Area)
	}
	return results, nil
}

// minePage extracts candidates from every PDF linked on one page,
// fanning the documents out on the worker pool.
func (p *DocumentsProvider) minePage(ctx context.Context, pageURL string) ([]core.CandidateRecord, error) {
	resp, err := p.fetcher.Fetch(ctx, FetchRequest{URL: pageURL, Timeout: documentTimeout})
	if err != nil {
		return nil, err
	}

	links, err := pdfLinks(resp.Body, pageURL)
	if err != nil {
		return nil, err
	}
	if len(links) > maxPDFsPerPage {
		links = links[:maxPDFsPerPage]
	}
	p.logger.Info("pdf links found",
		slog.String("page", pageURL),
		slog.Int("count", len(links)))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []core.CandidateRecord
	)
	for _, link := range links {
		pdfURL := link
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			candidates, mineErr := p.mineDocument(ctx, pdfURL)
			if mineErr != nil {
				p.logger.Warn("document extraction failed",
					slog.String("url", pdfURL),
					slog.Any("err", mineErr))
				return
			}
			mu.Lock()
			results = append(results, candidates...)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Warn("pool submit failed", slog.Any("err", submitErr))
		}
	}
	wg.Wait()

	return results, nil
}

// mineDocument returns the candidates found in one PDF, consulting
// the text cache before fetching.
func (p *DocumentsProvider) mineDocument(ctx context.Context, pdfURL string) ([]core.CandidateRecord, error) {
	p.mu.Lock()
	text, cached := p.pdfText[pdfURL]
	p.mu.Unlock()

	if !cached {
		resp, err := p.fetcher.Fetch(ctx, FetchRequest{URL: pdfURL, Timeout: documentTimeout})
		if err != nil {
			return nil, err
		}
		text, err = pdfToText(ctx, resp.Body)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.pdfText[pdfURL] = text
		p.mu.Unlock()
	}

	return p.extractor.ExtractCandidates(text, pdfURL), nil
}

// pdfToText extracts plain text from raw PDF bytes.
func pdfToText(ctx context.Context, data []byte) (string, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.PageContent)
	}
	return strings.Join(parts, "\n"), nil
}

// pdfLinks returns the absolute URLs of PDF links on a page.
func pdfLinks(html []byte, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.Contains(strings.ToLower(href), ".pdf") {
			return
		}
		resolved, resolveErr := base.Parse(href)
		if resolveErr != nil {
			return
		}
		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links, nil
}
