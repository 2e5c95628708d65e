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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

const (
	defaultOpenDataURL = "https://opendata.paris.fr/api/explore/v2.1/catalog/datasets/liste_des_associations_parisiennes/records"
	defaultSPARQLURL   = "https://query.wikidata.org/sparql"
	openDataLimit      = 1000
	sparqlLimit        = 200
	registryTimeout    = 10 * time.Second
)

// sparqlQuery selects Paris associations with optional contact
// fields from a Wikidata-style linked-data endpoint.
const sparqlQuery = `SELECT ?item ?itemLabel ?website ?email ?phone ?address WHERE {
  ?item wdt:P31 wd:Q43229 .
  ?item wdt:P131 wd:Q90 .
  OPTIONAL { ?item wdt:P856 ?website . }
  OPTIONAL { ?item wdt:P968 ?email . }
  OPTIONAL { ?item wdt:P1329 ?phone . }
  OPTIONAL { ?item wdt:P6375 ?address . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "fr,en" . }
} LIMIT %d`

// RegistryProvider queries structured registries: an open-data
// records API and a linked-data SPARQL endpoint. Highest trust,
// lowest volume.
type RegistryProvider struct {
	fetcher     Fetcher
	vocab       features.Vocabulary
	openDataURL string
	sparqlURL   string
	logger      *slog.Logger
}

// RegistryOption configures a RegistryProvider.
type RegistryOption func(*RegistryProvider)

// WithOpenDataURL overrides the open-data records endpoint.
func WithOpenDataURL(endpoint string) RegistryOption {
	return func(p *RegistryProvider) {
		p.openDataURL = endpoint
	}
}

// WithSPARQLURL overrides the linked-data query endpoint.
func WithSPARQLURL(endpoint string) RegistryOption {
	return func(p *RegistryProvider) {
		p.sparqlURL = endpoint
	}
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(p *RegistryProvider) {
		p.logger = logger
	}
}

// NewRegistryProvider creates the structured-registry provider.
func NewRegistryProvider(fetcher Fetcher, vocab features.Vocabulary, opts ...RegistryOption) (*RegistryProvider, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	p := &RegistryProvider{
		fetcher:     fetcher,
		vocab:       vocab,
		openDataURL: defaultOpenDataURL,
		sparqlURL:   defaultSPARQLURL,
		logger:      slog.Default().With("component", "registry-provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source implements Provider.
func (p *RegistryProvider) Source() core.Source {
	return core.SourceRegistry
}

// Discover queries both registry endpoints. A failure of one endpoint
// is logged and the other still contributes; Discover errors only
// when both endpoints fail and nothing was found.
func (p *RegistryProvider) Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	var results []core.CandidateRecord
	var failures []error

	openData, err := p.fetchOpenData(ctx, req)
	if err != nil {
		p.logger.Warn("open-data lookup failed", slog.Any("err", err))
		failures = append(failures, err)
	} else {
		results = append(results, openData...)
	}

	linked, err := p.fetchSPARQL(ctx, req)
	if err != nil {
		p.logger.Warn("linked-data lookup failed", slog.Any("err", err))
		failures = append(failures, err)
	} else {
		results = append(results, linked...)
	}

	if len(results) == 0 && len(failures) > 0 {
		return nil, errors.Join(failures...)
	}
	return results, nil
}

func (p *RegistryProvider) fetchOpenData(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	endpoint := fmt.Sprintf("%s?limit=%d&where=code_postal=%s",
		p.openDataURL, openDataLimit, url.QueryEscape(`"`+req.PostalCode+`"`))

	resp, err := p.fetcher.Fetch(ctx, FetchRequest{
		URL:     endpoint,
		Headers: map[string]string{"Accept": "application/json"},
		Timeout: registryTimeout,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeOpenDataRows(resp.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var results []core.CandidateRecord
	for _, row := range rows {
		record, ok := p.normalizeOpenDataRow(row, req, now)
		if !ok {
			continue
		}
		results = append(results, record)
	}

	p.logger.Info("open-data lookup complete",
		slog.Int("rows", len(rows)),
		slog.Int("kept", len(results)))
	return results, nil
}

// decodeOpenDataRows accepts the payload shapes open-data portals
// actually serve: {results: [fields...]}, {results: [{record:
// {fields}}]}, {records: [{fields}]}, or a bare array.
func decodeOpenDataRows(body []byte) ([]map[string]any, error) {
	var envelope struct {
		Results []json.RawMessage `json:"results"`
		Records []json.RawMessage `json:"records"`
	}
	raws := []json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err == nil {
		raws = append(raws, envelope.Results...)
		raws = append(raws, envelope.Records...)
	}
	if len(raws) == 0 {
		var bare []json.RawMessage
		if err := json.Unmarshal(body, &bare); err != nil {
			return nil, fmt.Errorf("unrecognized open-data payload: %w", err)
		}
		raws = bare
	}

	rows := make([]map[string]any, 0, len(raws))
	for _, raw := range raws {
		var wrapped struct {
			Record struct {
				Fields map[string]any `json:"fields"`
			} `json:"record"`
			Fields map[string]any `json:"fields"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil {
			if len(wrapped.Record.Fields) > 0 {
				rows = append(rows, wrapped.Record.Fields)
				continue
			}
			if len(wrapped.Fields) > 0 {
				rows = append(rows, wrapped.Fields)
				continue
			}
		}
		var flat map[string]any
		if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
			rows = append(rows, flat)
		}
	}
	return rows, nil
}

// normalizeOpenDataRow maps the portal's alternate field spellings
// into the canonical schema, applying the postal and relevance
// filters. Alternate-name lookup happens only here.
func (p *RegistryProvider) normalizeOpenDataRow(row map[string]any, req Request, now time.Time) (core.CandidateRecord, bool) {
	name := pickField(row, "nom", "name", "nom_association", "association", "titre")
	if len(name) < 3 {
		return core.CandidateRecord{}, false
	}

	postal := pickField(row, "code_postal", "postal_code", "cp")
	if postal != "" && req.PostalCode != "" && postal != req.PostalCode {
		if len(req.PostalCode) < 3 || !strings.HasPrefix(postal, req.PostalCode[:3]) {
			return core.CandidateRecord{}, false
		}
	}

	address := pickField(row, "adresse", "address", "adresse_siege", "siege")
	website := pickField(row, "site_web", "website", "url", "lien_site")
	description := pickField(row, "objet", "object", "description", "activite")

	if !p.vocab.IsRelevant(name+" "+description+" "+address) || p.vocab.IsExcludedDomain(website) {
		return core.CandidateRecord{}, false
	}

	record := core.CandidateRecord{
		Name:        strings.TrimSpace(name),
		Title:       core.LocalizedText{FR: strings.TrimSpace(name)},
		Description: core.LocalizedText{FR: description},
		Contact: core.Contact{
			Email:   pickField(row, "email", "courriel", "mail"),
			Phone:   pickField(row, "telephone", "phone", "tel"),
			Website: website,
		},
		Address:      address,
		Source:       core.SourceRegistry,
		SourceURL:    p.openDataURL,
		DiscoveredAt: now,
	}
	// A bare name with no way to reach the organization is not
	// actionable for review.
	if record.Contact.Email == "" && record.Contact.Phone == "" && record.Contact.Website == "" {
		return core.CandidateRecord{}, false
	}
	record.Normalize()
	return record, true
}

func (p *RegistryProvider) fetchSPARQL(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	query := fmt.Sprintf(sparqlQuery, sparqlLimit)
	endpoint := p.sparqlURL + "?query=" + url.QueryEscape(query) + "&format=json"

	resp, err := p.fetcher.Fetch(ctx, FetchRequest{
		URL:     endpoint,
		Headers: map[string]string{"Accept": "application/sparql-results+json"},
		Timeout: registryTimeout,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding sparql response: %w", err)
	}

	now := time.Now().UTC()
	var results []core.CandidateRecord
	for _, binding := range payload.Results.Bindings {
		name := binding["itemLabel"].Value
		website := binding["website"].Value
		address := binding["address"].Value
		if len(name) < 3 {
			continue
		}
		if !p.vocab.IsRelevant(name+" "+address) || p.vocab.IsExcludedDomain(website) {
			continue
		}

		record := core.CandidateRecord{
			Name:  strings.TrimSpace(name),
			Title: core.LocalizedText{FR: strings.TrimSpace(name)},
			Contact: core.Contact{
				Email:   binding["email"].Value,
				Phone:   binding["phone"].Value,
				Website: website,
			},
			Address:      address,
			Source:       core.SourceRegistry,
			SourceURL:    p.sparqlURL,
			DiscoveredAt: now,
		}
		record.Normalize()
		results = append(results, record)
	}

	p.logger.Info("linked-data lookup complete",
		slog.Int("bindings", len(payload.Results.Bindings)),
		slog.Int("kept", len(results)))
	return results, nil
}

// pickField returns the first non-empty string value among the
// alternate spellings of a field.
func pickField(row map[string]any, names ...string) string {
	for _, name := range names {
		if value, ok := row[name].(string); ok && value != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
