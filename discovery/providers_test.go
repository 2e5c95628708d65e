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
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

// fakeFetcher serves canned responses keyed by URL substring. Keys of
// the error map and the response map must not overlap.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*FetchResponse
	errs      map[string]error
	calls     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, req FetchRequest) (*FetchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.mu.Unlock()

	for key, err := range f.errs {
		if strings.Contains(req.URL, key) {
			return nil, err
		}
	}
	for key, resp := range f.responses {
		if strings.Contains(req.URL, key) {
			return resp, nil
		}
	}
	return nil, fmt.Errorf("no canned response for %s", req.URL)
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func jsonResponse(body string) *FetchResponse {
	return &FetchResponse{StatusCode: 200, Body: []byte(body)}
}

const openDataBody = `{"results": [
	{"nom": "Club de Judo des Enfants", "adresse": "10 rue Pelleport", "code_postal": "75020",
	 "courriel": "judo@club20.fr", "tel": "01 43 58 00 00", "objet": "judo pour enfants"},
	{"nom": "Atelier Tricot", "code_postal": "75020", "telephone": "01 00 00 00 00",
	 "objet": "tricot pour retraités"},
	{"nom": "Club Natation Jeunes", "code_postal": "69001", "site_web": "https://natation-lyon.fr",
	 "objet": "natation enfants"},
	{"nom": "Les Petits Peintres", "code_postal": "75020", "objet": "peinture pour enfants"}
]}`

const sparqlBody = `{"results": {"bindings": [
	{"itemLabel": {"value": "Cercle d'Escrime pour Enfants"}, "website": {"value": "https://escrime20.fr"}},
	{"itemLabel": {"value": "Amicale des Retraités"}, "website": {"value": "https://amicale.fr"}}
]}}`

func TestRegistryDiscoverNormalizesBothEndpoints(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*FetchResponse{
		"opendata": jsonResponse(openDataBody),
		"sparql":   jsonResponse(sparqlBody),
	}}
	provider, err := NewRegistryProvider(fetcher, features.DefaultVocabulary())
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := make(map[string]core.CandidateRecord, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	judo, ok := byName["Club de Judo des Enfants"]
	require.True(t, ok, "open-data row should survive normalization")
	require.Equal(t, "judo@club20.fr", judo.Contact.Email)
	require.Equal(t, "01 43 58 00 00", judo.Contact.Phone)
	require.Equal(t, "10 rue Pelleport", judo.Address)
	require.Equal(t, core.SourceRegistry, judo.Source)
	require.NotZero(t, judo.Id)

	escrime, ok := byName["Cercle d'Escrime pour Enfants"]
	require.True(t, ok, "linked-data binding should survive normalization")
	require.Equal(t, "https://escrime20.fr", escrime.Contact.Website)
}

func TestRegistryDiscoverToleratesPartialFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[string]*FetchResponse{"opendata": jsonResponse(openDataBody)},
		errs:      map[string]error{"sparql": errors.New("endpoint down")},
	}
	provider, err := NewRegistryProvider(fetcher, features.DefaultVocabulary())
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Club de Judo des Enfants", results[0].Name)
}

func TestRegistryDiscoverFailsWhenBothEndpointsFail(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"opendata": errors.New("open-data down"),
		"sparql":   errors.New("sparql down"),
	}}
	provider, err := NewRegistryProvider(fetcher, features.DefaultVocabulary())
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.Error(t, err)
	require.Empty(t, results)
}

func TestDecodeOpenDataRowShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"results of flat fields", `{"results": [{"nom": "A"}]}`},
		{"results of wrapped records", `{"results": [{"record": {"fields": {"nom": "A"}}}]}`},
		{"records with fields", `{"records": [{"fields": {"nom": "A"}}]}`},
		{"bare array", `[{"nom": "A"}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := decodeOpenDataRows([]byte(tc.body))
			require.NoError(t, err)
			require.Len(t, rows, 1)
			require.Equal(t, "A", rows[0]["nom"])
		})
	}

	_, err := decodeOpenDataRows([]byte(`"garbage"`))
	require.Error(t, err)
}

func TestMetaSearchDiscoverFiltersNoise(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*FetchResponse{
		"searx.be": jsonResponse(`{"results": [
			{"title": "Club de Gym pour Enfants", "content": "cours de gym enfants 20e", "url": "https://gym20.fr"},
			{"title": "Club Photo", "content": "club photo pour adultes", "url": "https://photo-paris.fr"},
			{"title": "Association Danse Enfants", "content": "éveil danse", "url": "https://facebook.com/danse20"},
			{"title": "Newsletter de la mairie", "content": "abonnez-vous à la newsletter", "url": "https://lettres-infos.fr"}
		]}`),
	}}
	provider, err := NewMetaSearchProvider(fetcher, features.DefaultVocabulary())
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Club de Gym pour Enfants", results[0].Name)
	require.Equal(t, "https://gym20.fr", results[0].Contact.Website)
	require.Equal(t, core.SourceMetaSearch, results[0].Source)
}

func TestWebSearchPrefersMeteredAPI(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*FetchResponse{
		"customsearch": jsonResponse(`{"items": [
			{"title": "Atelier Théâtre Enfants", "snippet": "ateliers théâtre pour enfants 20e", "link": "https://theatre20.fr"}
		]}`),
	}}
	provider, err := NewWebSearchProvider(fetcher, features.DefaultVocabulary(),
		WithAPICredentials("key", "cx"))
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Atelier Théâtre Enfants", results[0].Name)
	require.Equal(t, core.SourceWebSearch, results[0].Source)
	require.Len(t, fetcher.fetched(), 1, "municipal scrape must not run when the API succeeds")
}

func TestWebSearchFallsBackToMunicipalScrape(t *testing.T) {
	page := `<html><body>
		<a href="/activites/judo-enfants">Judo enfants</a>
		<a href="https://mairie20.paris.fr/autre">Autre page</a>
		<script type="application/ld+json">
			{"itemListElement": [{"url": "https://mairie20.paris.fr/activite/danse"}]}
		</script>
	</body></html>`
	fetcher := &fakeFetcher{
		responses: map[string]*FetchResponse{"mairie20.paris.fr/recherche": jsonResponse(page)},
		errs:      map[string]error{"customsearch": errors.New("quota exceeded")},
	}
	provider, err := NewWebSearchProvider(fetcher, features.DefaultVocabulary(),
		WithAPICredentials("key", "cx"))
	require.NoError(t, err)

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	urls := []string{results[0].SourceURL, results[1].SourceURL}
	require.Contains(t, urls, "https://mairie20.paris.fr/activites/judo-enfants")
	require.Contains(t, urls, "https://mairie20.paris.fr/activite/danse")
	for _, r := range results {
		require.Equal(t, "Activité Mairie 20e", r.Name)
		require.Equal(t, core.SourceWebSearch, r.Source)
	}
}

func TestWebSearchNoResults(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*FetchResponse{
		"mairie20.paris.fr/recherche": jsonResponse(`<html><body><a href="/contact">Contact</a></body></html>`),
	}}
	provider, err := NewWebSearchProvider(fetcher, features.DefaultVocabulary())
	require.NoError(t, err)

	_, err = provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.ErrorIs(t, err, ErrNoSearchResults)
}

// stubExtractor returns one fixed candidate per document.
type stubExtractor struct{}

func (stubExtractor) ExtractCandidates(_, sourceURL string) []core.CandidateRecord {
	c := core.CandidateRecord{
		Name:      "Association Extraite",
		Source:    core.SourceDocuments,
		SourceURL: sourceURL,
	}
	c.Normalize()
	return []core.CandidateRecord{c}
}

func TestDocumentsDiscoverIsolatesBrokenDocuments(t *testing.T) {
	page := `<html><body>
		<a href="liste.pdf">Liste des associations</a>
		<a href="broken.pdf">Autre document</a>
	</body></html>`
	fetcher := &fakeFetcher{responses: map[string]*FetchResponse{
		"example.org/assos": jsonResponse(page),
		"broken.pdf":        {StatusCode: 200, Body: []byte("not a pdf")},
	}}
	provider, err := NewDocumentsProvider(fetcher, stubExtractor{},
		WithDocumentPages([]string{"https://example.org/assos"}),
		WithDocumentPoolSize(2))
	require.NoError(t, err)
	defer provider.Release()

	// Seed the text cache so the healthy document skips PDF parsing.
	provider.mu.Lock()
	provider.pdfText["https://example.org/liste.pdf"] = "Association Les Petits Judokas, cours enfants."
	provider.mu.Unlock()

	results, err := provider.Discover(context.Background(), Request{Area: "20e", PostalCode: "75020"})
	require.NoError(t, err)
	require.Len(t, results, 1, "the unparseable document is skipped, not fatal")
	require.Equal(t, "https://example.org/liste.pdf", results[0].SourceURL)
}

func TestDocumentsDiscoverFailsWhenNoPageReachable(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"example.org": errors.New("unreachable")}}
	provider, err := NewDocumentsProvider(fetcher, stubExtractor{},
		WithDocumentPages([]string{"https://example.org/assos"}))
	require.NoError(t, err)
	defer provider.Release()

	_, err = provider.Discover(context.Background(), Request{Area: "20e"})
	require.ErrorIs(t, err, ErrNoPagesReachable)
}

func TestPDFLinksResolvesAndDeduplicates(t *testing.T) {
	page := `<html><body>
		<a href="liste.pdf">Liste</a>
		<a href="liste.pdf">Liste (bis)</a>
		<a href="https://cdn.example.org/guide.PDF">Guide</a>
		<a href="/contact">Contact</a>
	</body></html>`

	links, err := pdfLinks([]byte(page), "https://example.org/assos")
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.org/liste.pdf",
		"https://cdn.example.org/guide.PDF",
	}, links)
}
