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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/resilience"
)

type fakeProvider struct {
	source  core.Source
	results []core.CandidateRecord
	err     error

	mu       sync.Mutex
	calls    int
	released bool
}

func (p *fakeProvider) Source() core.Source { return p.source }

func (p *fakeProvider) Discover(context.Context, Request) ([]core.CandidateRecord, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func (p *fakeProvider) Release() {
	p.mu.Lock()
	p.released = true
	p.mu.Unlock()
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func namedCandidate(name string, source core.Source) core.CandidateRecord {
	c := core.CandidateRecord{
		Name:      name,
		Source:    source,
		SourceURL: "https://example.org/" + name,
	}
	c.Normalize()
	return c
}

func TestNewDiscoveryRequiresProviders(t *testing.T) {
	_, err := NewDiscovery(nil)
	require.ErrorIs(t, err, ErrNoProviders)
}

func TestDiscoverShortCircuitsOnFirstResults(t *testing.T) {
	registry := &fakeProvider{
		source:  core.SourceRegistry,
		results: []core.CandidateRecord{namedCandidate("Club de Judo", core.SourceRegistry)},
	}
	meta := &fakeProvider{source: core.SourceMetaSearch}

	d, err := NewDiscovery([]Provider{registry, meta})
	require.NoError(t, err)

	results, err := d.Discover(context.Background(), Request{Area: "20e"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Club de Judo", results[0].Name)
	require.Zero(t, meta.callCount(), "lower-priority provider must not be consulted")
}

func TestDiscoverFallsThroughFailures(t *testing.T) {
	registry := &fakeProvider{source: core.SourceRegistry, err: errors.New("registry down")}
	docs := &fakeProvider{source: core.SourceDocuments}
	meta := &fakeProvider{
		source:  core.SourceMetaSearch,
		results: []core.CandidateRecord{namedCandidate("Atelier Cirque", core.SourceMetaSearch)},
	}

	d, err := NewDiscovery([]Provider{registry, docs, meta})
	require.NoError(t, err)

	results, err := d.Discover(context.Background(), Request{Area: "20e"})
	require.NoError(t, err, "one failing provider is not fatal")
	require.Len(t, results, 1)
	require.Equal(t, core.SourceMetaSearch, results[0].Source)
	require.Equal(t, 1, d.Stats().ProviderFailures)
}

func TestDiscoverEmptyIsNotAnError(t *testing.T) {
	registry := &fakeProvider{source: core.SourceRegistry}
	meta := &fakeProvider{source: core.SourceMetaSearch}

	d, err := NewDiscovery([]Provider{registry, meta})
	require.NoError(t, err)

	results, err := d.Discover(context.Background(), Request{Area: "20e"})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDiscoverAllProvidersFailed(t *testing.T) {
	registry := &fakeProvider{source: core.SourceRegistry, err: errors.New("registry down")}
	meta := &fakeProvider{source: core.SourceMetaSearch, err: errors.New("search down")}

	d, err := NewDiscovery([]Provider{registry, meta})
	require.NoError(t, err)

	_, err = d.Discover(context.Background(), Request{Area: "20e"})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestDiscoverBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	flaky := &fakeProvider{source: core.SourceRegistry, err: errors.New("registry down")}

	d, err := NewDiscovery([]Provider{flaky})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, discoverErr := d.Discover(context.Background(), Request{Area: "20e"})
		require.ErrorIs(t, discoverErr, ErrAllProvidersFailed)
	}
	require.Equal(t, resilience.StateOpen, d.BreakerState(core.SourceRegistry))
	require.Equal(t, 3, flaky.callCount())

	// While the circuit is open the provider itself is never invoked.
	_, err = d.Discover(context.Background(), Request{Area: "20e"})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.Equal(t, 3, flaky.callCount())
}

func TestDiscoverDeduplicatesAcrossCalls(t *testing.T) {
	registry := &fakeProvider{
		source: core.SourceRegistry,
		results: []core.CandidateRecord{
			namedCandidate("Club de Judo", core.SourceRegistry),
			namedCandidate("Atelier Peinture", core.SourceRegistry),
		},
	}

	d, err := NewDiscovery([]Provider{registry})
	require.NoError(t, err)

	first, err := d.Discover(context.Background(), Request{Area: "20e"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := d.Discover(context.Background(), Request{Area: "20e"})
	require.NoError(t, err)
	require.Empty(t, second, "already-seen candidates are not resurfaced")

	stats := d.Stats()
	require.Equal(t, 2, stats.Duplicates)
	require.Equal(t, 2, stats.BySource[core.SourceRegistry])
	require.Equal(t, 2, stats.Calls)
}

func TestDiscoverPromotesDirectiveSource(t *testing.T) {
	registry := &fakeProvider{source: core.SourceRegistry}
	web := &fakeProvider{
		source:  core.SourceWebSearch,
		results: []core.CandidateRecord{namedCandidate("Club de Boxe", core.SourceWebSearch)},
	}

	d, err := NewDiscovery([]Provider{registry, web})
	require.NoError(t, err)

	results, err := d.Discover(context.Background(), Request{
		Area:      "20e",
		Directive: &core.SearchDirective{Source: core.SourceWebSearch},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, core.SourceWebSearch, results[0].Source)
	require.Zero(t, registry.callCount(), "the directive's source is consulted first")
}

func TestReleaseFreesProviderResources(t *testing.T) {
	registry := &fakeProvider{source: core.SourceRegistry}

	d, err := NewDiscovery([]Provider{registry})
	require.NoError(t, err)

	d.Release()
	registry.mu.Lock()
	defer registry.mu.Unlock()
	require.True(t, registry.released)
}
