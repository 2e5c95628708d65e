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
	"log/slog"
	"sync"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/resilience"
)

// defaultProviderThreshold opens a provider's circuit after three
// consecutive failing cycles. Providers are expendable here: there is
// always a lower-priority one to fall through to.
const defaultProviderThreshold = 3

// Stats is a point-in-time view of discovery activity.
type Stats struct {
	Calls            int
	BySource         map[core.Source]int
	Duplicates       int
	ProviderFailures int
	BreakerStates    map[core.Source]resilience.CircuitState
}

// Discovery consults providers in priority order, each behind its own
// circuit breaker. Provider failures are isolated: they are logged,
// counted and the next provider is tried. Results are de-duplicated
// by content hash, within a call and across calls.
type Discovery struct {
	providers   []Provider
	breakers    map[core.Source]*resilience.CircuitBreaker
	breakerOpts []resilience.BreakerOption
	logger      *slog.Logger

	mu               sync.Mutex
	seen             map[core.ID]struct{}
	calls            int
	duplicates       int
	providerFailures int
	bySource         map[core.Source]int
}

// DiscoveryOption configures a Discovery.
type DiscoveryOption func(*Discovery)

// WithBreakerOptions overrides the per-provider breaker settings.
func WithBreakerOptions(opts ...resilience.BreakerOption) DiscoveryOption {
	return func(d *Discovery) {
		d.breakerOpts = opts
	}
}

// WithDiscoveryLogger sets the logger.
func WithDiscoveryLogger(logger *slog.Logger) DiscoveryOption {
	return func(d *Discovery) {
		d.logger = logger
	}
}

// NewDiscovery creates a Discovery over the given providers. The
// provider order is the priority order: earlier providers are
// consulted first and later ones only when everything before them
// produced nothing usable.
func NewDiscovery(providers []Provider, opts ...DiscoveryOption) (*Discovery, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	d := &Discovery{
		providers: providers,
		breakers:  make(map[core.Source]*resilience.CircuitBreaker, len(providers)),
		logger:    slog.Default().With("component", "discovery"),
		seen:      make(map[core.ID]struct{}),
		bySource:  make(map[core.Source]int),
	}
	for _, opt := range opts {
		opt(d)
	}

	breakerOpts := d.breakerOpts
	if breakerOpts == nil {
		breakerOpts = []resilience.BreakerOption{
			resilience.WithFailureThreshold(defaultProviderThreshold),
		}
	}
	for _, provider := range providers {
		d.breakers[provider.Source()] = resilience.NewCircuitBreaker(
			string(provider.Source()), breakerOpts...)
	}
	return d, nil
}

// Discover queries providers for the request until one returns usable
// results. A directive naming a source promotes that provider to the
// front of the order. Discover fails only when every provider fails;
// an empty result from working providers is not an error.
func (d *Discovery) Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	var failures []error
	attempted := 0
	for _, provider := range d.orderedProviders(req) {
		attempted++
		var found []core.CandidateRecord
		err := d.breakers[provider.Source()].Execute(ctx, func(ctx context.Context) error {
			results, provErr := provider.Discover(ctx, req)
			if provErr != nil {
				return provErr
			}
			found = results
			return nil
		}, nil)
		if err != nil {
			d.logger.Warn("provider failed",
				slog.String("source", string(provider.Source())),
				slog.Any("err", err))
			d.mu.Lock()
			d.providerFailures++
			d.mu.Unlock()
			failures = append(failures, err)
			continue
		}

		if unique := d.dedupe(found, provider.Source()); len(unique) > 0 {
			return unique, nil
		}
	}

	if len(failures) == attempted {
		return nil, errors.Join(append([]error{ErrAllProvidersFailed}, failures...)...)
	}
	return nil, nil
}

// orderedProviders returns the priority order, promoting the
// directive's preferred source when one is named.
func (d *Discovery) orderedProviders(req Request) []Provider {
	if req.Directive == nil || req.Directive.Source == "" {
		return d.providers
	}
	ordered := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Source() == req.Directive.Source {
			ordered = append(ordered, p)
		}
	}
	for _, p := range d.providers {
		if p.Source() != req.Directive.Source {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// dedupe drops candidates whose content hash has already been seen,
// in this call or any earlier one, and records source statistics.
func (d *Discovery) dedupe(candidates []core.CandidateRecord, source core.Source) []core.CandidateRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	unique := make([]core.CandidateRecord, 0, len(candidates))
	for _, c := range candidates {
		c.Normalize()
		if _, dup := d.seen[c.Id]; dup {
			d.duplicates++
			continue
		}
		d.seen[c.Id] = struct{}{}
		unique = append(unique, c)
	}
	d.bySource[source] += len(unique)
	return unique
}

// BreakerState exposes one provider's circuit state.
func (d *Discovery) BreakerState(source core.Source) resilience.CircuitState {
	if b, ok := d.breakers[source]; ok {
		return b.State()
	}
	return ""
}

// Stats returns a snapshot of discovery activity.
func (d *Discovery) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	bySource := make(map[core.Source]int, len(d.bySource))
	for source, count := range d.bySource {
		bySource[source] = count
	}
	states := make(map[core.Source]resilience.CircuitState, len(d.breakers))
	for source, breaker := range d.breakers {
		states[source] = breaker.State()
	}
	return Stats{
		Calls:            d.calls,
		BySource:         bySource,
		Duplicates:       d.duplicates,
		ProviderFailures: d.providerFailures,
		BreakerStates:    states,
	}
}

// Release frees provider-owned resources such as worker pools.
func (d *Discovery) Release() {
	for _, provider := range d.providers {
		if r, ok := provider.(interface{ Release() }); ok {
			r.Release()
		}
	}
}
