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

	"github.com/quartierlab/prospect/core"
)

// Request describes one discovery attempt against a provider.
type Request struct {
	// Area is the target area label, e.g. "20e".
	Area string
	// PostalCode narrows structured lookups, e.g. "75020".
	PostalCode string
	// Directive optionally carries the strategy's keyword guidance.
	// Providers that cannot use keywords ignore it.
	Directive *core.SearchDirective
}

// Query returns the directive query when present, otherwise a
// generic area query.
func (r Request) Query() string {
	if r.Directive != nil && r.Directive.Query != "" {
		return r.Directive.Query
	}
	return "Paris " + r.Area + " arrondissement activités enfants"
}

// Provider is one independent candidate source. Implementations
// normalize their own payload shapes into core.CandidateRecord at
// this boundary and must be safe for concurrent use.
type Provider interface {
	Source() core.Source
	Discover(ctx context.Context, req Request) ([]core.CandidateRecord, error)
}
