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


// Package discovery finds candidate organizations across independent
// providers: structured registries, document corpora harvested from
// municipal pages, aggregated meta-search and single-engine web
// search as a last resort.
//
// Providers are consulted in priority order and each is wrapped by
// its own circuit breaker; a provider failure is logged and the next
// provider is tried, so a discovery call fails only when every
// provider fails. Results are normalized into the canonical
// core.CandidateRecord schema at the provider boundary and
// de-duplicated by content hash before they are returned.
package discovery
