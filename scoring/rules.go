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


package scoring

import (
	"strings"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

// ruleConfidence is the fixed confidence attached to rule-based
// scores: the heuristic is trusted equally for every candidate.
const ruleConfidence = 0.5

// computeBreakdown decomposes a candidate into the per-category
// sub-scores displayed by review tooling. Both scoring methods use
// this same decomposition so that a reviewer sees one consistent
// explanation regardless of which path produced the headline score.
func computeBreakdown(c *core.CandidateRecord, vocab features.Vocabulary, area features.TargetArea) core.ScoreBreakdown {
	var b core.ScoreBreakdown
	if c == nil {
		b.Authority = 1
		return b
	}

	text := c.SearchText()
	hasKids := features.ContainsAny(text, vocab.Kids)
	hasActivity := features.ContainsAny(text, vocab.Activity)
	switch {
	case hasKids && hasActivity:
		b.Relevance = 3
	case hasKids || hasActivity:
		b.Relevance = 2
	}

	hasContact := c.Contact.Email != "" || c.Contact.Phone != "" || c.Contact.Website != ""
	hasLocation := c.Neighborhood != "" || c.Address != ""
	switch {
	case hasContact && hasLocation:
		b.Completeness = 2
	case hasContact || hasLocation:
		b.Completeness = 1
	}

	// Flat baseline credit: every candidate that reached scoring came
	// through a provider the pipeline already trusts to some degree.
	b.Authority = 1

	address := strings.ToLower(c.Address)
	exactArea := strings.Contains(address, area.PostalCode) ||
		strings.Contains(address, area.CityLabel) ||
		(c.Neighborhood != "" && area.Mention != nil && area.Mention.MatchString(c.Neighborhood))
	switch {
	case exactArea:
		b.Geographic = 2
	case c.Neighborhood != "":
		b.Geographic = 1
	}

	hasEmail := c.Contact.Email != ""
	hasPhone := c.Contact.Phone != ""
	switch {
	case hasEmail && hasPhone:
		b.Contact = 1
	case hasEmail || hasPhone:
		b.Contact = 0.5
	}

	return b
}

// ruleScore sums the breakdown categories, capped at 10.
func ruleScore(b core.ScoreBreakdown) float64 {
	total := b.Relevance + b.Completeness + b.Authority + b.Geographic + b.Contact
	if total > 10 {
		return 10
	}
	return total
}
