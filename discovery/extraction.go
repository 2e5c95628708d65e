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
	"regexp"
	"strings"
	"time"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

// TextExtractor turns free text (PDF or page body) into candidate
// records. Behind an interface so the pattern set can be swapped
// without touching discovery orchestration.
type TextExtractor interface {
	ExtractCandidates(text, sourceURL string) []core.CandidateRecord
}

// French organization naming patterns: a legal-form word followed by
// a capitalized name, and the reverse order.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:Association|Club|Cercle|Amicale|Centre|École|Académie)\s+([A-ZÉÈÀÛÔÎÂÙÇ][a-zA-ZÉÈÀÛÔÎÂÙÇ\s\-'.]{3,60})`),
	regexp.MustCompile(`([A-ZÉÈÀÛÔÎÂÙÇ][a-zA-ZÉÈÀÛÔÎÂÙÇ\s\-'.]{3,60})\s+(?:Association|Club|Cercle|Amicale)`),
}

var (
	emailsPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonesPattern   = regexp.MustCompile(`(?:\+33|0)[1-9](?:[.\s]?\d{2}){4}`)
	websitesPattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}`)
	addressPattern  = regexp.MustCompile(`(?i)(?:adresse|address)[:\s]+([0-9]+\s+[^,\n]{10,80})`)
)

const (
	minNameLen       = 4
	maxNameLen       = 100
	maxWebsites      = 10
	addressProximity = 200
)

// RegexExtractor extracts organizations by naming-pattern matching
// with nearby contact capture. Stateless and safe for concurrent use.
type RegexExtractor struct {
	vocab features.Vocabulary
}

// NewRegexExtractor creates an extractor sharing the given keyword
// vocabulary with the relevance gate.
func NewRegexExtractor(vocab features.Vocabulary) *RegexExtractor {
	return &RegexExtractor{vocab: vocab}
}

// ExtractCandidates scans the text for organization names and builds
// one candidate per distinct name, attaching the first plausible
// contact channels found in the same document. Returns nil when the
// text fails the relevance gate.
func (e *RegexExtractor) ExtractCandidates(text, sourceURL string) []core.CandidateRecord {
	if !e.vocab.IsRelevant(text) {
		return nil
	}

	names := make([]string, 0, 8)
	seen := make(map[string]struct{})
	for _, pattern := range namePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(match[1])
			if len(name) < minNameLen || len(name) > maxNameLen {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	email := firstMatch(emailsPattern, text)
	phone := firstMatch(phonesPattern, text)
	website := e.firstExternalWebsite(text)

	now := time.Now().UTC()
	candidates := make([]core.CandidateRecord, 0, len(names))
	for _, name := range names {
		if !e.vocab.IsRelevant(name) {
			continue
		}
		c := core.CandidateRecord{
			Name:  name,
			Title: core.LocalizedText{FR: name},
			Contact: core.Contact{
				Email:   email,
				Phone:   phone,
				Website: website,
			},
			Address:      extractAddressNear(text, name),
			Source:       core.SourceDocuments,
			SourceURL:    sourceURL,
			DiscoveredAt: now,
		}
		c.Normalize()
		candidates = append(candidates, c)
	}
	return candidates
}

// firstExternalWebsite returns the first website mention that does
// not point at an excluded platform or municipal domain.
func (e *RegexExtractor) firstExternalWebsite(text string) string {
	checked := 0
	for _, site := range websitesPattern.FindAllString(text, -1) {
		if checked == maxWebsites {
			break
		}
		checked++
		if !e.vocab.IsExcludedDomain(site) {
			return site
		}
	}
	return ""
}

// extractAddressNear looks for an address label within a window
// following the organization name.
func extractAddressNear(text, name string) string {
	idx := strings.Index(text, name)
	if idx < 0 {
		return ""
	}
	end := idx + addressProximity
	if end > len(text) {
		end = len(text)
	}
	match := addressPattern.FindStringSubmatch(text[idx:end])
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	return pattern.FindString(text)
}
