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


package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that the same
// organization discovered twice resolves to the same record.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Source identifies the provider a candidate or directive came from.
type Source string

const (
	// SourceRegistry is the structured-registry provider (open-data and
	// linked-data query endpoints). Highest trust, lowest volume.
	SourceRegistry Source = "registry"
	// SourceDocuments is the document-corpus provider (PDFs linked from
	// municipal and authority pages).
	SourceDocuments Source = "documents"
	// SourceMetaSearch is aggregated web search over several engines.
	SourceMetaSearch Source = "metasearch"
	// SourceWebSearch is single-engine web search, the fallback of last resort.
	SourceWebSearch Source = "websearch"
)

// Outcome is a human review decision for a discovered candidate.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// DefaultAgeMax is the sentinel upper age bound applied when a source
// states no maximum. A populated sentinel keeps downstream consumers
// from having to distinguish missing from zero.
const DefaultAgeMax = 99

// LocalizedText holds a bilingual free-text field.
type LocalizedText struct {
	EN string
	FR string
}

// Combined returns both language variants joined for text analysis.
func (t LocalizedText) Combined() string {
	switch {
	case t.EN == "":
		return t.FR
	case t.FR == "":
		return t.EN
	default:
		return t.EN + " " + t.FR
	}
}

// AgeRange is an age interval with explicit presence flags.
// HasMin/HasMax record whether the source actually stated a bound;
// Normalize fills sentinel values for absent bounds.
type AgeRange struct {
	Min    int
	Max    int
	HasMin bool
	HasMax bool
}

// Price is an amount with its currency code.
type Price struct {
	Amount   float64
	Currency string
}

// Contact holds the contact channels of a candidate organization.
type Contact struct {
	Email            string
	Phone            string
	Website          string
	RegistrationLink string
}

// Availability holds free-text schedule hints.
type Availability struct {
	Days  string
	Dates string
}

// CandidateRecord is one discovered organization or activity, not yet
// confirmed fit for inclusion. It is the canonical schema: providers
// normalize their own field spellings into this shape at the
// discovery boundary, so downstream consumers never perform
// alternate-name lookups.
type CandidateRecord struct {
	Id           ID
	Name         string
	Title        LocalizedText
	Description  LocalizedText
	ActivityType string
	Categories   []string
	Age          AgeRange
	Adults       bool // adults explicitly admitted (negative signal for child focus)
	Price        Price
	Contact      Contact
	Neighborhood string
	Address      string
	Availability Availability
	Notes        string
	ProviderId   string
	Source       Source
	SourceURL    string
	DiscoveredAt time.Time
	InsertedAt   time.Time // When the record was inserted into the store
	UpdatedAt    time.Time // When the record was last updated
}

// ContentKey returns the string the record's content hash is derived
// from. Name plus source URL is enough to collapse the same
// organization discovered twice via the same page.
func (c *CandidateRecord) ContentKey() string {
	return strings.ToLower(strings.TrimSpace(c.Name)) + "|" + c.SourceURL
}

// Normalize fills sentinel values for absent numeric fields and
// assigns the content-based ID when none is set.
func (c *CandidateRecord) Normalize() {
	if !c.Age.HasMax {
		c.Age.Max = DefaultAgeMax
	}
	if c.Id == 0 {
		c.Id = IDFromContent(c.ContentKey())
	}
}

// SearchText returns all free-text fields joined and lowercased, the
// form keyword matching runs against.
func (c *CandidateRecord) SearchText() string {
	parts := []string{
		c.Title.Combined(),
		c.Description.Combined(),
		c.ActivityType,
		strings.Join(c.Categories, " "),
		c.Notes,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ScoreMethod tags which scoring path produced a result.
type ScoreMethod string

const (
	ScoreMethodML    ScoreMethod = "ml"
	ScoreMethodRules ScoreMethod = "rule-based"
)

// Recommendation is the automatic disposition attached to a score.
type Recommendation string

const (
	RecommendationAccept Recommendation = "accept"
	RecommendationReview Recommendation = "review"
)

// ScoreBreakdown is the interpretable per-category decomposition of a
// score, displayed by downstream review tooling for both scoring
// methods.
type ScoreBreakdown struct {
	Relevance    float64 // 0-3
	Completeness float64 // 0-2
	Authority    float64 // 0-2
	Geographic   float64 // 0-2
	Contact      float64 // 0-1
}

// ScoreResult is the quality assessment of one candidate.
// Immutable once produced; may be recomputed after retraining.
type ScoreResult struct {
	Score          float64 // 0-10
	Confidence     float64 // 0-1
	Breakdown      ScoreBreakdown
	Recommendation Recommendation
	Method         ScoreMethod
}

// StrategyType names the family a keyword combination belongs to.
type StrategyType string

const (
	StrategySpecificActivity StrategyType = "specific_activity"
	StrategyGeneralActivity  StrategyType = "general_activity"
	StrategyClubFocus        StrategyType = "club_focus"
	StrategySportFocus       StrategyType = "sport_focus"
	StrategyCreativeFocus    StrategyType = "creative_focus"
)

// SearchDirective guides one discovery attempt: which keywords to
// search for, the composed query string, and the preferred provider.
// Ephemeral, produced per discovery cycle.
type SearchDirective struct {
	Id       string // cycle identifier, assigned by the strategy
	Keywords []string
	Query    string
	Source   Source
	Type     StrategyType
	Priority int
}

// PatternKey returns the canonical key for the directive's keyword
// set, used by the adaptive strategy's rejection and success memory.
func (d *SearchDirective) PatternKey() string {
	return strings.Join(d.Keywords, "|")
}

// OutcomeRecord is one entry of the adaptive strategy's sliding
// outcome window: a directive snapshot plus its review outcome.
type OutcomeRecord struct {
	Directive SearchDirective
	Outcome   Outcome
	Score     float64
	HasScore  bool
	Timestamp time.Time
}

// ReviewRecord is one persisted human review decision for a stored
// candidate. Accumulated reviews are the raw material for retraining
// the quality scorer.
type ReviewRecord struct {
	CandidateId ID
	Outcome     Outcome
	Score       float64 // score shown to the reviewer, if any
	HasScore    bool
	ReviewedAt  time.Time
}
