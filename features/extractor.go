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


package features

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/quartierlab/prospect/core"
)

// Dimension layout. Contiguous blocks per sub-extraction; the bounds
// below are the only place the layout is spelled out.
const (
	// Text block: keyword flags and normalized lengths.
	KidsKeywordLo     = 0  // dims 0-9: first ten kids keywords
	KidsKeywordHi     = 10
	ActivityKeywordLo = 10 // dims 10-19: first ten activity keywords
	ActivityKeywordHi = 20
	adultOnlyLo       = 20 // dims 20-24: adult-only indicators
	nonprofitLo       = 25 // dims 25-29: generic nonprofit w/o activity
	titleLenDim       = 30
	descLenDim        = 31
	activityTypeDim   = 32
	categoryCountDim  = 33
	notesDim          = 34

	// Contact block.
	contactLo                = 35
	ContactCompletenessIndex = 42

	// Geographic block.
	GeoLo = 43
	GeoHi = 49

	// Age block.
	ageLo             = 49
	KidAppropriateDim = 53

	// Pricing block.
	priceLo = 55

	// Availability block.
	availLo = 58

	// Structural block.
	CompletenessIndex = 61
	providerIdDim     = 62
	realProviderDim   = 63
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern   = regexp.MustCompile(`(?:\+33|0)[1-9](?:[.\s]?\d{2}){4}`)
	autoProviderId = "provider-"
)

// TargetArea describes the geographic area candidates are being
// collected for. The extractor emits match flags against it.
type TargetArea struct {
	// Label is the short area name as it appears in text, e.g. "20e".
	Label string
	// PostalCode is the area postal code, e.g. "75020".
	PostalCode string
	// CityLabel is the spelled-out city+area form, e.g. "paris 20".
	CityLabel string
	// Mention matches area references in neighborhood labels.
	Mention *regexp.Regexp
	// Neighborhoods lists known sub-neighborhood names, lowercased.
	Neighborhoods []string
}

// DefaultTargetArea returns the Paris 20e arrondissement defaults.
func DefaultTargetArea() TargetArea {
	return TargetArea{
		Label:      "20e",
		PostalCode: "75020",
		CityLabel:  "paris 20",
		Mention:    regexp.MustCompile(`(?i)20|xx|vingtième`),
		Neighborhoods: []string{
			"ménilmontant", "saint-fargeau", "gambetta", "porte de bagnolet",
		},
	}
}

// Extractor maps candidate records to feature vectors. Stateless and
// safe for concurrent use once constructed.
type Extractor struct {
	vocab Vocabulary
	area  TargetArea
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithVocabulary replaces the default keyword vocabulary.
func WithVocabulary(vocab Vocabulary) ExtractorOption {
	return func(e *Extractor) {
		e.vocab = vocab
	}
}

// WithTargetArea replaces the default target area.
func WithTargetArea(area TargetArea) ExtractorOption {
	return func(e *Extractor) {
		e.area = area
	}
}

// NewExtractor creates a feature extractor with default vocabulary
// and target area unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		vocab: DefaultVocabulary(),
		area:  DefaultTargetArea(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Vocabulary returns the extractor's keyword vocabulary, for sharing
// with the discovery relevance filter.
func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

// TargetArea returns the configured target area.
func (e *Extractor) TargetArea() TargetArea {
	return e.area
}

// Extract maps a candidate to its feature vector. Pure: the same
// unmodified candidate always yields an identical vector, and no
// input causes a panic or an out-of-range value.
func (e *Extractor) Extract(candidate *core.CandidateRecord) core.FeatureVector {
	var v core.FeatureVector
	if candidate == nil {
		return v
	}

	e.textFeatures(candidate, &v)
	e.contactFeatures(candidate, &v)
	e.geographicFeatures(candidate, &v)
	e.ageFeatures(candidate, &v)
	e.pricingFeatures(candidate, &v)
	e.availabilityFeatures(candidate, &v)
	e.structuralFeatures(candidate, &v)
	return v
}

func (e *Extractor) textFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	allText := c.SearchText()

	for i := 0; i < KidsKeywordHi-KidsKeywordLo; i++ {
		v[KidsKeywordLo+i] = keywordFlag(allText, e.vocab.Kids, i)
	}
	for i := 0; i < ActivityKeywordHi-ActivityKeywordLo; i++ {
		v[ActivityKeywordLo+i] = keywordFlag(allText, e.vocab.Activity, i)
	}
	for i := 0; i < 5; i++ {
		v[adultOnlyLo+i] = keywordFlag(allText, e.vocab.AdultOnly, i)
	}

	// Generic nonprofit terms only count against a candidate when no
	// activity keyword backs them up.
	hasActivity := ContainsAny(allText, e.vocab.Activity)
	for i := 0; i < 5; i++ {
		if !hasActivity {
			v[nonprofitLo+i] = keywordFlag(allText, e.vocab.GenericNonprofit, i)
		}
	}

	titleLen := len(c.Title.EN) + len(c.Title.FR)
	v[titleLenDim] = capRatio(float64(titleLen), 100)
	descLen := len(c.Description.EN) + len(c.Description.FR)
	v[descLenDim] = capRatio(float64(descLen), 500)
	v[activityTypeDim] = boolFlag(c.ActivityType != "")
	v[categoryCountDim] = capRatio(float64(len(c.Categories)), 5)
	v[notesDim] = boolFlag(c.Notes != "")
}

func (e *Extractor) contactFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	hasEmail := c.Contact.Email != ""
	hasPhone := c.Contact.Phone != ""
	hasWebsite := c.Contact.Website != ""
	hasRegistration := c.Contact.RegistrationLink != ""

	v[contactLo+0] = boolFlag(hasEmail)
	v[contactLo+1] = boolFlag(emailPattern.MatchString(c.Contact.Email))
	v[contactLo+2] = boolFlag(hasPhone)
	v[contactLo+3] = boolFlag(phonePattern.MatchString(c.Contact.Phone))
	v[contactLo+4] = boolFlag(hasWebsite)
	v[contactLo+5] = boolFlag(validWebsite(c.Contact.Website))
	v[contactLo+6] = boolFlag(hasRegistration)
	v[ContactCompletenessIndex] = completeness(hasEmail, hasPhone, hasWebsite, hasRegistration)
}

func (e *Extractor) geographicFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	hasNeighborhood := c.Neighborhood != ""
	hasAddress := c.Address != ""
	address := strings.ToLower(c.Address)

	v[GeoLo+0] = boolFlag(hasNeighborhood)
	if hasNeighborhood && e.area.Mention != nil {
		v[GeoLo+1] = boolFlag(e.area.Mention.MatchString(c.Neighborhood))
	}
	v[GeoLo+2] = boolFlag(hasAddress)
	v[GeoLo+3] = boolFlag(strings.Contains(address, e.area.PostalCode) ||
		strings.Contains(address, e.area.CityLabel))
	v[GeoLo+4] = boolFlag(ContainsAny(address, e.area.Neighborhoods))
	v[GeoLo+5] = completeness(hasNeighborhood, hasAddress)
}

func (e *Extractor) ageFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	v[ageLo+0] = boolFlag(c.Age.HasMin)
	v[ageLo+1] = boolFlag(c.Age.HasMax)

	ageMin := 0
	if c.Age.HasMin {
		ageMin = c.Age.Min
	}
	// An unstated upper bound reads as "through adolescence" rather
	// than the record sentinel, which would saturate the dimension.
	ageMax := 18
	if c.Age.HasMax {
		ageMax = c.Age.Max
	}
	v[ageLo+2] = capRatio(float64(ageMin), 18)
	v[ageLo+3] = capRatio(float64(ageMax), 18)
	v[KidAppropriateDim] = boolFlag(ageMin <= 12 && ageMax >= 6)
	v[ageLo+5] = boolFlag(c.Adults)
}

func (e *Extractor) pricingFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	hasPrice := c.Price.Amount > 0
	v[priceLo+0] = boolFlag(hasPrice)
	if c.Price.Amount > 0 {
		v[priceLo+1] = capRatio(c.Price.Amount, 1000)
	}
	v[priceLo+2] = boolFlag(c.Price.Currency != "")
}

func (e *Extractor) availabilityFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	hasDays := c.Availability.Days != ""
	hasDates := c.Availability.Dates != ""
	v[availLo+0] = boolFlag(hasDays)
	v[availLo+1] = boolFlag(hasDates)
	v[availLo+2] = completeness(hasDays, hasDates)
}

func (e *Extractor) structuralFeatures(c *core.CandidateRecord, v *core.FeatureVector) {
	// Fixed list of expected fields for the completeness ratio.
	filled := []bool{
		c.Title.Combined() != "",
		c.Description.Combined() != "",
		len(c.Categories) > 0,
		c.ActivityType != "",
		c.Age.HasMin,
		c.Age.HasMax,
		c.Contact.Email != "",
		c.Contact.Phone != "",
		c.Contact.Website != "",
		c.Neighborhood != "",
		c.Address != "",
		c.Price.Amount > 0,
	}
	v[CompletenessIndex] = completeness(filled...)

	hasProvider := c.ProviderId != ""
	v[providerIdDim] = boolFlag(hasProvider)
	v[realProviderDim] = boolFlag(hasProvider &&
		!strings.HasPrefix(strings.ToLower(c.ProviderId), autoProviderId))
}

func keywordFlag(text string, keywords []string, i int) float64 {
	if i >= len(keywords) {
		return 0
	}
	return boolFlag(strings.Contains(text, keywords[i]))
}

func boolFlag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func capRatio(value, limit float64) float64 {
	if value <= 0 || limit <= 0 {
		return 0
	}
	if value >= limit {
		return 1
	}
	return value / limit
}

func completeness(fields ...bool) float64 {
	if len(fields) == 0 {
		return 0
	}
	filled := 0
	for _, f := range fields {
		if f {
			filled++
		}
	}
	return float64(filled) / float64(len(fields))
}

func validWebsite(website string) bool {
	if website == "" {
		return false
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	return err == nil && u.Host != "" && strings.Contains(u.Host, ".")
}
