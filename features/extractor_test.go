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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartierlab/prospect/core"
)

func fullCandidate() *core.CandidateRecord {
	return &core.CandidateRecord{
		Name:         "Club de Judo des Enfants",
		Title:        core.LocalizedText{EN: "Judo Club for Kids", FR: "Club de Judo Enfants"},
		Description:  core.LocalizedText{FR: "Cours de judo pour enfants, tous niveaux."},
		ActivityType: "sport",
		Categories:   []string{"sport", "arts martiaux"},
		Age:          core.AgeRange{Min: 6, Max: 14, HasMin: true, HasMax: true},
		Price:        core.Price{Amount: 250, Currency: "EUR"},
		Contact: core.Contact{
			Email:   "contact@judo20.fr",
			Phone:   "01 43 66 00 00",
			Website: "https://judo20.fr",
		},
		Neighborhood: "Gambetta (20e)",
		Address:      "12 rue des Pyrénées, 75020 Paris",
		Availability: core.Availability{Days: "mercredi, samedi"},
		ProviderId:   "ASSO-7741",
		Source:       core.SourceRegistry,
	}
}

func TestExtract_AlwaysFixedLengthInRange(t *testing.T) {
	e := NewExtractor()
	candidates := []*core.CandidateRecord{
		fullCandidate(),
		{Name: "Bare"},
		{}, // even an all-empty record
		nil,
	}
	for _, c := range candidates {
		v := e.Extract(c)
		require.Len(t, v[:], core.FeatureCount)
		for i, value := range v {
			assert.GreaterOrEqual(t, value, 0.0, "dim %d", i)
			assert.LessOrEqual(t, value, 1.0, "dim %d", i)
		}
	}
}

func TestExtract_Pure(t *testing.T) {
	e := NewExtractor()
	c := fullCandidate()
	v1 := e.Extract(c)
	v2 := e.Extract(c)
	assert.Equal(t, v1, v2, "extraction must be deterministic")
}

func TestExtract_KeywordFlags(t *testing.T) {
	e := NewExtractor()
	v := e.Extract(fullCandidate())

	kids := v.Slice(KidsKeywordLo, KidsKeywordHi)
	activity := v.Slice(ActivityKeywordLo, ActivityKeywordHi)
	assert.Positive(t, sum(kids), "kids keywords should fire for 'enfants'")
	assert.Positive(t, sum(activity), "activity keywords should fire for 'sport'/'club'")
}

func TestExtract_AdultOnlyNegativeSignal(t *testing.T) {
	e := NewExtractor()
	c := &core.CandidateRecord{
		Name:        "Amicale des Séniors",
		Description: core.LocalizedText{FR: "Rencontres pour adultes et séniors"},
	}
	v := e.Extract(c)
	assert.Positive(t, sum(v.Slice(adultOnlyLo, adultOnlyLo+5)))
}

func TestExtract_NonprofitFlagsSuppressedByActivity(t *testing.T) {
	e := NewExtractor()

	generic := &core.CandidateRecord{
		Name:        "Fondation",
		Description: core.LocalizedText{FR: "Fondation d'aide et de soutien"},
	}
	v := e.Extract(generic)
	assert.Positive(t, sum(v.Slice(nonprofitLo, nonprofitLo+5)),
		"generic nonprofit terms without activity keywords are a negative flag")

	withActivity := &core.CandidateRecord{
		Name:        "Fondation",
		Description: core.LocalizedText{FR: "Fondation d'aide, ateliers sport pour tous"},
	}
	v = e.Extract(withActivity)
	assert.Zero(t, sum(v.Slice(nonprofitLo, nonprofitLo+5)),
		"activity keywords suppress the nonprofit penalty flags")
}

func TestExtract_ContactBlock(t *testing.T) {
	e := NewExtractor()
	v := e.Extract(fullCandidate())

	assert.Equal(t, 1.0, v[contactLo+0], "has email")
	assert.Equal(t, 1.0, v[contactLo+1], "email format valid")
	assert.Equal(t, 1.0, v[contactLo+2], "has phone")
	assert.Equal(t, 1.0, v[contactLo+3], "french phone format valid")
	assert.Equal(t, 1.0, v[contactLo+4], "has website")
	assert.Equal(t, 1.0, v[contactLo+5], "website parses")
	assert.Equal(t, 0.0, v[contactLo+6], "no registration link")
	assert.InDelta(t, 0.75, v[ContactCompletenessIndex], 1e-9)
}

func TestExtract_GeographicBlock(t *testing.T) {
	e := NewExtractor()
	v := e.Extract(fullCandidate())

	assert.Equal(t, 1.0, v[GeoLo+0], "has neighborhood")
	assert.Equal(t, 1.0, v[GeoLo+1], "neighborhood mentions the area")
	assert.Equal(t, 1.0, v[GeoLo+2], "has address")
	assert.Equal(t, 1.0, v[GeoLo+3], "address mentions target postal code")
	assert.Equal(t, 1.0, v[GeoLo+5], "geo completeness")
}

func TestExtract_AgeBlock(t *testing.T) {
	e := NewExtractor()
	v := e.Extract(fullCandidate())
	assert.Equal(t, 1.0, v[KidAppropriateDim], "6-14 is kid appropriate")

	adults := &core.CandidateRecord{
		Name: "X",
		Age:  core.AgeRange{Min: 18, Max: 99, HasMin: true, HasMax: true},
	}
	v = e.Extract(adults)
	assert.Equal(t, 0.0, v[KidAppropriateDim])
}

func TestExtract_MissingAgeUsesBenignDefaults(t *testing.T) {
	e := NewExtractor()
	v := e.Extract(&core.CandidateRecord{Name: "X"})
	assert.Equal(t, 0.0, v[ageLo+0], "no stated min")
	assert.Equal(t, 0.0, v[ageLo+1], "no stated max")
	assert.Equal(t, 1.0, v[KidAppropriateDim], "absent bounds do not disqualify")
}

func TestExtract_StructuralCompleteness(t *testing.T) {
	e := NewExtractor()

	full := e.Extract(fullCandidate())
	empty := e.Extract(&core.CandidateRecord{Name: "X"})
	assert.Greater(t, full[CompletenessIndex], empty[CompletenessIndex])

	auto := &core.CandidateRecord{Name: "X", ProviderId: "Provider-12"}
	v := e.Extract(auto)
	assert.Equal(t, 1.0, v[providerIdDim])
	assert.Equal(t, 0.0, v[realProviderDim], "auto-generated provider ids do not count as real")

	real := &core.CandidateRecord{Name: "X", ProviderId: "ASSO-7741"}
	v = e.Extract(real)
	assert.Equal(t, 1.0, v[realProviderDim])
}

func TestVocabulary_IsRelevant(t *testing.T) {
	v := DefaultVocabulary()
	assert.True(t, v.IsRelevant("club de sport pour enfants"))
	assert.False(t, v.IsRelevant("abonnement à la newsletter municipale"))
	assert.False(t, v.IsRelevant("gymnastique douce pour séniors"))
	assert.False(t, v.IsRelevant("réunion du conseil de quartier"))
}

func TestVocabulary_IsExcludedDomain(t *testing.T) {
	v := DefaultVocabulary()
	assert.True(t, v.IsExcludedDomain("https://www.facebook.com/clubjudo"))
	assert.True(t, v.IsExcludedDomain("https://mairie20.paris.fr/page"))
	assert.False(t, v.IsExcludedDomain("https://judo20.fr"))
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
