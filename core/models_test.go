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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	id1 := IDFromContent("club de judo|https://example.org")
	id2 := IDFromContent("club de judo|https://example.org")
	assert.Equal(t, id1, id2, "identical content should produce identical IDs")

	id3 := IDFromContent("club de judo|https://example.com")
	assert.NotEqual(t, id1, id3, "different content should produce different IDs")
}

func TestCandidateRecord_Normalize(t *testing.T) {
	c := &CandidateRecord{
		Name:      "Cercle d'Escrime",
		SourceURL: "https://example.org/escrime",
	}
	c.Normalize()

	assert.Equal(t, DefaultAgeMax, c.Age.Max, "absent age max should get the sentinel")
	assert.False(t, c.Age.HasMax, "sentinel fill must not claim the bound was stated")
	assert.NotZero(t, c.Id, "normalize should assign a content-based ID")

	// Normalize is idempotent on the ID.
	id := c.Id
	c.Normalize()
	assert.Equal(t, id, c.Id)
}

func TestCandidateRecord_NormalizeKeepsStatedAgeMax(t *testing.T) {
	c := &CandidateRecord{
		Name: "Club de Natation",
		Age:  AgeRange{Min: 6, Max: 12, HasMin: true, HasMax: true},
	}
	c.Normalize()
	assert.Equal(t, 12, c.Age.Max)
}

func TestCandidateRecord_SearchText(t *testing.T) {
	c := &CandidateRecord{
		Name:       "Les Petits Judokas",
		Title:      LocalizedText{EN: "Judo for Kids", FR: "Judo Enfants"},
		Categories: []string{"Sport", "Arts Martiaux"},
	}
	text := c.SearchText()
	assert.Contains(t, text, "judo for kids")
	assert.Contains(t, text, "judo enfants")
	assert.Contains(t, text, "arts martiaux")
}

func TestSearchDirective_PatternKey(t *testing.T) {
	d := &SearchDirective{Keywords: []string{"judo", "enfant", "enfants"}}
	require.Equal(t, "judo|enfant|enfants", d.PatternKey())
}

func TestLocalizedText_Combined(t *testing.T) {
	assert.Equal(t, "a b", LocalizedText{EN: "a", FR: "b"}.Combined())
	assert.Equal(t, "b", LocalizedText{FR: "b"}.Combined())
	assert.Equal(t, "a", LocalizedText{EN: "a"}.Combined())
	assert.Equal(t, "", LocalizedText{}.Combined())
}
