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


package strategy

import (
	"fmt"
	"strings"

	"github.com/quartierlab/prospect/core"
)

// activityKeywords is the curated pool crossed with kids keywords to
// produce specific-activity directives. Order matters: the first
// specificActivityCount entries that survive the failed-keyword
// filter become directives, so the most productive terms come first.
var activityKeywords = []string{
	"sport", "sports", "activité", "activités", "activity", "activities",
	"club", "clubs", "association", "associations",
	"théâtre", "theater", "theatre", "danse", "dance",
	"musique", "music", "arts martiaux", "martial arts",
	"gymnastique", "gymnastics", "natation", "swimming",
	"football", "soccer", "basketball", "tennis",
	"judo", "karate", "karaté", "aïkido", "aikido",
	"escrime", "fencing", "boxe", "boxing",
	"atelier", "ateliers", "workshop", "cours", "lesson",
}

// kidsKeywords narrow every directive toward child-relevant results.
var kidsKeywords = []string{
	"enfant", "enfants", "kids", "children", "jeune", "jeunes", "youth",
	"ado", "adolescent", "petit", "petits", "junior",
}

const specificActivityCount = 15

// combination is a candidate directive before source assignment.
type combination struct {
	strategyType core.StrategyType
	keywords     []string
	query        string
	priority     int
}

func (c combination) patternKey() string {
	return strings.Join(c.keywords, "|")
}

// generateCombinations builds the directive pool for one area,
// excluding activity keywords present in the failed set. The fixed
// broad strategies are always generated so the pool is never empty.
func generateCombinations(area string, failedKeywords map[string]struct{}) []combination {
	prefix := fmt.Sprintf("Paris %s arrondissement", area)

	var combos []combination
	generated := 0
	for _, activity := range activityKeywords {
		if generated == specificActivityCount {
			break
		}
		if _, failed := failedKeywords[strings.ToLower(activity)]; failed {
			continue
		}
		combos = append(combos, combination{
			strategyType: core.StrategySpecificActivity,
			keywords:     append([]string{activity}, kidsKeywords[:2]...),
			query:        fmt.Sprintf("%s %s %s %s", prefix, activity, kidsKeywords[0], kidsKeywords[1]),
			priority:     1,
		})
		generated++
	}

	combos = append(combos,
		combination{
			strategyType: core.StrategyGeneralActivity,
			keywords:     append([]string{"activité", "activités"}, kidsKeywords[:3]...),
			query:        prefix + " activités enfants kids",
			priority:     2,
		},
		combination{
			strategyType: core.StrategyClubFocus,
			keywords:     append([]string{"club", "clubs", "association"}, kidsKeywords[:2]...),
			query:        prefix + " clubs associations enfants",
			priority:     2,
		},
		combination{
			strategyType: core.StrategySportFocus,
			keywords:     append([]string{"sport", "sports", "loisir", "loisirs"}, kidsKeywords[:2]...),
			query:        prefix + " sports loisirs enfants",
			priority:     2,
		},
		combination{
			strategyType: core.StrategyCreativeFocus,
			keywords:     append([]string{"théâtre", "danse", "musique", "art"}, kidsKeywords[:2]...),
			query:        prefix + " théâtre danse musique enfants",
			priority:     2,
		},
	)

	return combos
}

// basePriority is the static source ranking, lower is better.
var basePriority = []core.Source{
	core.SourceRegistry,
	core.SourceDocuments,
	core.SourceMetaSearch,
	core.SourceWebSearch,
}

// failedSourcePenalty demotes sources whose recent directives were
// rejected.
const failedSourcePenalty = 2

// rankSources orders the providers by base priority, demoting any
// source in the failed set, and returns the best-ranked source.
func rankSources(failedSources map[core.Source]struct{}) core.Source {
	best := basePriority[0]
	bestRank := len(basePriority) + failedSourcePenalty + 1
	for i, source := range basePriority {
		rank := i + 1
		if _, failed := failedSources[source]; failed {
			rank += failedSourcePenalty
		}
		if rank < bestRank {
			best = source
			bestRank = rank
		}
	}
	return best
}
