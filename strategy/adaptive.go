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
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quartierlab/prospect/core"
)

// Defaults for the learning thresholds. All three are configuration,
// not structural constants.
const (
	DefaultHistoryLimit    = 100
	DefaultRejectionWindow = 20
	DefaultMaxRejections   = 3
	DefaultArea            = "20e"
)

// PatternStats is the running success record of one keyword set.
type PatternStats struct {
	Pattern      string
	SuccessRate  float64
	SuccessCount int
	TotalCount   int
	LastUsed     time.Time
}

// Statistics is a read-only view over the outcome history.
type Statistics struct {
	TotalSearches    int
	Approved         int
	Rejected         int
	ApprovalRate     float64 // percent
	MeanScore        float64 // over entries with a recorded score
	RejectedPatterns int
	ApprovedPatterns int
	TopPatterns      []PatternStats // top 5 by success rate
}

// Adaptive generates search directives and adapts them to review
// outcomes. All state is owned by the instance; it is created empty
// and cleared only by Reset or starvation recovery.
type Adaptive struct {
	historyLimit    int
	rejectionWindow int
	maxRejections   int
	area            string
	logger          *slog.Logger

	mu             sync.Mutex
	history        []core.OutcomeRecord
	rejectedCounts map[string]int
	approved       map[string]PatternStats
	cursor         int
}

// AdaptiveOption configures an Adaptive strategy.
type AdaptiveOption func(*Adaptive)

// WithHistoryLimit bounds the outcome history (FIFO eviction).
func WithHistoryLimit(limit int) AdaptiveOption {
	return func(a *Adaptive) {
		a.historyLimit = limit
	}
}

// WithRejectionWindow sets how many recent rejections feed the
// failed-keyword and failed-source sets.
func WithRejectionWindow(window int) AdaptiveOption {
	return func(a *Adaptive) {
		a.rejectionWindow = window
	}
}

// WithMaxRejections sets how many rejections bench a keyword pattern.
func WithMaxRejections(max int) AdaptiveOption {
	return func(a *Adaptive) {
		a.maxRejections = max
	}
}

// WithArea sets the default target area label.
func WithArea(area string) AdaptiveOption {
	return func(a *Adaptive) {
		a.area = area
	}
}

// WithStrategyLogger sets the logger. Defaults to slog.Default().
func WithStrategyLogger(logger *slog.Logger) AdaptiveOption {
	return func(a *Adaptive) {
		a.logger = logger
	}
}

// NewAdaptive creates an adaptive strategy with empty memory.
func NewAdaptive(opts ...AdaptiveOption) *Adaptive {
	a := &Adaptive{
		historyLimit:    DefaultHistoryLimit,
		rejectionWindow: DefaultRejectionWindow,
		maxRejections:   DefaultMaxRejections,
		area:            DefaultArea,
		logger:          slog.Default(),
		rejectedCounts:  make(map[string]int),
		approved:        make(map[string]PatternStats),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns the directive for the next discovery attempt. An empty
// area falls back to the configured default. Benched patterns are
// skipped; if every combination is benched, the rejection memory is
// cleared and cycling resumes over the full pool.
func (a *Adaptive) Next(area string) core.SearchDirective {
	if area == "" {
		area = a.area
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	failedKeywords, failedSources := a.recentFailures()
	pool := generateCombinations(area, failedKeywords)

	valid := pool[:0:0]
	for _, combo := range pool {
		if a.rejectedCounts[combo.patternKey()] < a.maxRejections {
			valid = append(valid, combo)
		}
	}

	var selected combination
	if len(valid) == 0 {
		a.logger.Warn("all keyword combinations benched, clearing rejection memory",
			slog.Int("patterns", len(a.rejectedCounts)))
		a.rejectedCounts = make(map[string]int)
		selected = pool[a.cursor%len(pool)]
	} else {
		selected = valid[a.cursor%len(valid)]
	}
	a.cursor++

	return core.SearchDirective{
		Id:       uuid.NewString(),
		Keywords: selected.keywords,
		Query:    selected.query,
		Source:   rankSources(failedSources),
		Type:     selected.strategyType,
		Priority: selected.priority,
	}
}

// recentFailures collects keywords and sources from the most recent
// rejections, bounded by the rejection window.
func (a *Adaptive) recentFailures() (map[string]struct{}, map[core.Source]struct{}) {
	keywords := make(map[string]struct{})
	sources := make(map[core.Source]struct{})

	seen := 0
	for i := len(a.history) - 1; i >= 0 && seen < a.rejectionWindow; i-- {
		rec := a.history[i]
		if rec.Outcome != core.OutcomeRejected {
			continue
		}
		seen++
		for _, kw := range rec.Directive.Keywords {
			keywords[strings.ToLower(kw)] = struct{}{}
		}
		if rec.Directive.Source != "" {
			sources[rec.Directive.Source] = struct{}{}
		}
	}
	return keywords, sources
}

// Record stores a review outcome for a directive with no score.
func (a *Adaptive) Record(directive core.SearchDirective, outcome core.Outcome) {
	a.record(core.OutcomeRecord{
		Directive: directive,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	})
}

// RecordScored stores a review outcome together with the quality
// score the candidate received.
func (a *Adaptive) RecordScored(directive core.SearchDirective, outcome core.Outcome, score float64) {
	a.record(core.OutcomeRecord{
		Directive: directive,
		Outcome:   outcome,
		Score:     score,
		HasScore:  true,
		Timestamp: time.Now().UTC(),
	})
}

func (a *Adaptive) record(rec core.OutcomeRecord) {
	key := rec.Directive.PatternKey()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, rec)
	if len(a.history) > a.historyLimit {
		a.history = a.history[1:]
	}

	switch rec.Outcome {
	case core.OutcomeRejected:
		a.rejectedCounts[key]++
		if count := a.rejectedCounts[key]; count >= a.maxRejections {
			a.logger.Info("keyword pattern benched",
				slog.String("pattern", key),
				slog.Int("rejections", count))
		}
	case core.OutcomeApproved:
		successes, total := 0, 0
		for _, h := range a.history {
			if h.Directive.PatternKey() != key {
				continue
			}
			total++
			if h.Outcome == core.OutcomeApproved {
				successes++
			}
		}
		a.approved[key] = PatternStats{
			Pattern:      key,
			SuccessRate:  float64(successes) / float64(total),
			SuccessCount: successes,
			TotalCount:   total,
			LastUsed:     rec.Timestamp,
		}
	}
}

// Statistics derives the current performance view.
func (a *Adaptive) Statistics() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Statistics{
		TotalSearches:    len(a.history),
		RejectedPatterns: len(a.rejectedCounts),
		ApprovedPatterns: len(a.approved),
	}

	var scoreSum float64
	scored := 0
	for _, rec := range a.history {
		switch rec.Outcome {
		case core.OutcomeApproved:
			stats.Approved++
		case core.OutcomeRejected:
			stats.Rejected++
		}
		if rec.HasScore {
			scoreSum += rec.Score
			scored++
		}
	}
	if stats.TotalSearches > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(stats.TotalSearches) * 100
	}
	if scored > 0 {
		stats.MeanScore = scoreSum / float64(scored)
	}

	top := make([]PatternStats, 0, len(a.approved))
	for _, p := range a.approved {
		top = append(top, p)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].SuccessRate != top[j].SuccessRate {
			return top[i].SuccessRate > top[j].SuccessRate
		}
		return top[i].Pattern < top[j].Pattern
	})
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopPatterns = top

	return stats
}

// Reset clears all learned state.
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = nil
	a.rejectedCounts = make(map[string]int)
	a.approved = make(map[string]PatternStats)
	a.cursor = 0
	a.logger.Info("adaptive search strategy reset")
}
