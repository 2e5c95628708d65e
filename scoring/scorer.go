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
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/features"
)

// DefaultAcceptThreshold is the score at or above which a candidate
// is recommended for acceptance rather than human review.
const DefaultAcceptThreshold = 7.0

// Feedback is one human review decision used for retraining.
type Feedback struct {
	Candidate *core.CandidateRecord
	Decision  core.Outcome
}

// Scorer assigns quality scores to candidate records. It starts
// untrained, scoring by heuristic rules, and switches to regression
// inference once Train succeeds. Safe for concurrent use: Score may
// run while Train fits a replacement model.
type Scorer struct {
	extractor *features.Extractor
	threshold float64
	logger    *slog.Logger

	training atomic.Bool

	mu    sync.RWMutex
	model *linearModel
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithExtractor replaces the default feature extractor.
func WithExtractor(extractor *features.Extractor) ScorerOption {
	return func(s *Scorer) {
		s.extractor = extractor
	}
}

// WithAcceptThreshold overrides the acceptance threshold.
func WithAcceptThreshold(threshold float64) ScorerOption {
	return func(s *Scorer) {
		s.threshold = threshold
	}
}

// WithScorerLogger sets the logger. Defaults to slog.Default().
func WithScorerLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates an untrained scorer.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		threshold: DefaultAcceptThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = features.NewExtractor()
	}
	return s
}

// Trained reports whether a model is currently held.
func (s *Scorer) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// Train fits a model on the given candidates. A nil labels slice
// defaults every label to 10.0, supporting bootstrap from a corpus
// of known-good examples. A call arriving while another Train is in
// progress is a no-op with a logged warning. Training failures leave
// any previously trained model intact.
func (s *Scorer) Train(candidates []*core.CandidateRecord, labels []float64) error {
	if len(candidates) == 0 {
		return ErrNoTrainingData
	}
	if labels != nil && len(labels) != len(candidates) {
		return ErrLabelMismatch
	}

	if !s.training.CompareAndSwap(false, true) {
		s.logger.Warn("training already in progress, ignoring call",
			slog.Int("candidates", len(candidates)))
		return nil
	}
	defer s.training.Store(false)

	if labels == nil {
		labels = make([]float64, len(candidates))
		for i := range labels {
			labels[i] = 10.0
		}
	}

	vectors := make([]core.FeatureVector, len(candidates))
	for i, c := range candidates {
		vectors[i] = s.extractor.Extract(c)
	}

	model, err := fitLinearModel(vectors, labels)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.model = model
	s.mu.Unlock()

	s.logger.Info("model trained",
		slog.Int("samples", len(candidates)))
	return nil
}

// RetrainWithFeedback retrains from scratch on human review
// decisions, mapping approved to 10.0 and rejected to 0.0. The
// feature/label relationship shifts as new activity types appear, so
// no incremental update is attempted.
func (s *Scorer) RetrainWithFeedback(feedback []Feedback) error {
	if len(feedback) == 0 {
		return ErrNoTrainingData
	}

	candidates := make([]*core.CandidateRecord, len(feedback))
	labels := make([]float64, len(feedback))
	for i, f := range feedback {
		candidates[i] = f.Candidate
		if f.Decision == core.OutcomeApproved {
			labels[i] = 10.0
		}
	}
	return s.Train(candidates, labels)
}

// Score assesses one candidate. Uses the trained model when present,
// falling back to the heuristic rules when untrained or when
// inference is impossible. The per-category breakdown is computed the
// same way for both methods.
func (s *Scorer) Score(candidate *core.CandidateRecord) core.ScoreResult {
	breakdown := computeBreakdown(candidate, s.extractor.Vocabulary(), s.extractor.TargetArea())

	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()

	var result core.ScoreResult
	if model != nil {
		score := model.predict(s.extractor.Extract(candidate))
		result = core.ScoreResult{
			Score:      score,
			Confidence: score / 10,
			Breakdown:  breakdown,
			Method:     core.ScoreMethodML,
		}
	} else {
		result = core.ScoreResult{
			Score:      ruleScore(breakdown),
			Confidence: ruleConfidence,
			Breakdown:  breakdown,
			Method:     core.ScoreMethodRules,
		}
	}

	if result.Score >= s.threshold {
		result.Recommendation = core.RecommendationAccept
	} else {
		result.Recommendation = core.RecommendationReview
	}
	return result
}

// Export returns a persistable snapshot of the current model, or
// ErrNotTrained when no model is held.
func (s *Scorer) Export() (*ModelSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil, ErrNotTrained
	}
	return s.model.snapshot(), nil
}

// Restore replaces the current model with a previously exported
// snapshot. The snapshot must match the current feature schema.
func (s *Scorer) Restore(snapshot *ModelSnapshot) error {
	model, err := modelFromSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
	return nil
}
