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


// Package prospect ties discovery, scoring, strategy and storage
// into a single pipeline for finding and assessing local activity
// candidates.
package prospect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/discovery"
	"github.com/quartierlab/prospect/features"
	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/storage"
	"github.com/quartierlab/prospect/strategy"
)

// minTrainingReviews is the review count below which no automatic
// retraining is attempted; a model fit on a handful of decisions is
// worse than the rules.
const minTrainingReviews = 10

// Pipeline runs discovery cycles and routes human review decisions
// back into the search strategy and the quality scorer.
//
// One cycle: ask the strategy for a directive, discover candidates
// with it, score them, persist the new ones. Feedback on a stored
// candidate updates the strategy's outcome history and, once enough
// reviews have accumulated, retrains the scorer.
type Pipeline struct {
	records   storage.RecordStore
	reviews   storage.ReviewStore
	models    scoring.ModelRepository
	discovery *discovery.Discovery
	strategy  *strategy.Adaptive
	scorer    *scoring.Scorer
	area      features.TargetArea

	retrainEvery int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStrategy replaces the default adaptive strategy.
func WithStrategy(s *strategy.Adaptive) Option {
	return func(p *Pipeline) {
		p.strategy = s
	}
}

// WithScorer replaces the default scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(p *Pipeline) {
		p.scorer = s
	}
}

// WithModelRepository enables model persistence across restarts.
// Without one, a trained model lives only as long as the process.
func WithModelRepository(repo scoring.ModelRepository) Option {
	return func(p *Pipeline) {
		p.models = repo
	}
}

// WithTargetArea sets the area discovery and scoring target.
// Default is the 20th arrondissement.
func WithTargetArea(area features.TargetArea) Option {
	return func(p *Pipeline) {
		p.area = area
	}
}

// WithRetrainEvery sets how many reviews accumulate between automatic
// retrains. Values below 1 are coerced to 1.
func WithRetrainEvery(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.retrainEvery = n
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewPipeline creates a pipeline over the given stores and discovery
// orchestrator. The strategy and scorer default to fresh instances
// configured for the target area.
func NewPipeline(records storage.RecordStore, reviews storage.ReviewStore, disc *discovery.Discovery, opts ...Option) (*Pipeline, error) {
	if records == nil {
		return nil, ErrRecordStoreRequired
	}
	if reviews == nil {
		return nil, ErrReviewStoreRequired
	}
	if disc == nil {
		return nil, ErrDiscoveryRequired
	}

	p := &Pipeline{
		records:      records,
		reviews:      reviews,
		discovery:    disc,
		area:         features.DefaultTargetArea(),
		retrainEvery: minTrainingReviews,
		logger:       slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.strategy == nil {
		p.strategy = strategy.NewAdaptive(strategy.WithArea(p.area.Label))
	}
	if p.scorer == nil {
		extractor := features.NewExtractor(features.WithTargetArea(p.area))
		p.scorer = scoring.NewScorer(scoring.WithExtractor(extractor))
	}
	return p, nil
}

// ScoredCandidate pairs a discovered record with its quality
// assessment.
type ScoredCandidate struct {
	Record *core.CandidateRecord
	Result core.ScoreResult
}

// CycleResult reports one discovery cycle.
type CycleResult struct {
	Directive  core.SearchDirective
	Candidates []ScoredCandidate
	Stored     int
	Duplicates int
}

// RunCycle executes one discovery cycle for the given area (empty
// means the configured target area): next directive, discover, score,
// persist. Candidates already stored from earlier cycles are counted
// as duplicates, not errors.
func (p *Pipeline) RunCycle(ctx context.Context, area string) (*CycleResult, error) {
	if area == "" {
		area = p.area.Label
	}
	directive := p.strategy.Next(area)

	p.logger.Info("starting discovery cycle",
		slog.String("cycle", directive.Id),
		slog.String("query", directive.Query),
		slog.String("source", string(directive.Source)))

	candidates, err := p.discovery.Discover(ctx, discovery.Request{
		Area:       area,
		PostalCode: p.area.PostalCode,
		Directive:  &directive,
	})
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", directive.Id, err)
	}

	result := &CycleResult{Directive: directive}
	for i := range candidates {
		rec := &candidates[i]
		scored := ScoredCandidate{Record: rec, Result: p.scorer.Score(rec)}
		result.Candidates = append(result.Candidates, scored)

		if _, err := p.records.CreateRecords(ctx, rec); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				result.Duplicates++
				continue
			}
			return result, fmt.Errorf("persisting candidate %d: %w", rec.Id, err)
		}
		result.Stored++
	}

	p.logger.Info("discovery cycle finished",
		slog.String("cycle", directive.Id),
		slog.Int("candidates", len(result.Candidates)),
		slog.Int("stored", result.Stored),
		slog.Int("duplicates", result.Duplicates))
	return result, nil
}

// ScoreStored re-scores up to limit stored candidates, most recently
// discovered first. Useful after a retrain, when earlier assessments
// are stale. limit <= 0 scores everything.
func (p *Pipeline) ScoreStored(ctx context.Context, limit int) ([]ScoredCandidate, error) {
	records, err := p.records.ListRecords(ctx, limit)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredCandidate, len(records))
	for i, rec := range records {
		scored[i] = ScoredCandidate{Record: rec, Result: p.scorer.Score(rec)}
	}
	return scored, nil
}

// RecordFeedback records a human review decision for a stored
// candidate. The decision is persisted, fed into the strategy's
// outcome history for the directive that produced the candidate, and
// may trigger a retrain of the scorer once enough reviews exist.
func (p *Pipeline) RecordFeedback(ctx context.Context, directive core.SearchDirective, candidateID core.ID, outcome core.Outcome) error {
	if err := core.ValidateOutcome(outcome); err != nil {
		return err
	}
	candidate, err := p.records.GetRecord(ctx, candidateID)
	if err != nil {
		return err
	}

	score := p.scorer.Score(candidate).Score
	review := &core.ReviewRecord{
		CandidateId: candidateID,
		Outcome:     outcome,
		Score:       score,
		HasScore:    true,
		ReviewedAt:  time.Now().UTC(),
	}
	if err := p.reviews.SaveReview(ctx, review); err != nil {
		return err
	}
	p.strategy.RecordScored(directive, outcome, score)

	p.maybeRetrain(ctx)
	return nil
}

// maybeRetrain retrains when the review count has reached the
// training minimum and lands on a retrain boundary. Retrain failures
// are logged, not returned: a failed fit leaves the previous model
// (or the rules) in place and the feedback itself has already been
// recorded.
func (p *Pipeline) maybeRetrain(ctx context.Context) {
	reviews, err := p.reviews.ListReviews(ctx)
	if err != nil {
		p.logger.Error("listing reviews for retrain check", "err", err)
		return
	}
	n := len(reviews)
	if n < minTrainingReviews || n%p.retrainEvery != 0 {
		return
	}
	if err := p.Retrain(ctx); err != nil {
		p.logger.Error("automatic retrain failed", "err", err,
			slog.Int("reviews", n))
	}
}

// Retrain refits the scorer from all stored review decisions and, when
// a model repository is configured, persists the resulting snapshot.
// Reviews whose candidate record has since disappeared are skipped.
// Returns ErrNoReviews when no decision has been recorded yet.
func (p *Pipeline) Retrain(ctx context.Context) error {
	reviews, err := p.reviews.ListReviews(ctx)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return ErrNoReviews
	}

	feedback := make([]scoring.Feedback, 0, len(reviews))
	for _, review := range reviews {
		candidate, err := p.records.GetRecord(ctx, review.CandidateId)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				p.logger.Warn("review references missing candidate",
					slog.Uint64("candidate", uint64(review.CandidateId)))
				continue
			}
			return err
		}
		feedback = append(feedback, scoring.Feedback{
			Candidate: candidate,
			Decision:  review.Outcome,
		})
	}

	if err := p.scorer.RetrainWithFeedback(feedback); err != nil {
		return err
	}
	p.logger.Info("scorer retrained", slog.Int("samples", len(feedback)))

	if p.models == nil {
		return nil
	}
	snapshot, err := p.scorer.Export()
	if err != nil {
		return err
	}
	// The model is already live; losing the snapshot only costs a
	// retrain after the next restart.
	if err := p.models.SaveModel(ctx, snapshot); err != nil {
		p.logger.Error("trained model not persisted", "err", err)
	}
	return nil
}

// Bootstrap prepares the scorer at startup: restore the persisted
// model when one exists, otherwise retrain from stored review
// history. With neither available the scorer stays rule-based, which
// is not an error.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	if p.models != nil {
		snapshot, err := p.models.LoadModel(ctx)
		switch {
		case err == nil:
			if err := p.scorer.Restore(snapshot); err == nil {
				p.logger.Info("restored persisted model",
					slog.Int("samples", snapshot.Samples),
					slog.Time("trained_at", snapshot.TrainedAt))
				return nil
			}
			// Stale snapshot (e.g. dimension change): fall through
			// to retraining from reviews.
			p.logger.Warn("persisted model unusable, retraining")
		case !errors.Is(err, scoring.ErrNoSavedModel):
			return err
		}
	}

	err := p.Retrain(ctx)
	if errors.Is(err, ErrNoReviews) || errors.Is(err, scoring.ErrNoTrainingData) {
		p.logger.Info("no training history, scoring by rules")
		return nil
	}
	return err
}

// Stats is a point-in-time view over the pipeline's components.
type Stats struct {
	Discovery discovery.Stats
	Strategy  strategy.Statistics
	Trained   bool
	Records   int
	Reviews   int
}

// Stats collects current discovery, strategy and storage statistics.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	records, err := p.records.ListRecords(ctx, 0)
	if err != nil {
		return Stats{}, err
	}
	reviews, err := p.reviews.ListReviews(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Discovery: p.discovery.Stats(),
		Strategy:  p.strategy.Statistics(),
		Trained:   p.scorer.Trained(),
		Records:   len(records),
		Reviews:   len(reviews),
	}, nil
}

// Close releases discovery resources and closes the record store.
// When the review store shares a backend with the record store, one
// close covers both.
func (p *Pipeline) Close() error {
	p.discovery.Release()
	if err := p.records.Close(); err != nil {
		p.logger.Error("error closing record store", "err", err)
		return err
	}
	return nil
}
