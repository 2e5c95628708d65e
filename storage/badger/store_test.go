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


package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCandidate(name string, discoveredAt time.Time) *core.CandidateRecord {
	c := &core.CandidateRecord{
		Name:         name,
		Title:        core.LocalizedText{FR: name},
		Contact:      core.Contact{Website: "https://example.org/" + name},
		Source:       core.SourceRegistry,
		SourceURL:    "https://example.org/" + name,
		DiscoveredAt: discoveredAt,
	}
	c.Normalize()
	return c
}

func TestCreateAndGetRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testCandidate("Club de Judo", time.Now().UTC())
	created, err := store.CreateRecords(ctx, record)
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotZero(t, created[0].Id)
	require.False(t, created[0].InsertedAt.IsZero())

	got, err := store.GetRecord(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, record.Name, got.Name)
	assert.Equal(t, record.Contact.Website, got.Contact.Website)
	assert.Equal(t, record.Source, got.Source)
}

func TestCreateRecordRejectsDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testCandidate("Club de Judo", time.Now().UTC())
	_, err := store.CreateRecords(ctx, record)
	require.NoError(t, err)

	dup := testCandidate("Club de Judo", time.Now().UTC())
	_, err = store.CreateRecords(ctx, dup)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestGetRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRecord(context.Background(), core.ID(12345))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testCandidate("Club de Judo", time.Now().UTC())
	_, err := store.CreateRecords(ctx, record)
	require.NoError(t, err)
	insertedAt := record.InsertedAt

	record.Contact.Email = "contact@judo20.fr"
	updated, err := store.UpdateRecords(ctx, record)
	require.NoError(t, err)
	require.True(t, updated[0].UpdatedAt.After(insertedAt) || updated[0].UpdatedAt.Equal(insertedAt))

	got, err := store.GetRecord(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, "contact@judo20.fr", got.Contact.Email)
}

func TestUpdateRecordNotFound(t *testing.T) {
	store := newTestStore(t)

	missing := testCandidate("Fantôme", time.Now().UTC())
	_, err := store.UpdateRecords(context.Background(), missing)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListRecordsRecencyOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	oldest := testCandidate("Ancien", base)
	middle := testCandidate("Médian", base.Add(time.Hour))
	newest := testCandidate("Récent", base.Add(2*time.Hour))
	_, err := store.CreateRecords(ctx, oldest, middle, newest)
	require.NoError(t, err)

	top2, err := store.ListRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top2, 2)
	assert.Equal(t, "Récent", top2[0].Name)
	assert.Equal(t, "Médian", top2[1].Name)

	all, err := store.ListRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Ancien", all[2].Name)
}

func TestSaveAndListReviews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &core.ReviewRecord{
		CandidateId: core.IDFromContent("a"),
		Outcome:     core.OutcomeRejected,
	}
	require.NoError(t, store.SaveReview(ctx, first))
	require.False(t, first.ReviewedAt.IsZero())

	// A second decision for the same candidate replaces the first.
	revised := &core.ReviewRecord{
		CandidateId: core.IDFromContent("a"),
		Outcome:     core.OutcomeApproved,
		Score:       8,
		HasScore:    true,
	}
	require.NoError(t, store.SaveReview(ctx, revised))

	other := &core.ReviewRecord{
		CandidateId: core.IDFromContent("b"),
		Outcome:     core.OutcomeRejected,
	}
	require.NoError(t, store.SaveReview(ctx, other))

	reviews, err := store.ListReviews(ctx)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	byID := make(map[core.ID]*core.ReviewRecord)
	for _, r := range reviews {
		byID[r.CandidateId] = r
	}
	assert.Equal(t, core.OutcomeApproved, byID[core.IDFromContent("a")].Outcome)
	assert.Equal(t, 8.0, byID[core.IDFromContent("a")].Score)
}

func TestSaveReviewRequiresCandidateID(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveReview(context.Background(), &core.ReviewRecord{Outcome: core.OutcomeApproved})
	require.ErrorIs(t, err, storage.ErrMissingID)
}

func TestModelSnapshotPersistence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LoadModel(ctx)
	require.ErrorIs(t, err, scoring.ErrNoSavedModel)

	bad := &scoring.ModelSnapshot{Weights: []float64{1, 2}}
	require.ErrorIs(t, store.SaveModel(ctx, bad), scoring.ErrDimensionMismatch)

	snapshot := &scoring.ModelSnapshot{
		Weights:   make([]float64, core.FeatureCount),
		Bias:      5.5,
		Mins:      make([]float64, core.FeatureCount),
		Maxs:      make([]float64, core.FeatureCount),
		Samples:   12,
		TrainedAt: time.Date(2025, 3, 12, 7, 15, 0, 0, time.UTC),
	}
	snapshot.Weights[3] = 0.4
	require.NoError(t, store.SaveModel(ctx, snapshot))

	loaded, err := store.LoadModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Weights, loaded.Weights)
	assert.Equal(t, snapshot.Bias, loaded.Bias)
	assert.Equal(t, snapshot.Samples, loaded.Samples)
	assert.True(t, snapshot.TrainedAt.Equal(loaded.TrainedAt))
}
