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


package storage

import (
	"context"

	"github.com/quartierlab/prospect/core"
)

// RecordStore provides operations for managing discovered candidate
// records. Implementations must be thread-safe and support concurrent
// access.
type RecordStore interface {
	// CreateRecords inserts one or more candidate records.
	// Records with ID=0 get their content-based ID assigned.
	// Sets InsertedAt if not already set.
	// Returns ErrDuplicateKey if a record with the same ID exists.
	CreateRecords(ctx context.Context, records ...*core.CandidateRecord) ([]*core.CandidateRecord, error)

	// UpdateRecords updates existing candidate records.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateRecords(ctx context.Context, records ...*core.CandidateRecord) ([]*core.CandidateRecord, error)

	// GetRecord retrieves a single candidate record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetRecord(ctx context.Context, id core.ID) (*core.CandidateRecord, error)

	// ListRecords retrieves up to limit candidate records, most
	// recently discovered first. limit <= 0 returns all records.
	ListRecords(ctx context.Context, limit int) ([]*core.CandidateRecord, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// ReviewStore provides operations for managing human review
// decisions on stored candidates.
type ReviewStore interface {
	// SaveReview persists a review decision, replacing any earlier
	// decision for the same candidate.
	SaveReview(ctx context.Context, review *core.ReviewRecord) error

	// ListReviews returns all stored review decisions, in no
	// particular order.
	ListReviews(ctx context.Context) ([]*core.ReviewRecord, error)
}
