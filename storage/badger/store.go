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
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/storage"
)

// Store implements storage.RecordStore, storage.ReviewStore and
// scoring.ModelRepository on one shared BadgerDB backend. Candidate
// records, review decisions and the trained model snapshot share a
// database so a review and its candidate cannot drift apart across
// files.
type Store struct {
	backend *Backend
}

var (
	_ storage.RecordStore     = (*Store)(nil)
	_ storage.ReviewStore     = (*Store)(nil)
	_ scoring.ModelRepository = (*Store)(nil)
)

// NewStore opens a store backed by a BadgerDB database at path.
func NewStore(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &Store{backend: backend}, nil
}

// newStore wraps an already-open backend.
func newStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.backend.Close()
}

// CreateRecords inserts candidate records, assigning content-based
// IDs and insertion timestamps to records that lack them.
func (s *Store) CreateRecords(ctx context.Context, records ...*core.CandidateRecord) ([]*core.CandidateRecord, error) {
	now := time.Now().UTC()
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			record.Normalize()
			if record.DiscoveredAt.IsZero() {
				record.DiscoveredAt = now
			}
			if record.InsertedAt.IsZero() {
				record.InsertedAt = now
			}
			record.UpdatedAt = record.InsertedAt

			key := makeCandidateKey(record.Id)
			if _, err := tx.Get(key); err == nil {
				return fmt.Errorf("%w: candidate %d", storage.ErrDuplicateKey, record.Id)
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			if err := tx.Set(key, storage.MarshalCandidateRecord(record)); err != nil {
				return err
			}
			dateKey := makeCandidateDateKey(record.DiscoveredAt, record.Id)
			if err := tx.Set(dateKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// UpdateRecords updates existing candidate records.
func (s *Store) UpdateRecords(ctx context.Context, records ...*core.CandidateRecord) ([]*core.CandidateRecord, error) {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeCandidateKey(record.Id)
			old, err := readCandidate(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: candidate %d", storage.ErrNotFound, record.Id)
			}

			record.UpdatedAt = time.Now().UTC()
			if err := tx.Set(key, storage.MarshalCandidateRecord(record)); err != nil {
				return err
			}

			// Move the date index entry if the discovery time changed.
			if !old.DiscoveredAt.Equal(record.DiscoveredAt) {
				if err := tx.Delete(makeCandidateDateKey(old.DiscoveredAt, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeCandidateDateKey(record.DiscoveredAt, record.Id),
					storage.MarshalID(record.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// GetRecord retrieves a single candidate record by ID.
func (s *Store) GetRecord(ctx context.Context, id core.ID) (*core.CandidateRecord, error) {
	var result *core.CandidateRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		record, err := readCandidate(tx, makeCandidateKey(id))
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: candidate %d", storage.ErrNotFound, id)
		}
		result = record
		return nil
	}, false)
	return result, err
}

// ListRecords retrieves up to limit candidate records, most recently
// discovered first. limit <= 0 returns all records.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]*core.CandidateRecord, error) {
	var results []*core.CandidateRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible index entry, then walk backward.
		startKey := makePartialCandidateDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(candidateDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if !bytes.HasPrefix(iter.Item().Key(), prefix) {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := readCandidate(tx, makeCandidateKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// SaveReview persists a review decision, replacing any earlier
// decision for the same candidate.
func (s *Store) SaveReview(ctx context.Context, review *core.ReviewRecord) error {
	if review.CandidateId == 0 {
		return storage.ErrMissingID
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = time.Now().UTC()
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeReviewKey(review.CandidateId)
		if err := tx.Set(key, storage.MarshalReviewRecord(review)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListReviews returns all stored review decisions.
func (s *Store) ListReviews(ctx context.Context) ([]*core.ReviewRecord, error) {
	var results []*core.ReviewRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reviewPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var review *core.ReviewRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				review, err = storage.UnmarshalReviewRecord(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, review)
		}
		return nil
	}, false)
	return results, err
}

// SaveModel stores the model snapshot, replacing any previous one.
func (s *Store) SaveModel(ctx context.Context, snapshot *scoring.ModelSnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(modelKey), storage.MarshalModelSnapshot(snapshot)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadModel returns the stored model snapshot, or
// scoring.ErrNoSavedModel when none has been saved yet.
func (s *Store) LoadModel(ctx context.Context) (*scoring.ModelSnapshot, error) {
	var snapshot *scoring.ModelSnapshot
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(modelKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return scoring.ErrNoSavedModel
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			snapshot, unmarshalErr = storage.UnmarshalModelSnapshot(val)
			return unmarshalErr
		})
	}, false)
	return snapshot, err
}

// readCandidate reads a candidate by key within a transaction.
// Returns nil, nil when the key does not exist.
func readCandidate(tx *badger.Txn, key []byte) (*core.CandidateRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var record *core.CandidateRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalCandidateRecord(val)
		return unmarshalErr
	})
	return record, err
}
