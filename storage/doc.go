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


// Package storage provides the storage abstraction layer for prospect.
//
// This package defines store interfaces that decouple storage
// implementation from the pipeline. Different backends (BadgerDB,
// in-memory, etc.) can be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Backend packages follow a "return interface" pattern for their
// public constructors so consumers never couple to backend specifics:
//
//	store, err := badger.NewStore(path)  // usable as storage.RecordStore
//
// Internal constructors may return concrete types since they are only
// used within the implementation package.
//
// # Serialization
//
// Records are persisted in the MUS binary format through hand-written
// serializers in this package. Each serializer implements
// mus.Serializer for its type; field order is the wire contract, so
// reordering struct fields is a breaking change for stored data.
//
// # Thread Safety
//
// All store implementations must be safe for concurrent use from
// multiple goroutines.
//
// # Context Support
//
// All store methods accept context.Context for cancellation and
// timeout support.
package storage
