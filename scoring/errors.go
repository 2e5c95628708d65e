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

import "errors"

var (
	// ErrNoTrainingData indicates Train was called with zero candidates.
	ErrNoTrainingData = errors.New("no training data")

	// ErrLabelMismatch indicates the label list length does not match
	// the candidate list.
	ErrLabelMismatch = errors.New("label count does not match candidate count")

	// ErrDimensionMismatch indicates a model snapshot whose dimensions
	// do not match the current feature schema. Such a model cannot be
	// used for inference and must be retrained.
	ErrDimensionMismatch = errors.New("model dimensions do not match feature schema")

	// ErrNoSavedModel indicates the repository holds no persisted model.
	ErrNoSavedModel = errors.New("no saved model")

	// ErrNotTrained indicates an export was requested before any
	// training completed.
	ErrNotTrained = errors.New("scorer has no trained model")
)
