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

import "context"

// ModelRepository persists trained model snapshots so a scorer can
// resume in the trained phase across process restarts.
type ModelRepository interface {
	// SaveModel stores the snapshot, replacing any previous one.
	SaveModel(ctx context.Context, snapshot *ModelSnapshot) error
	// LoadModel returns the stored snapshot, or ErrNoSavedModel when
	// none has been saved yet.
	LoadModel(ctx context.Context) (*ModelSnapshot, error)
}
