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


// Package scoring grades candidate organizations on a 0-10 scale.
//
// A Scorer has two lifecycle phases. Untrained, it scores with a
// deterministic rule schedule (relevance, completeness, authority,
// geography, contact quality). Once Train has run, scores come from a
// regression model fitted to min-max normalized feature vectors; the
// rule schedule remains the fallback if inference fails.
//
// Both paths report the same interpretable category breakdown,
// computed through one code path, so review tooling sees numerically
// consistent categories regardless of the scoring method.
//
// Retraining is always from scratch on the full corpus: the
// feature/label relationship drifts as new activity types appear, so
// no incremental update is attempted. Concurrent Score calls are safe;
// concurrent Train calls are collapsed to one (the loser is a logged
// no-op).
package scoring
