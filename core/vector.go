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


package core

// FeatureCount is the fixed dimensionality of the feature schema.
// Changing the set or order of features is a breaking change that
// requires retraining any stored model.
const FeatureCount = 64

// FeatureVector is a fixed-length ordered feature representation of a
// candidate. Each dimension's meaning is fixed by position and every
// value lies in [0,1].
type FeatureVector [FeatureCount]float64

// Slice returns dimensions [lo,hi) as a plain slice.
func (v *FeatureVector) Slice(lo, hi int) []float64 {
	return v[lo:hi]
}
