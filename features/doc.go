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


// Package features turns candidate records into fixed-schema numeric
// vectors.
//
// Extract is pure and total: it never fails on missing fields and
// always returns exactly core.FeatureCount dimensions, each in [0,1],
// in a fixed, versioned order. The dimension layout is part of the
// model contract; reordering or resizing it invalidates every stored
// model.
//
// The package also owns the keyword vocabulary (kid-relevance,
// activity, adult-only, exclusion terms). The discovery layer filters
// with the same vocabulary so that what gets discovered and what
// scores well stay consistent.
package features
