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


// Package strategy generates search directives and learns from review
// outcomes. It is exploration with memory rather than a formal bandit:
// keyword combinations that accumulate enough rejections are benched,
// sources that recently failed are demoted, and when every combination
// has been benched the memory is cleared so the search never starves.
//
// An Adaptive instance owns all of its state. Directive generation
// assumes a single writer; Record and Statistics may be called from
// other goroutines.
package strategy
