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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quartierlab/prospect/core"
)

// Key prefixes for different data types
const (
	candidatePrefix     = "canrec"
	candidateDatePrefix = "canrecd"
	reviewPrefix        = "revrec"
	modelKey            = "qmodel:current"
)

// makeCandidateKey generates a key for a candidate record by ID.
func makeCandidateKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", candidatePrefix, id))
}

// makeCandidateDateKey generates a composite key for the
// discovered-at index. Format: prefix:timestamp:id
func makeCandidateDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := candidateDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// BigEndian so lexicographic ordering matches chronological order
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCandidateDateKey generates a partial key for range scans
// over the discovered-at index. Format: prefix:timestamp
func makePartialCandidateDateKey(timestamp time.Time) []byte {
	prefix := candidateDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeReviewKey generates a key for a review decision by the
// candidate it concerns.
func makeReviewKey(candidateID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", reviewPrefix, candidateID))
}
