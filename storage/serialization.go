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
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/quartierlab/prospect/core"
	"github.com/quartierlab/prospect/scoring"
)

// Hand-written MUS serializers for the stored types. Field order is
// the wire contract: reordering struct fields without migrating
// stored data is a breaking change.
var (
	// IDSer serializes IDs as varints.
	IDSer = idSer{}
	// CandidateRecordSer serializes candidate records.
	CandidateRecordSer = candidateRecordSer{}
	// ReviewRecordSer serializes review decisions.
	ReviewRecordSer = reviewRecordSer{}
	// ModelSnapshotSer serializes trained model snapshots.
	ModelSnapshotSer = modelSnapshotSer{}
)

var (
	_ mus.Serializer[core.ID]               = IDSer
	_ mus.Serializer[core.CandidateRecord]  = CandidateRecordSer
	_ mus.Serializer[core.ReviewRecord]     = ReviewRecordSer
	_ mus.Serializer[scoring.ModelSnapshot] = ModelSnapshotSer
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDSer.Size(id))
	IDSer.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDSer.Unmarshal(data)
	return id, err
}

// MarshalCandidateRecord serializes a CandidateRecord to bytes.
func MarshalCandidateRecord(record *core.CandidateRecord) []byte {
	buf := make([]byte, CandidateRecordSer.Size(*record))
	CandidateRecordSer.Marshal(*record, buf)
	return buf
}

// UnmarshalCandidateRecord deserializes a CandidateRecord from bytes.
func UnmarshalCandidateRecord(data []byte) (*core.CandidateRecord, error) {
	record, _, err := CandidateRecordSer.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalReviewRecord serializes a ReviewRecord to bytes.
func MarshalReviewRecord(review *core.ReviewRecord) []byte {
	buf := make([]byte, ReviewRecordSer.Size(*review))
	ReviewRecordSer.Marshal(*review, buf)
	return buf
}

// UnmarshalReviewRecord deserializes a ReviewRecord from bytes.
func UnmarshalReviewRecord(data []byte) (*core.ReviewRecord, error) {
	review, _, err := ReviewRecordSer.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// MarshalModelSnapshot serializes a ModelSnapshot to bytes.
func MarshalModelSnapshot(snapshot *scoring.ModelSnapshot) []byte {
	buf := make([]byte, ModelSnapshotSer.Size(*snapshot))
	ModelSnapshotSer.Marshal(*snapshot, buf)
	return buf
}

// UnmarshalModelSnapshot deserializes a ModelSnapshot from bytes.
func UnmarshalModelSnapshot(data []byte) (*scoring.ModelSnapshot, error) {
	snapshot, _, err := ModelSnapshotSer.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

type idSer struct{}

func (idSer) Marshal(id core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idSer) Size(id core.ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSer) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// timeSer serializes a time as its Unix-microsecond instant. Zone and
// monotonic components are not preserved; unmarshaled times are UTC.
type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeSer) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeSer) Skip(bs []byte) (int, error) {
	return varint.Int64.Skip(bs)
}

// stringsSer serializes a string slice as a length prefix followed by
// the elements. Empty slices unmarshal as nil.
type stringsSer struct{}

func (stringsSer) Marshal(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringsSer) Unmarshal(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]string, length)
	for i := range v {
		s, sn, serr := ord.String.Unmarshal(bs[n:])
		n += sn
		if serr != nil {
			return nil, n, serr
		}
		v[i] = s
	}
	return v, n, nil
}

func (stringsSer) Size(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func (stringsSer) Skip(bs []byte) (int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if length < 0 {
		return n, ErrNegativeLength
	}
	for i := 0; i < length; i++ {
		sn, serr := ord.String.Skip(bs[n:])
		n += sn
		if serr != nil {
			return n, serr
		}
	}
	return n, nil
}

// floatsSer serializes a float64 slice as a length prefix followed by
// the raw elements. Empty slices unmarshal as nil.
type floatsSer struct{}

func (floatsSer) Marshal(v []float64, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float64.Marshal(f, bs[n:])
	}
	return n
}

func (floatsSer) Unmarshal(bs []byte) ([]float64, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float64, length)
	for i := range v {
		f, fn, ferr := raw.Float64.Unmarshal(bs[n:])
		n += fn
		if ferr != nil {
			return nil, n, ferr
		}
		v[i] = f
	}
	return v, n, nil
}

func (floatsSer) Size(v []float64) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float64.Size(f)
	}
	return size
}

func (floatsSer) Skip(bs []byte) (int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return n, err
	}
	if length < 0 {
		return n, ErrNegativeLength
	}
	for i := 0; i < length; i++ {
		fn, ferr := raw.Float64.Skip(bs[n:])
		n += fn
		if ferr != nil {
			return n, ferr
		}
	}
	return n, nil
}

type localizedTextSer struct{}

func (localizedTextSer) Marshal(t core.LocalizedText, bs []byte) int {
	n := ord.String.Marshal(t.EN, bs)
	n += ord.String.Marshal(t.FR, bs[n:])
	return n
}

func (localizedTextSer) Unmarshal(bs []byte) (core.LocalizedText, int, error) {
	var t core.LocalizedText
	var err error
	n := 0
	if t.EN, n, err = unmarshalStringAt(bs, n); err != nil {
		return t, n, err
	}
	if t.FR, n, err = unmarshalStringAt(bs, n); err != nil {
		return t, n, err
	}
	return t, n, nil
}

func (localizedTextSer) Size(t core.LocalizedText) int {
	return ord.String.Size(t.EN) + ord.String.Size(t.FR)
}

func (localizedTextSer) Skip(bs []byte) (int, error) {
	return skipFields(bs, ord.String.Skip, ord.String.Skip)
}

type ageRangeSer struct{}

func (ageRangeSer) Marshal(a core.AgeRange, bs []byte) int {
	n := varint.Int.Marshal(a.Min, bs)
	n += varint.Int.Marshal(a.Max, bs[n:])
	n += ord.Bool.Marshal(a.HasMin, bs[n:])
	n += ord.Bool.Marshal(a.HasMax, bs[n:])
	return n
}

func (ageRangeSer) Unmarshal(bs []byte) (core.AgeRange, int, error) {
	var a core.AgeRange
	v, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return a, n, err
	}
	a.Min = v
	v, vn, err := varint.Int.Unmarshal(bs[n:])
	n += vn
	if err != nil {
		return a, n, err
	}
	a.Max = v
	b, bn, err := ord.Bool.Unmarshal(bs[n:])
	n += bn
	if err != nil {
		return a, n, err
	}
	a.HasMin = b
	b, bn, err = ord.Bool.Unmarshal(bs[n:])
	n += bn
	if err != nil {
		return a, n, err
	}
	a.HasMax = b
	return a, n, nil
}

func (ageRangeSer) Size(a core.AgeRange) int {
	return varint.Int.Size(a.Min) + varint.Int.Size(a.Max) +
		ord.Bool.Size(a.HasMin) + ord.Bool.Size(a.HasMax)
}

func (ageRangeSer) Skip(bs []byte) (int, error) {
	return skipFields(bs, varint.Int.Skip, varint.Int.Skip, ord.Bool.Skip, ord.Bool.Skip)
}

type priceSer struct{}

func (priceSer) Marshal(p core.Price, bs []byte) int {
	n := raw.Float64.Marshal(p.Amount, bs)
	n += ord.String.Marshal(p.Currency, bs[n:])
	return n
}

func (priceSer) Unmarshal(bs []byte) (core.Price, int, error) {
	var p core.Price
	amount, n, err := raw.Float64.Unmarshal(bs)
	if err != nil {
		return p, n, err
	}
	p.Amount = amount
	if p.Currency, n, err = unmarshalStringAt(bs, n); err != nil {
		return p, n, err
	}
	return p, n, nil
}

func (priceSer) Size(p core.Price) int {
	return raw.Float64.Size(p.Amount) + ord.String.Size(p.Currency)
}

func (priceSer) Skip(bs []byte) (int, error) {
	return skipFields(bs, raw.Float64.Skip, ord.String.Skip)
}

type contactSer struct{}

func (contactSer) Marshal(c core.Contact, bs []byte) int {
	n := ord.String.Marshal(c.Email, bs)
	n += ord.String.Marshal(c.Phone, bs[n:])
	n += ord.String.Marshal(c.Website, bs[n:])
	n += ord.String.Marshal(c.RegistrationLink, bs[n:])
	return n
}

func (contactSer) Unmarshal(bs []byte) (core.Contact, int, error) {
	var c core.Contact
	var err error
	n := 0
	if c.Email, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	if c.Phone, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	if c.Website, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	if c.RegistrationLink, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	return c, n, nil
}

func (contactSer) Size(c core.Contact) int {
	return ord.String.Size(c.Email) + ord.String.Size(c.Phone) +
		ord.String.Size(c.Website) + ord.String.Size(c.RegistrationLink)
}

func (contactSer) Skip(bs []byte) (int, error) {
	return skipFields(bs, ord.String.Skip, ord.String.Skip, ord.String.Skip, ord.String.Skip)
}

type availabilitySer struct{}

func (availabilitySer) Marshal(a core.Availability, bs []byte) int {
	n := ord.String.Marshal(a.Days, bs)
	n += ord.String.Marshal(a.Dates, bs[n:])
	return n
}

func (availabilitySer) Unmarshal(bs []byte) (core.Availability, int, error) {
	var a core.Availability
	var err error
	n := 0
	if a.Days, n, err = unmarshalStringAt(bs, n); err != nil {
		return a, n, err
	}
	if a.Dates, n, err = unmarshalStringAt(bs, n); err != nil {
		return a, n, err
	}
	return a, n, nil
}

func (availabilitySer) Size(a core.Availability) int {
	return ord.String.Size(a.Days) + ord.String.Size(a.Dates)
}

func (availabilitySer) Skip(bs []byte) (int, error) {
	return skipFields(bs, ord.String.Skip, ord.String.Skip)
}

type candidateRecordSer struct{}

func (candidateRecordSer) Marshal(c core.CandidateRecord, bs []byte) int {
	n := IDSer.Marshal(c.Id, bs)
	n += ord.String.Marshal(c.Name, bs[n:])
	n += localizedTextSer{}.Marshal(c.Title, bs[n:])
	n += localizedTextSer{}.Marshal(c.Description, bs[n:])
	n += ord.String.Marshal(c.ActivityType, bs[n:])
	n += stringsSer{}.Marshal(c.Categories, bs[n:])
	n += ageRangeSer{}.Marshal(c.Age, bs[n:])
	n += ord.Bool.Marshal(c.Adults, bs[n:])
	n += priceSer{}.Marshal(c.Price, bs[n:])
	n += contactSer{}.Marshal(c.Contact, bs[n:])
	n += ord.String.Marshal(c.Neighborhood, bs[n:])
	n += ord.String.Marshal(c.Address, bs[n:])
	n += availabilitySer{}.Marshal(c.Availability, bs[n:])
	n += ord.String.Marshal(c.Notes, bs[n:])
	n += ord.String.Marshal(c.ProviderId, bs[n:])
	n += ord.String.Marshal(string(c.Source), bs[n:])
	n += ord.String.Marshal(c.SourceURL, bs[n:])
	n += timeSer{}.Marshal(c.DiscoveredAt, bs[n:])
	n += timeSer{}.Marshal(c.InsertedAt, bs[n:])
	n += timeSer{}.Marshal(c.UpdatedAt, bs[n:])
	return n
}

func (candidateRecordSer) Unmarshal(bs []byte) (core.CandidateRecord, int, error) {
	var c core.CandidateRecord
	var err error
	n := 0

	id, idn, err := IDSer.Unmarshal(bs)
	n += idn
	if err != nil {
		return c, n, err
	}
	c.Id = id

	if c.Name, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	title, tn, err := localizedTextSer{}.Unmarshal(bs[n:])
	n += tn
	if err != nil {
		return c, n, err
	}
	c.Title = title
	description, dn, err := localizedTextSer{}.Unmarshal(bs[n:])
	n += dn
	if err != nil {
		return c, n, err
	}
	c.Description = description
	if c.ActivityType, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	categories, cn, err := stringsSer{}.Unmarshal(bs[n:])
	n += cn
	if err != nil {
		return c, n, err
	}
	c.Categories = categories
	age, an, err := ageRangeSer{}.Unmarshal(bs[n:])
	n += an
	if err != nil {
		return c, n, err
	}
	c.Age = age
	adults, bn, err := ord.Bool.Unmarshal(bs[n:])
	n += bn
	if err != nil {
		return c, n, err
	}
	c.Adults = adults
	price, pn, err := priceSer{}.Unmarshal(bs[n:])
	n += pn
	if err != nil {
		return c, n, err
	}
	c.Price = price
	contact, con, err := contactSer{}.Unmarshal(bs[n:])
	n += con
	if err != nil {
		return c, n, err
	}
	c.Contact = contact
	if c.Neighborhood, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	if c.Address, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	availability, avn, err := availabilitySer{}.Unmarshal(bs[n:])
	n += avn
	if err != nil {
		return c, n, err
	}
	c.Availability = availability
	if c.Notes, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	if c.ProviderId, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	source, srcn, err := ord.String.Unmarshal(bs[n:])
	n += srcn
	if err != nil {
		return c, n, err
	}
	c.Source = core.Source(source)
	if c.SourceURL, n, err = unmarshalStringAt(bs, n); err != nil {
		return c, n, err
	}
	discoveredAt, dan, err := timeSer{}.Unmarshal(bs[n:])
	n += dan
	if err != nil {
		return c, n, err
	}
	c.DiscoveredAt = discoveredAt
	insertedAt, ian, err := timeSer{}.Unmarshal(bs[n:])
	n += ian
	if err != nil {
		return c, n, err
	}
	c.InsertedAt = insertedAt
	updatedAt, uan, err := timeSer{}.Unmarshal(bs[n:])
	n += uan
	if err != nil {
		return c, n, err
	}
	c.UpdatedAt = updatedAt
	return c, n, nil
}

func (candidateRecordSer) Size(c core.CandidateRecord) int {
	return IDSer.Size(c.Id) +
		ord.String.Size(c.Name) +
		localizedTextSer{}.Size(c.Title) +
		localizedTextSer{}.Size(c.Description) +
		ord.String.Size(c.ActivityType) +
		stringsSer{}.Size(c.Categories) +
		ageRangeSer{}.Size(c.Age) +
		ord.Bool.Size(c.Adults) +
		priceSer{}.Size(c.Price) +
		contactSer{}.Size(c.Contact) +
		ord.String.Size(c.Neighborhood) +
		ord.String.Size(c.Address) +
		availabilitySer{}.Size(c.Availability) +
		ord.String.Size(c.Notes) +
		ord.String.Size(c.ProviderId) +
		ord.String.Size(string(c.Source)) +
		ord.String.Size(c.SourceURL) +
		timeSer{}.Size(c.DiscoveredAt) +
		timeSer{}.Size(c.InsertedAt) +
		timeSer{}.Size(c.UpdatedAt)
}

func (candidateRecordSer) Skip(bs []byte) (int, error) {
	return skipFields(bs,
		IDSer.Skip,
		ord.String.Skip,
		localizedTextSer{}.Skip,
		localizedTextSer{}.Skip,
		ord.String.Skip,
		stringsSer{}.Skip,
		ageRangeSer{}.Skip,
		ord.Bool.Skip,
		priceSer{}.Skip,
		contactSer{}.Skip,
		ord.String.Skip,
		ord.String.Skip,
		availabilitySer{}.Skip,
		ord.String.Skip,
		ord.String.Skip,
		ord.String.Skip,
		ord.String.Skip,
		timeSer{}.Skip,
		timeSer{}.Skip,
		timeSer{}.Skip,
	)
}

type reviewRecordSer struct{}

func (reviewRecordSer) Marshal(r core.ReviewRecord, bs []byte) int {
	n := IDSer.Marshal(r.CandidateId, bs)
	n += ord.String.Marshal(string(r.Outcome), bs[n:])
	n += raw.Float64.Marshal(r.Score, bs[n:])
	n += ord.Bool.Marshal(r.HasScore, bs[n:])
	n += timeSer{}.Marshal(r.ReviewedAt, bs[n:])
	return n
}

func (reviewRecordSer) Unmarshal(bs []byte) (core.ReviewRecord, int, error) {
	var r core.ReviewRecord
	id, n, err := IDSer.Unmarshal(bs)
	if err != nil {
		return r, n, err
	}
	r.CandidateId = id
	outcome, on, err := ord.String.Unmarshal(bs[n:])
	n += on
	if err != nil {
		return r, n, err
	}
	r.Outcome = core.Outcome(outcome)
	score, sn, err := raw.Float64.Unmarshal(bs[n:])
	n += sn
	if err != nil {
		return r, n, err
	}
	r.Score = score
	hasScore, hn, err := ord.Bool.Unmarshal(bs[n:])
	n += hn
	if err != nil {
		return r, n, err
	}
	r.HasScore = hasScore
	reviewedAt, rn, err := timeSer{}.Unmarshal(bs[n:])
	n += rn
	if err != nil {
		return r, n, err
	}
	r.ReviewedAt = reviewedAt
	return r, n, nil
}

func (reviewRecordSer) Size(r core.ReviewRecord) int {
	return IDSer.Size(r.CandidateId) +
		ord.String.Size(string(r.Outcome)) +
		raw.Float64.Size(r.Score) +
		ord.Bool.Size(r.HasScore) +
		timeSer{}.Size(r.ReviewedAt)
}

func (reviewRecordSer) Skip(bs []byte) (int, error) {
	return skipFields(bs,
		IDSer.Skip, ord.String.Skip, raw.Float64.Skip, ord.Bool.Skip, timeSer{}.Skip)
}

type modelSnapshotSer struct{}

func (modelSnapshotSer) Marshal(s scoring.ModelSnapshot, bs []byte) int {
	n := floatsSer{}.Marshal(s.Weights, bs)
	n += raw.Float64.Marshal(s.Bias, bs[n:])
	n += floatsSer{}.Marshal(s.Mins, bs[n:])
	n += floatsSer{}.Marshal(s.Maxs, bs[n:])
	n += varint.Int.Marshal(s.Samples, bs[n:])
	n += timeSer{}.Marshal(s.TrainedAt, bs[n:])
	return n
}

func (modelSnapshotSer) Unmarshal(bs []byte) (scoring.ModelSnapshot, int, error) {
	var s scoring.ModelSnapshot
	weights, n, err := floatsSer{}.Unmarshal(bs)
	if err != nil {
		return s, n, err
	}
	s.Weights = weights
	bias, bn, err := raw.Float64.Unmarshal(bs[n:])
	n += bn
	if err != nil {
		return s, n, err
	}
	s.Bias = bias
	mins, mn, err := floatsSer{}.Unmarshal(bs[n:])
	n += mn
	if err != nil {
		return s, n, err
	}
	s.Mins = mins
	maxs, xn, err := floatsSer{}.Unmarshal(bs[n:])
	n += xn
	if err != nil {
		return s, n, err
	}
	s.Maxs = maxs
	samples, sn, err := varint.Int.Unmarshal(bs[n:])
	n += sn
	if err != nil {
		return s, n, err
	}
	s.Samples = samples
	trainedAt, tn, err := timeSer{}.Unmarshal(bs[n:])
	n += tn
	if err != nil {
		return s, n, err
	}
	s.TrainedAt = trainedAt
	return s, n, nil
}

func (modelSnapshotSer) Size(s scoring.ModelSnapshot) int {
	return floatsSer{}.Size(s.Weights) +
		raw.Float64.Size(s.Bias) +
		floatsSer{}.Size(s.Mins) +
		floatsSer{}.Size(s.Maxs) +
		varint.Int.Size(s.Samples) +
		timeSer{}.Size(s.TrainedAt)
}

func (modelSnapshotSer) Skip(bs []byte) (int, error) {
	return skipFields(bs,
		floatsSer{}.Skip, raw.Float64.Skip, floatsSer{}.Skip,
		floatsSer{}.Skip, varint.Int.Skip, timeSer{}.Skip)
}

// unmarshalStringAt reads one string at offset n, returning the value
// and the new offset.
func unmarshalStringAt(bs []byte, n int) (string, int, error) {
	s, sn, err := ord.String.Unmarshal(bs[n:])
	return s, n + sn, err
}

// skipFields applies the field skippers in sequence.
func skipFields(bs []byte, skips ...func([]byte) (int, error)) (int, error) {
	n := 0
	for _, skip := range skips {
		sn, err := skip(bs[n:])
		n += sn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
