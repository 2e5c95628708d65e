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

import (
	"fmt"
	"time"

	"github.com/quartierlab/prospect/core"
)

// ModelSnapshot is the persistable form of a trained model: the
// regression parameters plus the per-dimension normalization bounds
// captured from the training batch. A snapshot is only valid against
// the feature schema it was trained on.
type ModelSnapshot struct {
	Weights   []float64
	Bias      float64
	Mins      []float64
	Maxs      []float64
	Samples   int
	TrainedAt time.Time
}

// Validate checks the snapshot against the current feature schema.
func (s *ModelSnapshot) Validate() error {
	if len(s.Weights) != core.FeatureCount ||
		len(s.Mins) != core.FeatureCount ||
		len(s.Maxs) != core.FeatureCount {
		return fmt.Errorf("%w: got %d weights, want %d",
			ErrDimensionMismatch, len(s.Weights), core.FeatureCount)
	}
	return nil
}

// linearModel is a ridge-regularized linear regressor fitted by batch
// gradient descent. Inputs are min-max normalized per dimension with
// bounds captured at training time.
type linearModel struct {
	weights [core.FeatureCount]float64
	bias    float64
	mins    [core.FeatureCount]float64
	maxs    [core.FeatureCount]float64
	samples int
	trained time.Time
}

const (
	trainEpochs = 300
	baseRate    = 1.0
	ridgeLambda = 0.001
)

// fitLinearModel trains a model on the given vectors and labels.
// Normalization bounds are computed from the batch and retained for
// inference. Dimensions constant across the batch normalize to 0.
func fitLinearModel(vectors []core.FeatureVector, labels []float64) (*linearModel, error) {
	if len(vectors) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(vectors) != len(labels) {
		return nil, ErrLabelMismatch
	}

	m := &linearModel{
		samples: len(vectors),
		trained: time.Now().UTC(),
	}

	for d := 0; d < core.FeatureCount; d++ {
		m.mins[d] = vectors[0][d]
		m.maxs[d] = vectors[0][d]
	}
	for _, v := range vectors {
		for d := 0; d < core.FeatureCount; d++ {
			if v[d] < m.mins[d] {
				m.mins[d] = v[d]
			}
			if v[d] > m.maxs[d] {
				m.maxs[d] = v[d]
			}
		}
	}

	normalized := make([]core.FeatureVector, len(vectors))
	active := 0
	for d := 0; d < core.FeatureCount; d++ {
		if m.maxs[d] > m.mins[d] {
			active++
		}
	}
	for i, v := range vectors {
		normalized[i] = m.normalize(v)
	}

	// Start from the label mean so the intercept is already right for
	// a homogeneous batch; descent then only has to fit the residual
	// structure. The step size shrinks with the number of varying
	// dimensions to keep the iteration contractive.
	n := float64(len(normalized))
	for _, label := range labels {
		m.bias += label / n
	}
	rate := baseRate / float64(active+1)

	for epoch := 0; epoch < trainEpochs; epoch++ {
		var gradBias float64
		var gradW [core.FeatureCount]float64

		for i, x := range normalized {
			residual := m.predictNormalized(x) - labels[i]
			gradBias += residual
			for d := 0; d < core.FeatureCount; d++ {
				gradW[d] += residual * x[d]
			}
		}

		m.bias -= rate * gradBias / n
		for d := 0; d < core.FeatureCount; d++ {
			m.weights[d] -= rate * (gradW[d]/n + ridgeLambda*m.weights[d])
		}
	}

	return m, nil
}

// normalize applies the stored min-max bounds to a raw vector.
func (m *linearModel) normalize(v core.FeatureVector) core.FeatureVector {
	var out core.FeatureVector
	for d := 0; d < core.FeatureCount; d++ {
		span := m.maxs[d] - m.mins[d]
		if span > 0 {
			out[d] = (v[d] - m.mins[d]) / span
		}
	}
	return out
}

func (m *linearModel) predictNormalized(x core.FeatureVector) float64 {
	y := m.bias
	for d := 0; d < core.FeatureCount; d++ {
		y += m.weights[d] * x[d]
	}
	return y
}

// predict scores a raw feature vector, clamped to [0,10].
func (m *linearModel) predict(v core.FeatureVector) float64 {
	y := m.predictNormalized(m.normalize(v))
	if y < 0 {
		return 0
	}
	if y > 10 {
		return 10
	}
	return y
}

// snapshot exports the model for persistence.
func (m *linearModel) snapshot() *ModelSnapshot {
	s := &ModelSnapshot{
		Weights:   append([]float64(nil), m.weights[:]...),
		Bias:      m.bias,
		Mins:      append([]float64(nil), m.mins[:]...),
		Maxs:      append([]float64(nil), m.maxs[:]...),
		Samples:   m.samples,
		TrainedAt: m.trained,
	}
	return s
}

// modelFromSnapshot rebuilds a model from its persisted form.
func modelFromSnapshot(s *ModelSnapshot) (*linearModel, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m := &linearModel{
		bias:    s.Bias,
		samples: s.Samples,
		trained: s.TrainedAt,
	}
	copy(m.weights[:], s.Weights)
	copy(m.mins[:], s.Mins)
	copy(m.maxs[:], s.Maxs)
	return m, nil
}
