// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reframe

import (
	"errors"
	"math"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavgolWeightsMatchTabulatedCoefficients(t *testing.T) {
	w, err := savgolWeights(5, 2, 0)
	require.NoError(t, err)
	want := []float64{-3, 12, 17, 12, -3}
	for i := range want {
		assert.InDelta(t, want[i]/35, w[i], 1e-12)
	}
}

func TestNewSmootherRejectsBadParameters(t *testing.T) {
	for _, tc := range [][2]int{{20, 3}, {0, 0}, {5, 5}, {5, -1}} {
		_, err := NewSmoother(tc[0], tc[1])
		assert.True(t, errors.Is(err, ErrInvalidFilter), "%v", tc)
	}
}

func TestSmoothShortInputIsIdentity(t *testing.T) {
	s := DefaultSmoother()
	for n := 1; n < DefaultWindow; n++ {
		in := make([]model.Point, n)
		for i := range in {
			in[i] = model.Point{X: (i * 37) % 101, Y: (i * 53) % 97}
		}
		assert.Equal(t, in, s.Smooth(in))
	}
}

func TestSmoothPreservesCubicTrajectories(t *testing.T) {
	s := DefaultSmoother()
	in := make([]model.Point, 60)
	for i := range in {
		in[i] = model.Point{X: i*i*i - 60*i*i + 900*i + 400, Y: 2*i + 100}
	}
	out := s.Smooth(in)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].X, out[i].X, "x at %d", i)
		assert.Equal(t, in[i].Y, out[i].Y, "y at %d", i)
	}
}

func TestSmoothReducesJitter(t *testing.T) {
	s := DefaultSmoother()
	in := make([]model.Point, 100)
	for i := range in {
		jitter := 40
		if i%2 == 0 {
			jitter = -40
		}
		in[i] = model.Point{X: 960 + jitter, Y: 540}
	}
	out := s.Smooth(in)
	require.Len(t, out, len(in))
	var inDev, outDev float64
	for i := range in {
		inDev += math.Abs(float64(in[i].X - 960))
		outDev += math.Abs(float64(out[i].X - 960))
		assert.Equal(t, 540, out[i].Y)
	}
	assert.Less(t, outDev, inDev/4)
}
