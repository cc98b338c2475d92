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

// Package reframe turns horizontal footage into vertical footage. It holds
// the trajectory smoother, the crop window geometry and the face-spread
// heuristic that decides between cropping and letterboxing.
package reframe

import (
	"errors"
	"fmt"
	"math"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

const (
	DefaultWindow = 21
	DefaultOrder  = 3
)

var ErrInvalidFilter = errors.New("invalid smoothing filter")

// Smoother is a Savitzky-Golay filter applied independently to the x and y
// axes of a trajectory. Points closer than half a window to either end are
// evaluated on the polynomial fitted to the first or last full window.
type Smoother struct {
	window  int
	order   int
	weights [][]float64 // weights[k] evaluates the fit at offset k-window/2.
}

// NewSmoother builds a filter for an odd window strictly larger than order.
func NewSmoother(window, order int) (*Smoother, error) {
	if window < 1 || window%2 == 0 || order < 0 || order >= window {
		return nil, fmt.Errorf("%w: window=%d order=%d", ErrInvalidFilter, window, order)
	}
	half := window / 2
	weights := make([][]float64, window)
	for k := range weights {
		w, err := savgolWeights(window, order, float64(k-half))
		if err != nil {
			return nil, err
		}
		weights[k] = w
	}
	return &Smoother{window: window, order: order, weights: weights}, nil
}

// DefaultSmoother returns the 21 sample, third order filter.
func DefaultSmoother() *Smoother {
	s, err := NewSmoother(DefaultWindow, DefaultOrder)
	if err != nil {
		panic(err)
	}
	return s
}

// Window is the number of samples in each polynomial fit.
func (s *Smoother) Window() int { return s.window }

// Smooth returns a smoothed copy of centers with the same length and order.
// Trajectories shorter than the window are returned unchanged.
func (s *Smoother) Smooth(centers []model.Point) []model.Point {
	out := make([]model.Point, len(centers))
	if len(centers) < s.window {
		copy(out, centers)
		return out
	}
	xs := make([]float64, len(centers))
	ys := make([]float64, len(centers))
	for i, c := range centers {
		xs[i] = float64(c.X)
		ys[i] = float64(c.Y)
	}
	xs = s.filter(xs)
	ys = s.filter(ys)
	for i := range out {
		out[i] = model.Point{X: int(math.Round(xs[i])), Y: int(math.Round(ys[i]))}
	}
	return out
}

func (s *Smoother) filter(v []float64) []float64 {
	n := len(v)
	half := s.window / 2
	out := make([]float64, n)

	center := s.weights[half]
	for i := half; i < n-half; i++ {
		out[i] = dot(center, v[i-half:i+half+1])
	}
	head := v[:s.window]
	for i := 0; i < half; i++ {
		out[i] = dot(s.weights[i], head)
	}
	tail := v[n-s.window:]
	for i := n - half; i < n; i++ {
		out[i] = dot(s.weights[i-n+s.window], tail)
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// savgolWeights returns the weights that evaluate, at offset pos from the
// window center, the least-squares polynomial of the given order fitted over
// the window. With A[i][k] = z_i^k the weights are p^T (A^T A)^-1 A^T where
// p = [1, pos, pos^2, ...].
func savgolWeights(window, order int, pos float64) ([]float64, error) {
	half := window / 2
	n := order + 1

	ata := make([][]float64, n)
	for r := range ata {
		ata[r] = make([]float64, n)
	}
	for i := -half; i <= half; i++ {
		z := float64(i)
		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				ata[r][c] += math.Pow(z, float64(r+c))
			}
		}
	}
	p := make([]float64, n)
	for k := range p {
		p[k] = math.Pow(pos, float64(k))
	}
	b, err := solve(ata, p)
	if err != nil {
		return nil, err
	}

	w := make([]float64, window)
	for i := -half; i <= half; i++ {
		z := float64(i)
		var sum float64
		for k := 0; k < n; k++ {
			sum += b[k] * math.Pow(z, float64(k))
		}
		w[i+half] = sum
	}
	return w, nil
}

// solve performs Gaussian elimination with partial pivoting on a copy of m.
func solve(m [][]float64, rhs []float64) ([]float64, error) {
	n := len(rhs)
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n+1)
		copy(a[i], m[i])
		a[i][n] = rhs[i]
	}
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("%w: singular normal equations", ErrInvalidFilter)
		}
		a[col], a[pivot] = a[pivot], a[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= n; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := a[r][n]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}
