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

package highlights

import (
	"math"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

const (
	// TargetTolerance is how far, in seconds, a transcript anchored candidate
	// may deviate from the target duration.
	TargetTolerance = 5.0
	// MinAnchoredCandidates is the count below which sliding windows are added.
	MinAnchoredCandidates = 10
)

// Bounds are the duration limits of a clip, in whole seconds.
type Bounds struct {
	Target int
	Min    int
	Max    int
}

func (b Bounds) accepts(d float64) bool {
	return d >= float64(b.Min) && d <= float64(b.Max)
}

// GenerateCandidates proposes clip ranges that start on a transcript segment
// and end on the first later segment boundary landing inside the bounds and
// within TargetTolerance of the target. Sparse transcripts are supplemented
// with sliding windows of the target length every Target/2 seconds. Ranges
// are not deduplicated.
func GenerateCandidates(duration float64, transcript []model.TranscriptSegment, b Bounds) []model.Candidate {
	var out []model.Candidate
	for i, seg := range transcript {
		start := seg.Start
		for _, next := range transcript[i:] {
			d := next.End - start
			if b.accepts(d) && math.Abs(d-float64(b.Target)) < TargetTolerance {
				out = append(out, model.Candidate{Start: start, End: next.End})
				break
			}
		}
	}
	if len(out) >= MinAnchoredCandidates {
		return out
	}

	stride := max(1, b.Target/2)
	for start := 0; start < int(duration); start += stride {
		end := math.Min(float64(start+b.Target), duration)
		if b.accepts(end - float64(start)) {
			out = append(out, model.Candidate{Start: float64(start), End: end})
		}
	}
	return out
}
