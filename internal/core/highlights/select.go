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
	"sort"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// AnalyzeLimit is the number of candidates scored in analyze-only mode.
const AnalyzeLimit = 20

// SortByScore returns a copy of segments ordered by descending score. Equal
// scores keep their input order.
func SortByScore(segments []model.ScoredSegment) []model.ScoredSegment {
	out := make([]model.ScoredSegment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// SelectTop returns the k best segments. Overlapping ranges may both be kept.
func SelectTop(segments []model.ScoredSegment, k int) []model.ScoredSegment {
	sorted := SortByScore(segments)
	if k < 0 {
		k = 0
	}
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}
