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

package highlights_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/highlights"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultBounds = highlights.Bounds{Target: 30, Min: 20, Max: 45}

func TestMatchKeywords(t *testing.T) {
	assert.Equal(t, []string{"wow", "amazing"}, highlights.MatchKeywords("wow this is amazing"))
	assert.Equal(t, []string{"love", "watch", "why"}, highlights.MatchKeywords("Why do I LOVE to watch, watch, watch"))
	// Substring matching also finds words inside longer ones.
	assert.Equal(t, []string{"right"}, highlights.MatchKeywords("a bright day"))
	assert.Empty(t, highlights.MatchKeywords(""))
}

func TestCandidatesFromEmptyTranscriptUseSlidingWindows(t *testing.T) {
	got := highlights.GenerateCandidates(100, nil, defaultBounds)
	assert.Equal(t, []model.Candidate{
		{Start: 0, End: 30}, {Start: 15, End: 45}, {Start: 30, End: 60},
		{Start: 45, End: 75}, {Start: 60, End: 90}, {Start: 75, End: 100},
	}, got)
}

func TestCandidatesFirstFit(t *testing.T) {
	transcript := []model.TranscriptSegment{
		{Start: 0, End: 10}, {Start: 10, End: 22}, {Start: 22, End: 27},
		{Start: 27, End: 33}, {Start: 33, End: 40},
	}
	got := highlights.GenerateCandidates(40, transcript, defaultBounds)
	// 22 is inside the bounds but too far from the target; 27 is the first fit.
	require.NotEmpty(t, got)
	assert.Equal(t, model.Candidate{Start: 0, End: 27}, got[0])
	assert.Equal(t, model.Candidate{Start: 10, End: 40}, got[1])
}

func TestCandidatesToleranceIsStrict(t *testing.T) {
	transcript := []model.TranscriptSegment{{Start: 0, End: 25}, {Start: 25, End: 35}}
	got := highlights.GenerateCandidates(35, transcript, highlights.Bounds{Target: 30, Min: 20, Max: 45})
	// Ends exactly five seconds off target are rejected, leaving sliding windows only.
	assert.Equal(t, []model.Candidate{{Start: 0, End: 30}, {Start: 15, End: 35}}, got)
}

func TestCandidatesRespectBounds(t *testing.T) {
	var transcript []model.TranscriptSegment
	for s := 0.0; s < 600; s += 3.7 {
		transcript = append(transcript, model.TranscriptSegment{Start: s, End: s + 3.5, Text: "words here"})
	}
	bounds := []highlights.Bounds{
		{Target: 30, Min: 20, Max: 45},
		{Target: 15, Min: 10, Max: 20},
		{Target: 60, Min: 50, Max: 90},
		{Target: 1, Min: 1, Max: 1},
	}
	for _, b := range bounds {
		for _, duration := range []float64{0, 7, 33.3, 100, 600} {
			for _, c := range highlights.GenerateCandidates(duration, transcript, b) {
				d := c.Duration()
				assert.GreaterOrEqual(t, d, float64(b.Min), "%+v %v", b, c)
				assert.LessOrEqual(t, d, float64(b.Max), "%+v %v", b, c)
			}
		}
	}
}

func TestCandidatesSkipSlidingWindowsWhenDense(t *testing.T) {
	var transcript []model.TranscriptSegment
	for s := 0.0; s < 600; s += 10 {
		transcript = append(transcript, model.TranscriptSegment{Start: s, End: s + 10})
	}
	got := highlights.GenerateCandidates(600, transcript, defaultBounds)
	require.GreaterOrEqual(t, len(got), highlights.MinAnchoredCandidates)
	for _, c := range got {
		assert.Equal(t, 30.0, c.Duration())
	}
}

func TestSpeechDensityCeiling(t *testing.T) {
	transcript := []model.TranscriptSegment{{Start: 0, End: 2, Text: "one two three four five six"}}
	assert.Equal(t, 1.0, highlights.SpeechDensity(transcript, model.Candidate{Start: 0, End: 2}))
	assert.Equal(t, 0.0, highlights.SpeechDensity(transcript, model.Candidate{Start: 0.5, End: 2}))
	assert.Equal(t, 0.0, highlights.SpeechDensity(transcript, model.Candidate{Start: 1, End: 1}))
}

func TestCountSceneChangesIsInclusive(t *testing.T) {
	scenes := []float64{0, 5, 9.99, 10, 10.01}
	assert.Equal(t, 4, highlights.CountSceneChanges(scenes, model.Candidate{Start: 0, End: 10}))
}

func TestScoreScenario(t *testing.T) {
	scorer := highlights.NewScorer(&test.FakeFrames{Info: model.VideoInfo{FPS: 25}}, &test.FakeDetector{}, 10)
	signals := highlights.Signals{
		Video:      "in.mp4",
		Transcript: []model.TranscriptSegment{{Start: 0, End: 5, Text: "wow this is amazing"}},
		Scenes:     []float64{2.0},
	}
	w := model.Weights{SpeechEnergy: 0.25, FacePresence: 0.25, SceneChange: 0.25, CaptionKeywords: 0.25}
	got, err := scorer.Score(context.Background(), signals, model.Candidate{Start: 0, End: 5}, w)
	require.NoError(t, err)
	assert.InDelta(t, 0.8/3, got.SpeechEnergy, 1e-9)
	assert.Equal(t, 0.0, got.FacePresence)
	assert.Equal(t, 1, got.SceneChanges)
	assert.Equal(t, []string{"wow", "amazing"}, got.Keywords)
	assert.InDelta(t, 0.25, got.Score, 1e-9)
}

func TestScoreIsNotNormalized(t *testing.T) {
	scorer := highlights.NewScorer(&test.FakeFrames{Info: model.VideoInfo{FPS: 25}}, test.Always(model.BoundingBox{X2: 10, Y2: 10}), 4)
	signals := highlights.Signals{
		Transcript: []model.TranscriptSegment{{Start: 0, End: 1, Text: "wow amazing love hate watch why how"}},
		Scenes:     []float64{0.1, 0.2, 0.3, 0.4},
	}
	w := model.Weights{SpeechEnergy: 1, FacePresence: 1, SceneChange: 1, CaptionKeywords: 1}
	got, err := scorer.Score(context.Background(), signals, model.Candidate{Start: 0, End: 1}, w)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got.Score, 1e-9)
}

func TestPresenceSamplesEvenly(t *testing.T) {
	frames := &test.FakeFrames{Info: model.VideoInfo{FPS: 10}}
	detector := &test.FakeDetector{Boxes: func(f *model.Frame) []model.BoundingBox {
		if f.Time < 15 {
			return []model.BoundingBox{{X2: 1, Y2: 1}}
		}
		return nil
	}}
	scorer := highlights.NewScorer(frames, detector, 10)
	got, err := scorer.Presence(context.Background(), "in.mp4", model.Candidate{Start: 10, End: 20})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, frames.Times)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestPresenceErrorsAbortScoring(t *testing.T) {
	scorer := highlights.NewScorer(&test.FakeFrames{}, &test.FakeDetector{Err: test.ErrFake}, 10)
	_, err := scorer.ScoreAll(context.Background(), highlights.Signals{}, []model.Candidate{{Start: 0, End: 30}}, model.Weights{})
	assert.ErrorIs(t, err, test.ErrFake)
}

func TestPresenceWithoutDetector(t *testing.T) {
	scorer := highlights.NewScorer(&test.FakeFrames{}, nil, 10)
	got, err := scorer.Presence(context.Background(), "in.mp4", model.Candidate{Start: 0, End: 30})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func scored(scores ...float64) []model.ScoredSegment {
	out := make([]model.ScoredSegment, len(scores))
	for i, s := range scores {
		out[i] = model.ScoredSegment{Candidate: model.Candidate{Start: float64(i), End: float64(i) + 30}, Score: s}
	}
	return out
}

func TestSelectTopIsStable(t *testing.T) {
	in := scored(0.5, 0.9, 0.5, 0.7, 0.9)
	got := highlights.SelectTop(in, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 4, 3}, []float64{got[0].Start, got[1].Start, got[2].Start})
	assert.Equal(t, got, highlights.SelectTop(in, 3))
	assert.Equal(t, got, highlights.SelectTop(got, 3))
	// The input order is untouched.
	assert.Equal(t, 0.0, in[0].Start)
}

func TestSelectTopBounds(t *testing.T) {
	in := scored(0.1, 0.2)
	assert.Len(t, highlights.SelectTop(in, 10), 2)
	assert.Empty(t, highlights.SelectTop(in, 0))
	assert.Empty(t, highlights.SelectTop(nil, 3))
}
