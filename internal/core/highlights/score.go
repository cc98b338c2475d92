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
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// Normalization ceilings of the sub-scores.
const (
	WordsPerSecondCeiling = 3.0
	SceneChangeCeiling    = 3.0
	KeywordCeiling        = 5.0
)

// DefaultPresenceSamples is the number of frames inspected per candidate.
const DefaultPresenceSamples = 10

// Scorer rates candidates. The transcript and scene cuts of one video are
// shared by every call; subject presence is measured on frames decoded on
// demand.
type Scorer struct {
	frames   ports.FrameExtractor
	detector ports.SubjectDetector
	samples  int
}

// NewScorer creates a scorer. With a nil detector every candidate has zero
// subject presence.
func NewScorer(frames ports.FrameExtractor, detector ports.SubjectDetector, samples int) *Scorer {
	if samples <= 0 {
		samples = DefaultPresenceSamples
	}
	return &Scorer{frames: frames, detector: detector, samples: samples}
}

// Signals holds the per-video inputs of the scorer.
type Signals struct {
	Video      string
	Transcript []model.TranscriptSegment
	Scenes     []float64
}

// Score computes the four sub-scores of c and their weighted sum. The total is
// not normalized; weights that sum above one give totals above one.
func (s *Scorer) Score(ctx context.Context, in Signals, c model.Candidate, w model.Weights) (model.ScoredSegment, error) {
	presence, err := s.Presence(ctx, in.Video, c)
	if err != nil {
		return model.ScoredSegment{}, err
	}
	speech := SpeechDensity(in.Transcript, c)
	scenes := CountSceneChanges(in.Scenes, c)
	keywords := MatchKeywords(containedText(in.Transcript, c))

	sceneScore := math.Min(float64(scenes)/SceneChangeCeiling, 1)
	keywordScore := math.Min(float64(len(keywords))/KeywordCeiling, 1)
	total := speech*w.SpeechEnergy +
		presence*w.FacePresence +
		sceneScore*w.SceneChange +
		keywordScore*w.CaptionKeywords

	slog.DebugContext(ctx, "scored segment",
		"start", c.Start, "end", c.End,
		"speech", speech, "presence", presence, "scenes", sceneScore, "keywords", keywordScore,
		"total", total)

	return model.ScoredSegment{
		Candidate:    c,
		Score:        total,
		Keywords:     keywords,
		SpeechEnergy: speech,
		FacePresence: presence,
		SceneChanges: scenes,
	}, nil
}

// ScoreAll scores candidates sequentially, in order. The first failure aborts.
func (s *Scorer) ScoreAll(ctx context.Context, in Signals, candidates []model.Candidate, w model.Weights) ([]model.ScoredSegment, error) {
	out := make([]model.ScoredSegment, 0, len(candidates))
	for i, c := range candidates {
		scored, err := s.Score(ctx, in, c, w)
		if err != nil {
			return nil, fmt.Errorf("failed to score candidate %d (%.2f-%.2f): %w", i, c.Start, c.End, err)
		}
		out = append(out, scored)
	}
	return out, nil
}

// Presence returns the fraction of evenly spaced frames of c on which the
// detector finds at least one subject.
func (s *Scorer) Presence(ctx context.Context, video string, c model.Candidate) (float64, error) {
	if s.detector == nil || c.Duration() <= 0 {
		return 0, nil
	}
	hits := 0
	for i := 0; i < s.samples; i++ {
		at := c.Start + float64(i)*c.Duration()/float64(s.samples)
		frame, err := s.frames.ExtractFrame(ctx, video, at)
		if err != nil {
			return 0, err
		}
		boxes, err := s.detector.Detect(ctx, frame)
		if err != nil {
			return 0, err
		}
		if len(boxes) > 0 {
			hits++
		}
	}
	return float64(hits) / float64(s.samples), nil
}

// SpeechDensity counts the words of the transcript segments fully inside c
// and normalizes words per second against WordsPerSecondCeiling.
func SpeechDensity(transcript []model.TranscriptSegment, c model.Candidate) float64 {
	d := c.Duration()
	if d <= 0 {
		return 0
	}
	words := 0
	for _, seg := range transcript {
		if seg.Within(c.Start, c.End) {
			words += len(strings.Fields(seg.Text))
		}
	}
	return math.Min(float64(words)/d/WordsPerSecondCeiling, 1)
}

// CountSceneChanges counts the cuts in [c.Start, c.End], bounds included.
func CountSceneChanges(scenes []float64, c model.Candidate) int {
	n := 0
	for _, t := range scenes {
		if t >= c.Start && t <= c.End {
			n++
		}
	}
	return n
}

func containedText(transcript []model.TranscriptSegment, c model.Candidate) string {
	var parts []string
	for _, seg := range transcript {
		if seg.Within(c.Start, c.End) {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
