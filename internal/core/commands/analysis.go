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

package commands

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/highlights"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// SceneDetection finds the visual cuts of the source. Manual jobs skip it.
type SceneDetection struct {
	jobCommand
	detector ports.SceneDetector
}

// NewSceneDetection creates the scene detection step.
//
// Inputs:
//   - name: The command name, used for spans and counters.
//   - detector: The SceneDetector that lists the visual cuts of the source.
//
// Outputs:
//   - *SceneDetection: The command, executable for analyze_only and
//     auto_generate jobs.
func NewSceneDetection(name string, detector ports.SceneDetector) *SceneDetection {
	return &SceneDetection{
		jobCommand: newJobCommand(name, model.ModeAnalyzeOnly, model.ModeAutoGenerate),
		detector:   detector,
	}
}

// Execute stores the scene change times on the job. A detector error fails
// the job.
func (c *SceneDetection) Execute(context cor.Context) {
	job := c.job(context)
	scenes, err := c.detector.DetectScenes(context.GetContext(), job.Source)
	if err != nil {
		c.Fail(context, fmt.Errorf("scene detection failed: %w", err))
		return
	}
	job.Scenes = scenes
	slog.InfoContext(context.GetContext(), "scenes detected", "job_id", job.ID, "count", len(scenes))
	c.Succeed(context, scenes)
}

// Transcription produces the timed transcript. Manual jobs only need it for
// captions.
type Transcription struct {
	jobCommand
	models ModelRegistry
	key    inference.ModelKey
}

// NewTranscription creates the transcription step.
//
// Inputs:
//   - name: The command name.
//   - models: The registry that loads the transcriber once per process.
//   - key: The transcription model to ask the registry for.
//
// Outputs:
//   - *Transcription: The command.
func NewTranscription(name string, models ModelRegistry, key inference.ModelKey) *Transcription {
	return &Transcription{jobCommand: newJobCommand(name), models: models, key: key}
}

// IsExecutable skips manual_generate jobs that do not burn captions.
func (c *Transcription) IsExecutable(context cor.Context) bool {
	if !c.jobCommand.IsExecutable(context) {
		return false
	}
	job := c.job(context)
	return job.Mode() != model.ModeManualGenerate || job.Settings().AddCaptions
}

// Execute transcribes the source and stores the segments on the job.
func (c *Transcription) Execute(context cor.Context) {
	job := c.job(context)
	transcriber, err := c.models.Transcriber(context.GetContext(), c.key)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to load transcription model %s: %w", c.key, err))
		return
	}
	transcript, err := transcriber.Transcribe(context.GetContext(), job.Source)
	if err != nil {
		c.Fail(context, fmt.Errorf("transcription failed: %w", err))
		return
	}
	job.Transcript = transcript
	slog.InfoContext(context.GetContext(), "transcribed source", "job_id", job.ID, "segments", len(transcript))
	c.Succeed(context, transcript)
}

// CandidateGeneration proposes the clip ranges to score.
type CandidateGeneration struct {
	jobCommand
}

// NewCandidateGeneration creates the candidate step for analyze_only and
// auto_generate jobs.
func NewCandidateGeneration(name string) *CandidateGeneration {
	return &CandidateGeneration{jobCommand: newJobCommand(name, model.ModeAnalyzeOnly, model.ModeAutoGenerate)}
}

// Execute applies the duration bounds of the request to the transcript.
func (c *CandidateGeneration) Execute(context cor.Context) {
	job := c.job(context)
	s := job.Settings()
	job.Candidates = highlights.GenerateCandidates(job.Info.Duration, job.Transcript, highlights.Bounds{
		Target: s.TargetDuration,
		Min:    s.MinDuration,
		Max:    s.MaxDuration,
	})
	slog.InfoContext(context.GetContext(), "generated candidates", "job_id", job.ID, "count", len(job.Candidates))
	c.Succeed(context, job.Candidates)
}

// SegmentScoring scores the candidates: the first AnalyzeLimit for
// analyze_only jobs, every candidate otherwise. Scores stay in candidate
// order.
type SegmentScoring struct {
	jobCommand
	frames  ports.FrameExtractor
	models  ModelRegistry
	key     inference.ModelKey
	samples int
}

// NewSegmentScoring creates the scoring step.
//
// Inputs:
//   - name: The command name.
//   - frames: Extracts the frames sampled for subject presence.
//   - models: The registry that loads the subject detector.
//   - key: The detection model to ask the registry for.
//   - samples: Frames sampled per candidate for subject presence.
//
// Outputs:
//   - *SegmentScoring: The command.
func NewSegmentScoring(name string, frames ports.FrameExtractor, models ModelRegistry, key inference.ModelKey, samples int) *SegmentScoring {
	return &SegmentScoring{
		jobCommand: newJobCommand(name, model.ModeAnalyzeOnly, model.ModeAutoGenerate),
		frames:     frames,
		models:     models,
		key:        key,
		samples:    samples,
	}
}

// Execute scores the candidates with the request weights. Detection
// failures fail the job.
func (c *SegmentScoring) Execute(context cor.Context) {
	job := c.job(context)
	detector, err := c.models.Detector(context.GetContext(), c.key)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to load detection model %s: %w", c.key, err))
		return
	}

	candidates := job.Candidates
	if job.Mode() == model.ModeAnalyzeOnly && len(candidates) > highlights.AnalyzeLimit {
		candidates = candidates[:highlights.AnalyzeLimit]
	}
	signals := highlights.Signals{Video: job.Source, Transcript: job.Transcript, Scenes: job.Scenes}
	scored, err := highlights.NewScorer(c.frames, detector, c.samples).
		ScoreAll(context.GetContext(), signals, candidates, job.Settings().Weights())
	if err != nil {
		c.Fail(context, err)
		return
	}
	job.Scored = scored
	c.Succeed(context, scored)
}

// ClipSelection keeps the max_clips best scored segments for rendering.
type ClipSelection struct {
	jobCommand
}

// NewClipSelection creates the top-K step of auto_generate jobs.
func NewClipSelection(name string) *ClipSelection {
	return &ClipSelection{jobCommand: newJobCommand(name, model.ModeAutoGenerate)}
}

// Execute keeps the best segments, ties in candidate order.
func (c *ClipSelection) Execute(context cor.Context) {
	job := c.job(context)
	job.Selected = highlights.SelectTop(job.Scored, job.Settings().MaxClips)
	slog.InfoContext(context.GetContext(), "selected clips", "job_id", job.ID, "count", len(job.Selected))
	c.Succeed(context, job.Selected)
}

// ManualSegments turns the caller's timestamps into unscored segments.
type ManualSegments struct {
	jobCommand
}

// NewManualSegments creates the step that replaces candidate generation and
// scoring in manual_generate jobs.
func NewManualSegments(name string) *ManualSegments {
	return &ManualSegments{jobCommand: newJobCommand(name, model.ModeManualGenerate)}
}

// Execute copies the timestamps in request order.
func (c *ManualSegments) Execute(context cor.Context) {
	job := c.job(context)
	job.Selected = make([]model.ScoredSegment, 0, len(job.Settings().ManualTimestamps))
	for _, ts := range job.Settings().ManualTimestamps {
		job.Selected = append(job.Selected, model.ScoredSegment{Candidate: model.Candidate{Start: ts.Start, End: ts.End}})
	}
	c.Succeed(context, job.Selected)
}

// AnalysisReport builds the analyze_only result. Segments are numbered in
// candidate order and listed best first.
type AnalysisReport struct {
	jobCommand
}

// NewAnalysisReport creates the report step of analyze_only jobs.
func NewAnalysisReport(name string) *AnalysisReport {
	return &AnalysisReport{jobCommand: newJobCommand(name, model.ModeAnalyzeOnly)}
}

// Execute builds the AnalyzePayload and completes the job record.
func (c *AnalysisReport) Execute(context cor.Context) {
	job := c.job(context)
	segments := make([]model.AnalyzedSegment, 0, len(job.Scored))
	for i, s := range job.Scored {
		segments = append(segments, model.NewAnalyzedSegment(i+1, s))
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].ViralityScore > segments[j].ViralityScore
	})
	payload := &model.AnalyzePayload{
		Status:           model.StatusSuccess,
		JobID:            job.ID,
		Mode:             job.Mode(),
		AnalyzedSegments: segments,
		TotalSegments:    len(segments),
		SourceDuration:   job.Info.Duration,
		Recommendation:   model.Recommendation(segments),
	}
	job.Payload = payload
	job.Record.Complete(job.Info.Duration, len(segments), nil)
	c.Succeed(context, payload)
}
