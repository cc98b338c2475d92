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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/captions"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/reframe"
	"github.com/jaycherian/gcp-go-smart-clips/internal/storage"
)

// ClipRenderer runs the finishing path for every selected segment in order:
// extract, reframe, caption, upload. The first failing segment fails the
// job; clips already uploaded are not reported.
type ClipRenderer struct {
	jobCommand
	transcoder ports.MediaTranscoder
	backends   StorageResolver
	models     ModelRegistry
	key        inference.ModelKey
	smoother   *reframe.Smoother
	stride     int
}

// NewClipRenderer creates the finishing step shared by both generate modes.
//
// Inputs:
//   - name: The command name.
//   - transcoder: Cuts, reframes and captions the clips.
//   - backends: Resolves the storage backend the clips are uploaded to.
//   - models: The registry that loads the subject detector for reframing.
//   - key: The detection model to ask the registry for.
//   - stride: Source frames between two tracked samples.
//
// Outputs:
//   - *ClipRenderer: The command.
func NewClipRenderer(
	name string,
	transcoder ports.MediaTranscoder,
	backends StorageResolver,
	models ModelRegistry,
	key inference.ModelKey,
	stride int) *ClipRenderer {

	return &ClipRenderer{
		jobCommand: newJobCommand(name, model.ModeAutoGenerate, model.ModeManualGenerate),
		transcoder: transcoder,
		backends:   backends,
		models:     models,
		key:        key,
		smoother:   reframe.DefaultSmoother(),
		stride:     stride,
	}
}

// Execute renders and uploads every selected segment. When the detection
// model cannot be loaded the clips are reframed without subject detection.
func (c *ClipRenderer) Execute(context cor.Context) {
	ctx := context.GetContext()
	job := c.job(context)

	backend, err := c.backends.Get(ctx, job.Request.Storage.Backend)
	if err != nil {
		c.Fail(context, err)
		return
	}
	// Without a detector the planner letterboxes in auto mode and centres
	// explicit crops.
	detector, err := c.models.Detector(ctx, c.key)
	if err != nil {
		slog.WarnContext(ctx, "detection model unavailable, reframing without subject detection",
			"job_id", job.ID, "model", c.key.String(), "error", err)
		detector = nil
	}
	planner := reframe.NewPlanner(c.transcoder, detector, c.smoother, c.stride)

	for i, seg := range job.Selected {
		clip, err := c.render(ctx, context.GetScratchDir(), job, planner, backend, i+1, seg)
		if err != nil {
			c.Fail(context, fmt.Errorf("clip %d [%.2f, %.2f]: %w", i+1, seg.Start, seg.End, err))
			return
		}
		job.Clips = append(job.Clips, clip)
		slog.InfoContext(ctx, "clip uploaded", "job_id", job.ID, "clip", clip.Number, "url", clip.URL)
	}
	c.Succeed(context, job.Clips)
}

func (c *ClipRenderer) render(
	ctx context.Context,
	scratch string,
	job *Job,
	planner *reframe.Planner,
	backend ports.StorageBackend,
	number int,
	seg model.ScoredSegment) (*model.ClipArtifact, error) {

	settings := job.Settings()
	segment := filepath.Join(scratch, fmt.Sprintf("segment_%d.mp4", number))
	if err := c.transcoder.ExtractSegment(ctx, job.Source, seg.Start, seg.End, segment); err != nil {
		return nil, err
	}
	info, err := c.transcoder.Probe(ctx, segment)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Plan(ctx, segment, info, settings, scratch)
	if err != nil {
		return nil, err
	}
	if plan.Analysis != nil {
		slog.InfoContext(ctx, "face spread analysed", "job_id", job.ID, "clip", number,
			"mode", plan.Mode, "spread_ratio", plan.Analysis.SpreadRatio, "error", plan.Analysis.Error)
	}

	vertical := filepath.Join(scratch, fmt.Sprintf("clip_%d_vertical.mp4", number))
	switch {
	case plan.Mode == model.CropModeScalePad:
		err = c.transcoder.ScalePad(ctx, segment, plan.Width, plan.Height, vertical)
	case plan.Static != nil:
		err = c.transcoder.CropStatic(ctx, segment, *plan.Static, plan.Width, plan.Height, vertical)
	default:
		err = c.transcoder.CropTracked(ctx, segment, plan.Commands(), plan.CropW, plan.CropH, plan.Width, plan.Height, vertical)
	}
	if err != nil {
		return nil, err
	}

	final := vertical
	if settings.AddCaptions {
		subtitles := filepath.Join(scratch, fmt.Sprintf("clip_%d.ass", number))
		ok, err := captions.WriteFile(subtitles, job.Transcript, seg.Start, seg.End, captions.StyleFromSettings(settings))
		if err != nil {
			return nil, err
		}
		if ok {
			final = filepath.Join(scratch, fmt.Sprintf("clip_%d_final.mp4", number))
			if err := c.transcoder.BurnCaptions(ctx, vertical, subtitles, final); err != nil {
				return nil, err
			}
		}
	}

	mime, err := storage.DetectMIME(final)
	if err != nil {
		return nil, err
	}
	obj, err := backend.Upload(ctx, final, job.Request.Storage.TargetFolder, mime)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return &model.ClipArtifact{
		Number:   number,
		Segment:  seg,
		Scored:   job.Mode() != model.ModeManualGenerate,
		URL:      obj.URL,
		ObjectID: obj.ID,
	}, nil
}

// GenerateReport builds the result of auto_generate and manual_generate jobs.
type GenerateReport struct {
	jobCommand
}

// NewGenerateReport creates the report step of both generate modes.
func NewGenerateReport(name string) *GenerateReport {
	return &GenerateReport{jobCommand: newJobCommand(name, model.ModeAutoGenerate, model.ModeManualGenerate)}
}

// Execute builds the GeneratePayload and completes the job record.
func (c *GenerateReport) Execute(context cor.Context) {
	job := c.job(context)
	clips := make([]model.GeneratedClip, 0, len(job.Clips))
	for _, a := range job.Clips {
		clips = append(clips, model.NewGeneratedClip(a))
	}
	payload := &model.GeneratePayload{
		Status:         model.StatusSuccess,
		JobID:          job.ID,
		Mode:           job.Mode(),
		Clips:          clips,
		TotalClips:     len(clips),
		SourceDuration: job.Info.Duration,
	}
	job.Payload = payload
	job.Record.Complete(job.Info.Duration, len(job.Scored), job.Clips)
	c.Succeed(context, payload)
}
