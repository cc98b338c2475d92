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
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// Plan is the resolved reframing decision for one clip.
type Plan struct {
	Mode     model.CropMode // Either CropModeCrop or CropModeScalePad.
	Width    int            // Output width.
	Height   int            // Output height.
	CropW    int
	CropH    int
	Static   *model.CropWindow // Set for crops without tracking.
	Windows  []model.CropWindow
	Times    []float64
	Analysis *model.FaceSpreadAnalysis // Set when the mode was chosen automatically.
}

// Commands renders the tracked windows as an ffmpeg sendcmd script.
func (p *Plan) Commands() string {
	return SendCommands(p.Windows, p.Times)
}

// Planner chooses between cropping and letterboxing and, for tracked crops,
// computes the per-frame windows.
type Planner struct {
	frames   ports.FrameExtractor
	detector ports.SubjectDetector
	smoother *Smoother
	stride   int
}

// NewPlanner creates a planner. A nil detector disables both the face spread
// heuristic and tracking; stride is the number of source frames between two
// tracked samples.
func NewPlanner(frames ports.FrameExtractor, detector ports.SubjectDetector, smoother *Smoother, stride int) *Planner {
	if smoother == nil {
		smoother = DefaultSmoother()
	}
	return &Planner{frames: frames, detector: detector, smoother: smoother, stride: max(1, stride)}
}

// Plan resolves the crop policy for a clip.
func (p *Planner) Plan(ctx context.Context, video string, info *model.VideoInfo, settings model.Settings, scratch string) (*Plan, error) {
	ar, err := model.ParseAspectRatio(settings.AspectRatio)
	if err != nil {
		return nil, err
	}
	out := &Plan{}
	out.Width, out.Height = TargetDimensions(ar)

	switch settings.CropMode {
	case model.CropModeAuto:
		out.Analysis = AnalyzeFaceSpread(ctx, p.frames, p.detector, video, info, ar)
		out.Mode = out.Analysis.RecommendedMode
	case model.CropModeCrop, model.CropModeScalePad:
		out.Mode = settings.CropMode
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownCropMode, settings.CropMode)
	}
	if out.Mode == model.CropModeScalePad {
		return out, nil
	}

	out.CropW, out.CropH = FitCropSize(ar, info.Width, info.Height)

	if !settings.ApplyFaceTracking || p.detector == nil {
		w := CenterWindow(info.Width, info.Height, out.CropW, out.CropH)
		out.Static = &w
		return out, nil
	}

	centers, times, err := p.Track(ctx, video, info, scratch)
	if err != nil {
		return nil, err
	}
	out.Windows = GenerateCropWindows(p.smoother.Smooth(centers), info.Width, info.Height, out.CropW, out.CropH)
	out.Times = times
	return out, nil
}

// Track detects the subject on every sampled frame and returns one center per
// sample. Frames without a detection reuse the previous center, or the frame
// center when nothing has been seen yet.
func (p *Planner) Track(ctx context.Context, video string, info *model.VideoInfo, scratch string) ([]model.Point, []float64, error) {
	dir, err := os.MkdirTemp(scratch, "track-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracking directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.WarnContext(ctx, "failed to remove tracking frames", "dir", dir, "error", err)
		}
	}()

	frames, err := p.frames.ExtractFrames(ctx, video, p.stride, dir)
	if err != nil {
		return nil, nil, err
	}

	centers := make([]model.Point, 0, len(frames))
	times := make([]float64, 0, len(frames))
	var prev *model.Point
	for _, f := range frames {
		boxes, err := p.detector.Detect(ctx, f)
		if err != nil {
			return nil, nil, fmt.Errorf("subject detection failed on frame %d: %w", f.Index, err)
		}
		var c model.Point
		switch {
		case len(boxes) > 0:
			c = boxes[0].Center()
			prev = &c
		case prev != nil:
			c = *prev
		default:
			w, h := f.Width, f.Height
			if w == 0 || h == 0 {
				w, h = info.Width, info.Height
			}
			c = model.Point{X: w / 2, Y: h / 2}
		}
		centers = append(centers, c)
		times = append(times, f.Time)
	}
	slog.InfoContext(ctx, "tracked subject", "frames", len(frames), "stride", p.stride)
	return centers, times, nil
}
