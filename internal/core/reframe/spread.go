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
	"log/slog"
	"math"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// SpreadPadding widens the union of detected subjects on each side by this
// fraction of its own width.
const SpreadPadding = 0.2

// SpreadSamplePoints are the fractions of the frame count that are inspected.
var SpreadSamplePoints = []float64{0.25, 0.5, 0.75}

// AnalyzeFaceSpread samples three frames and decides whether a single crop
// window of the requested aspect ratio can contain every detected subject.
// Detection failures never surface as errors; the analysis falls back to
// letterboxing and carries the failure in its Error field.
func AnalyzeFaceSpread(
	ctx context.Context,
	frames ports.FrameExtractor,
	detector ports.SubjectDetector,
	video string,
	info *model.VideoInfo,
	ar model.AspectRatio,
) *model.FaceSpreadAnalysis {
	if detector == nil {
		return fallback(ctx, ports.ErrDetectorUnavailable)
	}
	cropW, _ := CropSize(ar, info.Height)

	var boxes []model.BoundingBox
	for _, p := range SpreadSamplePoints {
		at := frameTime(int(float64(info.FrameCount)*p), info.FPS)
		frame, err := frames.ExtractFrame(ctx, video, at)
		if err != nil {
			return fallback(ctx, err)
		}
		found, err := detector.Detect(ctx, frame)
		if err != nil {
			return fallback(ctx, err)
		}
		boxes = append(boxes, found...)
	}

	if len(boxes) == 0 {
		slog.InfoContext(ctx, "no subjects detected, recommending scale_pad")
		return &model.FaceSpreadAnalysis{RecommendedMode: model.CropModeScalePad}
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		minX = math.Min(minX, b.X1)
		maxX = math.Max(maxX, b.X2)
	}
	width := maxX - minX
	minX = math.Max(0, minX-width*SpreadPadding)
	maxX = math.Min(float64(info.Width), maxX+width*SpreadPadding)

	ratio := (maxX - minX) / float64(cropW)
	out := &model.FaceSpreadAnalysis{
		HasSubject:      true,
		CanCrop:         ratio <= 1.0,
		SpreadRatio:     ratio,
		RecommendedMode: model.CropModeScalePad,
	}
	if out.CanCrop {
		out.RecommendedMode = model.CropModeCrop
	}
	slog.InfoContext(ctx, "face spread analysed",
		"spread_width", maxX-minX, "crop_width", cropW, "ratio", ratio, "mode", out.RecommendedMode)
	return out
}

func fallback(ctx context.Context, err error) *model.FaceSpreadAnalysis {
	slog.WarnContext(ctx, "subject detection unavailable, defaulting to scale_pad", "error", err)
	return &model.FaceSpreadAnalysis{RecommendedMode: model.CropModeScalePad, Error: err.Error()}
}

func frameTime(index int, fps float64) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(index) / fps
}
