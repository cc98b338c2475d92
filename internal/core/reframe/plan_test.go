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

package reframe_test

import (
	"context"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/reframe"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	landscape = model.VideoInfo{Width: 1920, Height: 1080, FPS: 25, FrameCount: 2500, Duration: 100}
	vertical  = model.AspectRatio{Width: 9, Height: 16}
)

func TestFaceSpreadWithoutDetections(t *testing.T) {
	for _, ar := range []model.AspectRatio{vertical, {Width: 1, Height: 1}, {Width: 4, Height: 5}} {
		frames := &test.FakeFrames{Info: landscape}
		got := reframe.AnalyzeFaceSpread(context.Background(), frames, &test.FakeDetector{}, "in.mp4", &landscape, ar)
		assert.Equal(t, &model.FaceSpreadAnalysis{HasSubject: false, CanCrop: false, RecommendedMode: model.CropModeScalePad}, got)
	}
}

func TestFaceSpreadSamplesQuartiles(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape}
	detector := &test.FakeDetector{}
	reframe.AnalyzeFaceSpread(context.Background(), frames, detector, "in.mp4", &landscape, vertical)
	assert.Equal(t, []float64{25, 50, 75}, frames.Times)
	assert.Equal(t, 3, detector.Calls)
}

func TestFaceSpreadSingleSubjectCanCrop(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape}
	detector := test.Always(model.BoundingBox{X1: 800, Y1: 200, X2: 1000, Y2: 900})
	got := reframe.AnalyzeFaceSpread(context.Background(), frames, detector, "in.mp4", &landscape, vertical)
	// 200px padded by 40px each side against a 607px window.
	assert.True(t, got.HasSubject)
	assert.True(t, got.CanCrop)
	assert.InDelta(t, 280.0/607.0, got.SpreadRatio, 1e-9)
	assert.Equal(t, model.CropModeCrop, got.RecommendedMode)
}

func TestFaceSpreadDistantSubjectsLetterbox(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape}
	detector := test.Always(
		model.BoundingBox{X1: 100, Y1: 200, X2: 300, Y2: 900},
		model.BoundingBox{X1: 1500, Y1: 200, X2: 1700, Y2: 900},
	)
	got := reframe.AnalyzeFaceSpread(context.Background(), frames, detector, "in.mp4", &landscape, vertical)
	assert.True(t, got.HasSubject)
	assert.False(t, got.CanCrop)
	assert.Greater(t, got.SpreadRatio, 1.0)
	assert.Equal(t, model.CropModeScalePad, got.RecommendedMode)
}

func TestFaceSpreadPaddingIsClampedToFrame(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape}
	detector := test.Always(model.BoundingBox{X1: 0, Y1: 0, X2: 500, Y2: 900})
	got := reframe.AnalyzeFaceSpread(context.Background(), frames, detector, "in.mp4", &landscape, vertical)
	assert.InDelta(t, 600.0/607.0, got.SpreadRatio, 1e-9)
	assert.True(t, got.CanCrop)
}

func TestFaceSpreadFailsSoft(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape}
	got := reframe.AnalyzeFaceSpread(context.Background(), frames, &test.FakeDetector{Err: test.ErrFake}, "in.mp4", &landscape, vertical)
	assert.Equal(t, model.CropModeScalePad, got.RecommendedMode)
	assert.False(t, got.CanCrop)
	assert.NotEmpty(t, got.Error)

	got = reframe.AnalyzeFaceSpread(context.Background(), frames, nil, "in.mp4", &landscape, vertical)
	assert.Equal(t, model.CropModeScalePad, got.RecommendedMode)
	assert.NotEmpty(t, got.Error)

	broken := &test.FakeFrames{Info: landscape, Err: test.ErrFake}
	got = reframe.AnalyzeFaceSpread(context.Background(), broken, test.Always(), "in.mp4", &landscape, vertical)
	assert.Equal(t, model.CropModeScalePad, got.RecommendedMode)
}

func settings(mode model.CropMode, tracking bool) model.Settings {
	s := model.DefaultSettings()
	s.CropMode = mode
	s.ApplyFaceTracking = tracking
	return s
}

func TestPlanExplicitScalePadSkipsDetection(t *testing.T) {
	detector := test.Always(model.BoundingBox{X1: 900, X2: 1000, Y2: 100})
	p := reframe.NewPlanner(&test.FakeFrames{Info: landscape}, detector, nil, 1)
	plan, err := p.Plan(context.Background(), "in.mp4", &landscape, settings(model.CropModeScalePad, true), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, model.CropModeScalePad, plan.Mode)
	assert.Equal(t, 1080, plan.Width)
	assert.Equal(t, 1920, plan.Height)
	assert.Nil(t, plan.Analysis)
	assert.Zero(t, detector.Calls)
}

func TestPlanAutoFollowsFaceSpread(t *testing.T) {
	p := reframe.NewPlanner(&test.FakeFrames{Info: landscape}, &test.FakeDetector{}, nil, 1)
	plan, err := p.Plan(context.Background(), "in.mp4", &landscape, settings(model.CropModeAuto, true), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, model.CropModeScalePad, plan.Mode)
	require.NotNil(t, plan.Analysis)
	assert.False(t, plan.Analysis.HasSubject)
}

func TestPlanStaticCropWithoutTracking(t *testing.T) {
	p := reframe.NewPlanner(&test.FakeFrames{Info: landscape}, test.Always(), nil, 1)
	plan, err := p.Plan(context.Background(), "in.mp4", &landscape, settings(model.CropModeCrop, false), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, model.CropModeCrop, plan.Mode)
	require.NotNil(t, plan.Static)
	assert.Equal(t, model.CropWindow{X: 657, Y: 0, Width: 607, Height: 1080}, *plan.Static)
	assert.Empty(t, plan.Windows)
}

func TestPlanPortraitSourceKeepsAspectRatio(t *testing.T) {
	portrait := model.VideoInfo{Width: 1080, Height: 2400, FPS: 30, FrameCount: 300, Duration: 10}
	p := reframe.NewPlanner(&test.FakeFrames{Info: portrait}, test.Always(), nil, 1)
	plan, err := p.Plan(context.Background(), "in.mp4", &portrait, settings(model.CropModeCrop, false), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, plan.Static)
	assert.Equal(t, model.CropWindow{X: 0, Y: 240, Width: 1080, Height: 1920}, *plan.Static)
	assert.Equal(t, plan.Width*plan.CropH, plan.Height*plan.CropW)
}

func TestPlanTrackedCrop(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape, Count: 30}
	detector := &test.FakeDetector{Boxes: func(f *model.Frame) []model.BoundingBox {
		if f.Index < 10 {
			return nil
		}
		return []model.BoundingBox{{X1: 1700, Y1: 300, X2: 1900, Y2: 800}}
	}}
	scratch := t.TempDir()
	p := reframe.NewPlanner(frames, detector, nil, 2)
	plan, err := p.Plan(context.Background(), "in.mp4", &landscape, settings(model.CropModeCrop, true), scratch)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, frames.Strides)
	require.Len(t, plan.Windows, 30)
	require.Len(t, plan.Times, 30)
	for _, w := range plan.Windows {
		assert.GreaterOrEqual(t, w.X, 0)
		assert.LessOrEqual(t, w.X+w.Width, landscape.Width)
		assert.Equal(t, 607, w.Width)
	}
	// Late frames hug the right edge where the subject is.
	assert.Equal(t, landscape.Width-607, plan.Windows[29].X)
	assert.Contains(t, plan.Commands(), "[enter] crop x ")

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTrackBackfillsMissingDetections(t *testing.T) {
	frames := &test.FakeFrames{Info: landscape, Count: 5}
	detector := &test.FakeDetector{Boxes: func(f *model.Frame) []model.BoundingBox {
		if f.Index == 2 {
			return []model.BoundingBox{{X1: 100, Y1: 100, X2: 300, Y2: 300}}
		}
		return nil
	}}
	p := reframe.NewPlanner(frames, detector, nil, 1)
	centers, times, err := p.Track(context.Background(), "in.mp4", &landscape, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []model.Point{
		{X: 960, Y: 540}, {X: 960, Y: 540}, {X: 200, Y: 200}, {X: 200, Y: 200}, {X: 200, Y: 200},
	}, centers)
	assert.Equal(t, []float64{0, 0.04, 0.08, 0.12, 0.16}, times)
}

func TestPlanTrackingErrorAborts(t *testing.T) {
	p := reframe.NewPlanner(&test.FakeFrames{Info: landscape, Count: 3}, &test.FakeDetector{Err: test.ErrFake}, nil, 1)
	_, err := p.Plan(context.Background(), "in.mp4", &landscape, settings(model.CropModeCrop, true), t.TempDir())
	assert.ErrorIs(t, err, test.ErrFake)
}

func TestPlanRejectsBadAspectRatio(t *testing.T) {
	s := settings(model.CropModeCrop, false)
	s.AspectRatio = "vertical"
	p := reframe.NewPlanner(&test.FakeFrames{Info: landscape}, nil, nil, 1)
	_, err := p.Plan(context.Background(), "in.mp4", &landscape, s, t.TempDir())
	assert.ErrorIs(t, err, model.ErrUnsupportedAspectRatio)
}
