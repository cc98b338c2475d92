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

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poly(vertices ...[2]float32) *visionpb.BoundingPoly {
	out := &visionpb.BoundingPoly{}
	for _, v := range vertices {
		out.NormalizedVertices = append(out.NormalizedVertices, &visionpb.NormalizedVertex{X: v[0], Y: v[1]})
	}
	return out
}

func TestSubjectBoxes(t *testing.T) {
	objects := []*visionpb.LocalizedObjectAnnotation{
		{Name: "Person", Score: 0.9, BoundingPoly: poly([2]float32{0.25, 0.5}, [2]float32{0.5, 0.5}, [2]float32{0.5, 1}, [2]float32{0.25, 1})},
		{Name: "person", Score: 0.3, BoundingPoly: poly([2]float32{0, 0}, [2]float32{1, 1})},
		{Name: "Chair", Score: 0.99, BoundingPoly: poly([2]float32{0, 0}, [2]float32{1, 1})},
		{Name: "Person", Score: 0.8},
		nil,
	}

	got := cloud.SubjectBoxes(objects, "Person", 0.5, 1920, 1080)
	require.Len(t, got, 1)
	assert.Equal(t, model.BoundingBox{X1: 480, Y1: 540, X2: 960, Y2: 1080}, got[0])

	assert.Len(t, cloud.SubjectBoxes(objects, "person", 0, 100, 100), 2)
}

func TestShotStarts(t *testing.T) {
	shots := []*videointelligencepb.VideoSegment{
		{StartTimeOffset: &durationpb.Duration{Seconds: 12, Nanos: 500000000}},
		{StartTimeOffset: &durationpb.Duration{}},
		{StartTimeOffset: &durationpb.Duration{Seconds: 4}},
		nil,
	}
	assert.Equal(t, []float64{4, 12.5}, cloud.ShotStarts(shots))
	assert.Empty(t, cloud.ShotStarts(nil))
}

func TestParseTranscript(t *testing.T) {
	in := `[{"start": 5.5, "end": 9, "text": "  Second LINE "},
	        {"start": 0, "end": 5.5, "text": "First line"},
	        {"start": 9, "end": 10, "text": "   "},
	        {"start": 12, "end": 11, "text": "backwards"}]`

	got, err := cloud.ParseTranscript(in)
	require.NoError(t, err)
	assert.Equal(t, []model.TranscriptSegment{
		{Start: 0, End: 5.5, Text: "first line"},
		{Start: 5.5, End: 9, Text: "second line"},
	}, got)

	_, err = cloud.ParseTranscript("not json")
	assert.Error(t, err)
}

func TestRetryRPC(t *testing.T) {
	calls := 0
	out, err := cloud.RetryRPC(context.Background(), 3, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, status.Error(codes.Unavailable, "try again")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 2, calls)

	calls = 0
	_, err = cloud.RetryRPC(context.Background(), 3, func() (int, error) {
		calls++
		return 0, status.Error(codes.InvalidArgument, "bad image")
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, calls)
}

func TestRetryRPCStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := cloud.RetryRPC(ctx, 5, func() (string, error) {
		calls++
		cancel()
		return "", status.Error(codes.ResourceExhausted, "quota")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRateLimitedDetector(t *testing.T) {
	inner := test.Always(model.BoundingBox{X1: 1, Y1: 1, X2: 2, Y2: 2})
	d := cloud.NewRateLimitedDetector(inner, 1000, 1)

	got, err := d.Detect(context.Background(), &model.Frame{})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	slow := cloud.NewRateLimitedDetector(inner, 0.001, 1)
	_, _ = slow.Detect(ctx, &model.Frame{})
	_, err = slow.Detect(ctx, &model.Frame{})
	assert.True(t, errors.Is(err, ports.ErrDetectorUnavailable))
}

func TestLoadConfig(t *testing.T) {
	config := test.GetConfig()

	assert.Equal(t, "smart-clips", config.Application.Name)
	assert.Equal(t, 2, config.Application.MaxConcurrentJobs)
	assert.False(t, config.Telemetry.Enabled)
	assert.Equal(t, "local", config.Storage.DefaultBackend)
	assert.Equal(t, "none", config.Detection.Backend)
	assert.Equal(t, 3, config.Webhook.Attempts)
	assert.Equal(t, []int{0, 2, 4}, config.Webhook.DelaysInSeconds)
	assert.Contains(t, config.TopicSubscriptions, "JobRequests")

	// Request defaults not named in the files keep their built in values.
	assert.Equal(t, model.DefaultSettings().CaptionColor, config.SmartClips.CaptionColor)
	assert.Equal(t, model.ModeAutoGenerate, config.SmartClips.Mode)
}

func TestServiceClientsFeedTheShotDetector(t *testing.T) {
	clients := &cloud.ServiceClients{}
	detector := cloud.NewShotChangeDetector(clients.VideoIntelligenceClient, clients.StorageClient, "input")
	assert.NotNil(t, detector)
	assert.NoError(t, clients.Close())
}
