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

package cloud

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

var _ ports.SceneDetector = (*ShotChangeDetector)(nil)

// ShotChangeDetector reports the start of every shot after the first as a
// scene change. Local files are staged to the staging bucket first.
type ShotChangeDetector struct {
	client        *videointelligence.Client
	storage       *storage.Client
	stagingBucket string
}

// NewShotChangeDetector creates the Video Intelligence scene detector.
//
// Inputs:
//   - client: The Video Intelligence client.
//   - gcs: Used to stage local sources.
//   - stagingBucket: Bucket receiving staged sources.
//
// Outputs:
//   - *ShotChangeDetector: The detector.
func NewShotChangeDetector(client *videointelligence.Client, gcs *storage.Client, stagingBucket string) *ShotChangeDetector {
	return &ShotChangeDetector{client: client, storage: gcs, stagingBucket: stagingBucket}
}

// DetectScenes annotates the video with shot changes. Local files are staged
// to Cloud Storage for the duration of the call.
func (s *ShotChangeDetector) DetectScenes(ctx context.Context, video string) ([]float64, error) {
	uri := video
	if !strings.HasPrefix(video, "gs://") {
		staged, cleanup, err := StageObject(ctx, s.storage, s.stagingBucket, "staging/scenes", video)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		uri = staged
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: uri,
		Features: []vipb.Feature{vipb.Feature_SHOT_CHANGE_DETECTION},
	}
	resp, err := RetryRPC(ctx, MaxRetries, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return []float64{}, nil
	}
	return ShotStarts(resp.AnnotationResults[0].ShotAnnotations), nil
}

// ShotStarts returns the sorted start offsets of every shot but the first.
func ShotStarts(shots []*vipb.VideoSegment) []float64 {
	out := make([]float64, 0, len(shots))
	for _, sh := range shots {
		if sh == nil {
			continue
		}
		out = append(out, seconds(sh.StartTimeOffset))
	}
	sort.Float64s(out)
	if len(out) > 0 {
		out = out[1:]
	}
	return out
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}
