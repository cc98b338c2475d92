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
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

const (
	DefaultSubjectLabel = "Person"
	visionMaxResults    = 20
)

var (
	_ ports.SubjectDetector = (*VisionSubjectDetector)(nil)
	_ ports.SubjectDetector = (*RateLimitedDetector)(nil)
)

// VisionSubjectDetector finds subjects with Cloud Vision object localization.
type VisionSubjectDetector struct {
	client   *vision.ImageAnnotatorClient
	label    string
	minScore float32
}

// NewVisionSubjectDetector creates a detector for the label and score set in
// the [detection] section.
func NewVisionSubjectDetector(client *vision.ImageAnnotatorClient, config Detection) *VisionSubjectDetector {
	label := config.Label
	if label == "" {
		label = DefaultSubjectLabel
	}
	return &VisionSubjectDetector{client: client, label: label, minScore: config.MinScore}
}

// Detect localizes objects on the frame and returns the matching boxes in
// pixels. Transient errors are retried.
func (v *VisionSubjectDetector) Detect(ctx context.Context, frame *model.Frame) ([]model.BoundingBox, error) {
	img, err := frame.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d: %w", frame.Index, err)
	}
	width, height := frame.Width, frame.Height
	if width <= 0 || height <= 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", frame.Index, err)
		}
		width, height = cfg.Width, cfg.Height
	}

	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image:    &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: visionMaxResults}},
	}}}
	resp, err := RetryRPC(ctx, MaxRetries, func() (*visionpb.BatchAnnotateImagesResponse, error) {
		return v.client.BatchAnnotateImages(ctx, req)
	})
	if err != nil {
		return nil, classifyVisionError(err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	return SubjectBoxes(r0.LocalizedObjectAnnotations, v.label, v.minScore, width, height), nil
}

func classifyVisionError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %w", ports.ErrDetectorUnavailable, err)
	}
	return fmt.Errorf("vision BatchAnnotateImages: %w", err)
}

// SubjectBoxes keeps the annotations named label with at least minScore and
// scales their normalized polygons to pixel boxes.
func SubjectBoxes(objects []*visionpb.LocalizedObjectAnnotation, label string, minScore float32, width, height int) []model.BoundingBox {
	var out []model.BoundingBox
	for _, o := range objects {
		if o == nil || !strings.EqualFold(o.Name, label) || o.Score < minScore {
			continue
		}
		if o.BoundingPoly == nil || len(o.BoundingPoly.NormalizedVertices) == 0 {
			continue
		}
		first := o.BoundingPoly.NormalizedVertices[0]
		x1, y1, x2, y2 := first.X, first.Y, first.X, first.Y
		for _, v := range o.BoundingPoly.NormalizedVertices[1:] {
			x1, x2 = min(x1, v.X), max(x2, v.X)
			y1, y2 = min(y1, v.Y), max(y2, v.Y)
		}
		out = append(out, model.BoundingBox{
			X1: float64(x1) * float64(width),
			Y1: float64(y1) * float64(height),
			X2: float64(x2) * float64(width),
			Y2: float64(y2) * float64(height),
		})
	}
	return out
}

// RateLimitedDetector bounds the request rate of a detector shared by
// concurrent jobs.
type RateLimitedDetector struct {
	wrapped ports.SubjectDetector
	limiter *rate.Limiter
}

// NewRateLimitedDetector wraps a detector with a token bucket.
func NewRateLimitedDetector(wrapped ports.SubjectDetector, requestsPerSecond float64, burst int) *RateLimitedDetector {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RateLimitedDetector{wrapped: wrapped, limiter: rate.NewLimiter(limit, max(1, burst))}
}

// Detect waits for a token, then calls the wrapped detector.
func (r *RateLimitedDetector) Detect(ctx context.Context, frame *model.Frame) ([]model.BoundingBox, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, errors.Join(ports.ErrDetectorUnavailable, err)
	}
	return r.wrapped.Detect(ctx, frame)
}
