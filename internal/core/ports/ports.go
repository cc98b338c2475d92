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

// Package ports declares the external collaborators the clip pipeline
// consumes. Implementations live in internal/media, internal/storage,
// internal/notify and internal/cloud.
package ports

import (
	"context"
	"errors"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// ErrDetectorUnavailable is returned by subject detectors that cannot serve
// requests at all, as opposed to failing on a single frame.
var ErrDetectorUnavailable = errors.New("subject detector unavailable")

// TranscriptProvider turns the speech of a video into ordered, timed segments.
type TranscriptProvider interface {
	Transcribe(ctx context.Context, video string) ([]model.TranscriptSegment, error)
}

// SceneDetector returns the sorted timestamps, in seconds, of visual cuts.
type SceneDetector interface {
	DetectScenes(ctx context.Context, video string) ([]float64, error)
}

// SubjectDetector finds subjects (people) in a single frame.
type SubjectDetector interface {
	Detect(ctx context.Context, frame *model.Frame) ([]model.BoundingBox, error)
}

// FrameExtractor decodes still frames out of a video.
type FrameExtractor interface {
	// ExtractFrame decodes the frame shown at the given time.
	ExtractFrame(ctx context.Context, video string, at float64) (*model.Frame, error)
	// ExtractFrames writes every nth frame into dir and returns them in order.
	// The returned frames reference their files through Path.
	ExtractFrames(ctx context.Context, video string, every int, dir string) ([]*model.Frame, error)
}

// MediaTranscoder runs declarative trim, crop, scale, pad and overlay
// operations. Every method either produces the named output or fails.
type MediaTranscoder interface {
	FrameExtractor
	Probe(ctx context.Context, video string) (*model.VideoInfo, error)
	ExtractSegment(ctx context.Context, video string, start, end float64, out string) error
	ExtractAudio(ctx context.Context, video string, out string) error
	ScalePad(ctx context.Context, video string, width, height int, out string) error
	CropStatic(ctx context.Context, video string, window model.CropWindow, width, height int, out string) error
	CropTracked(ctx context.Context, video string, commands string, cropW, cropH, width, height int, out string) error
	BurnCaptions(ctx context.Context, video string, subtitles string, out string) error
}

// Object identifies an uploaded blob.
type Object struct {
	ID  string
	URL string
}

// StorageBackend moves blobs between the job scratch area and a store.
type StorageBackend interface {
	Download(ctx context.Context, sourceID string, dst string) error
	Upload(ctx context.Context, src string, folder string, mimeType string) (*Object, error)
}

// ResultNotifier delivers one JSON payload to a caller supplied endpoint.
// Delivery is best effort; implementations report nothing back to the job.
type ResultNotifier interface {
	Notify(ctx context.Context, endpoint string, payload any)
}
