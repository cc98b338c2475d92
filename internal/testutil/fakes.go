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

package test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// MP4Header is the smallest prefix recognized as an MP4 video by MIME
// sniffing.
var MP4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00}

var ErrFake = errors.New("fake failure")

// FakeFrames decodes synthetic frames of a fixed size.
type FakeFrames struct {
	Info    model.VideoInfo
	Count   int   // Frames returned by ExtractFrames.
	Err     error // Returned by every call when set.
	mu      sync.Mutex
	Times   []float64 // Times passed to ExtractFrame.
	Strides []int     // Strides passed to ExtractFrames.
}

func (f *FakeFrames) ExtractFrame(_ context.Context, _ string, at float64) (*model.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Times = append(f.Times, at)
	if f.Err != nil {
		return nil, f.Err
	}
	return &model.Frame{
		Index:  int(at * f.Info.FPS),
		Time:   at,
		Width:  f.Info.Width,
		Height: f.Info.Height,
		Image:  []byte{0xff, 0xd8},
	}, nil
}

func (f *FakeFrames) ExtractFrames(_ context.Context, _ string, every int, _ string) ([]*model.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Strides = append(f.Strides, every)
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]*model.Frame, f.Count)
	for i := range out {
		idx := i * every
		out[i] = &model.Frame{
			Index:  idx,
			Time:   float64(idx) / f.Info.FPS,
			Width:  f.Info.Width,
			Height: f.Info.Height,
			Image:  []byte{0xff, 0xd8},
		}
	}
	return out, nil
}

// FakeDetector answers with the boxes returned by Boxes, or none.
type FakeDetector struct {
	Boxes func(frame *model.Frame) []model.BoundingBox
	Err   error
	mu    sync.Mutex
	Calls int
}

func (d *FakeDetector) Detect(_ context.Context, frame *model.Frame) ([]model.BoundingBox, error) {
	d.mu.Lock()
	d.Calls++
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	if d.Boxes == nil {
		return nil, nil
	}
	return d.Boxes(frame), nil
}

// Always returns a detector that finds the same boxes on every frame.
func Always(boxes ...model.BoundingBox) *FakeDetector {
	return &FakeDetector{Boxes: func(*model.Frame) []model.BoundingBox { return boxes }}
}

// FakeTranscoder records every operation and writes a small placeholder file
// to each named output.
type FakeTranscoder struct {
	FakeFrames
	FailOn string // Operation name that fails with ErrFake.
	omu    sync.Mutex
	Ops    []string
	Crops  []string // sendcmd scripts passed to CropTracked.
}

func (t *FakeTranscoder) record(op string, out string) error {
	t.omu.Lock()
	t.Ops = append(t.Ops, op)
	t.omu.Unlock()
	if t.FailOn == op {
		return fmt.Errorf("%s: %w", op, ErrFake)
	}
	if out == "" {
		return nil
	}
	return os.WriteFile(out, MP4Header, 0o644)
}

// Operations returns a copy of the recorded operation names.
func (t *FakeTranscoder) Operations() []string {
	t.omu.Lock()
	defer t.omu.Unlock()
	return append([]string(nil), t.Ops...)
}

func (t *FakeTranscoder) Probe(_ context.Context, _ string) (*model.VideoInfo, error) {
	if err := t.record("probe", ""); err != nil {
		return nil, err
	}
	info := t.Info
	return &info, nil
}

func (t *FakeTranscoder) ExtractSegment(_ context.Context, _ string, _, _ float64, out string) error {
	return t.record("extract", out)
}

func (t *FakeTranscoder) ExtractAudio(_ context.Context, _ string, out string) error {
	return t.record("audio", out)
}

func (t *FakeTranscoder) ScalePad(_ context.Context, _ string, _, _ int, out string) error {
	return t.record("scale_pad", out)
}

func (t *FakeTranscoder) CropStatic(_ context.Context, _ string, _ model.CropWindow, _, _ int, out string) error {
	return t.record("crop_static", out)
}

func (t *FakeTranscoder) CropTracked(_ context.Context, _ string, commands string, _, _, _, _ int, out string) error {
	t.omu.Lock()
	t.Crops = append(t.Crops, commands)
	t.omu.Unlock()
	return t.record("crop_tracked", out)
}

func (t *FakeTranscoder) BurnCaptions(_ context.Context, _ string, subtitles string, out string) error {
	if _, err := os.Stat(subtitles); err != nil {
		return err
	}
	return t.record("captions", out)
}

// FakeTranscriber returns a fixed transcript.
type FakeTranscriber struct {
	Segments []model.TranscriptSegment
	Err      error
	Calls    int
}

func (f *FakeTranscriber) Transcribe(context.Context, string) ([]model.TranscriptSegment, error) {
	f.Calls++
	return f.Segments, f.Err
}

// FakeScenes returns fixed cut timestamps.
type FakeScenes struct {
	Times []float64
	Err   error
	Calls int
}

func (f *FakeScenes) DetectScenes(context.Context, string) ([]float64, error) {
	f.Calls++
	return f.Times, f.Err
}

// FakeStorage serves Data for every download and keeps uploads in memory.
type FakeStorage struct {
	Data        []byte
	DownloadErr error
	UploadErr   error
	mu          sync.Mutex
	Uploads     []string // "<folder>/<base name>" of every upload.
}

func (s *FakeStorage) Download(_ context.Context, _ string, dst string) error {
	if s.DownloadErr != nil {
		return s.DownloadErr
	}
	data := s.Data
	if data == nil {
		data = MP4Header
	}
	return os.WriteFile(dst, data, 0o644)
}

func (s *FakeStorage) Upload(_ context.Context, src string, folder string, _ string) (*ports.Object, error) {
	if s.UploadErr != nil {
		return nil, s.UploadErr
	}
	if _, err := os.Stat(src); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := folder + "/" + filepath.Base(src)
	s.Uploads = append(s.Uploads, id)
	return &ports.Object{ID: id, URL: "https://storage.example.com/" + id}, nil
}

// FakeNotifier records delivered payloads.
type FakeNotifier struct {
	mu        sync.Mutex
	Endpoints []string
	Payloads  []any
}

func (n *FakeNotifier) Notify(_ context.Context, endpoint string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Endpoints = append(n.Endpoints, endpoint)
	n.Payloads = append(n.Payloads, payload)
}

// Delivered returns a copy of the recorded payloads.
func (n *FakeNotifier) Delivered() []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]any(nil), n.Payloads...)
}
