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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions for data models that
// only live for the duration of a single job. They are produced by the
// external collaborators (transcription, scene and subject detection), handed
// between the commands of a workflow and discarded once the job finishes.
package model

import "os"

// These objects are used in memory via workflows, but are not persisted to the dataset

// TranscriptSegment is one timed utterance produced by a transcript provider.
// Segments are ordered by Start and always satisfy Start <= End.
type TranscriptSegment struct {
	Start float64 `json:"start"` // Seconds from the beginning of the source.
	End   float64 `json:"end"`   // Seconds from the beginning of the source.
	Text  string  `json:"text"`  // Trimmed, lower-cased text.
}

// Within reports whether the segment is fully contained in [start, end].
func (s TranscriptSegment) Within(start, end float64) bool {
	return s.Start >= start && s.End <= end
}

// Candidate is a proposed time range, in seconds, considered for clip extraction.
type Candidate struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the length of the range in seconds.
func (c Candidate) Duration() float64 {
	return c.End - c.Start
}

// ScoredSegment is a Candidate decorated with its virality score and the
// individual factors that produced it.
type ScoredSegment struct {
	Candidate
	Score        float64  `json:"score"`
	Keywords     []string `json:"keywords"`
	SpeechEnergy float64  `json:"speech_energy"` // Speech density sub-score in [0,1].
	FacePresence float64  `json:"face_presence"` // Subject presence sub-score in [0,1].
	SceneChanges int      `json:"scene_changes"` // Raw number of cuts inside the range.
}

// Point is a pixel position inside a frame, typically the center of a detection.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingBox is an axis aligned box in source pixel coordinates.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the integer pixel center of the box.
func (b BoundingBox) Center() Point {
	return Point{X: int((b.X1 + b.X2) / 2), Y: int((b.Y1 + b.Y2) / 2)}
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 {
	return b.X2 - b.X1
}

// CropWindow is a rectangular region of a source frame, in source pixels.
type CropWindow struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is a single decoded still taken from a video, encoded as JPEG.
// Either Image holds the bytes or Path points at the file on disk.
type Frame struct {
	Index  int     // Frame number in the source.
	Time   float64 // Presentation time in seconds.
	Width  int
	Height int
	Path   string
	Image  []byte
}

// Bytes returns the encoded image, reading it from Path when needed.
func (f *Frame) Bytes() ([]byte, error) {
	if f.Image != nil {
		return f.Image, nil
	}
	return os.ReadFile(f.Path)
}

// VideoInfo holds the stream properties needed by the crop engine and scorer.
type VideoInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	Duration   float64 `json:"duration"`
}

// FaceSpreadAnalysis is the sampled decision of whether a single crop window
// can hold every detected subject.
type FaceSpreadAnalysis struct {
	HasSubject      bool     `json:"has_subject"`
	CanCrop         bool     `json:"can_crop"`
	SpreadRatio     float64  `json:"spread_ratio"`
	RecommendedMode CropMode `json:"recommended_mode"`
	Error           string   `json:"error,omitempty"`
}

// ClipArtifact is a finished, uploaded clip together with the range it was cut from.
type ClipArtifact struct {
	Number   int
	Segment  ScoredSegment
	Scored   bool // False for caller supplied ranges.
	URL      string
	ObjectID string
}
