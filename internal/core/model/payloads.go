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

package model

import "fmt"

const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusAccepted = "accepted"

	AcceptedMessage = "Job accepted and processing in background"
)

// AnalyzedSegment is a scored candidate reported by analyze_only jobs.
type AnalyzedSegment struct {
	SegmentNumber int      `json:"segment_number"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Duration      float64  `json:"duration"`
	ViralityScore float64  `json:"virality_score"`
	Keywords      []string `json:"keywords"`
	SpeechEnergy  float64  `json:"speech_energy"`
	FacePresence  float64  `json:"face_presence"`
	SceneChanges  int      `json:"scene_changes"`
	KeywordCount  int      `json:"keyword_count"`
}

// NewAnalyzedSegment converts a scored segment numbered in candidate order.
func NewAnalyzedSegment(number int, s ScoredSegment) AnalyzedSegment {
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return AnalyzedSegment{
		SegmentNumber: number,
		StartTime:     s.Start,
		EndTime:       s.End,
		Duration:      s.Duration(),
		ViralityScore: s.Score,
		Keywords:      keywords,
		SpeechEnergy:  s.SpeechEnergy,
		FacePresence:  s.FacePresence,
		SceneChanges:  s.SceneChanges,
		KeywordCount:  len(keywords),
	}
}

// GeneratedClip describes one uploaded clip. Score and keywords are only
// present for automatically selected segments.
type GeneratedClip struct {
	ClipNumber    int      `json:"clip_number"`
	URL           string   `json:"url"`
	FileID        string   `json:"file_id"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	Duration      float64  `json:"duration"`
	ViralityScore *float64 `json:"virality_score"`
	Keywords      []string `json:"keywords"`
}

// NewGeneratedClip converts a finished artifact into its payload form.
func NewGeneratedClip(a *ClipArtifact) GeneratedClip {
	out := GeneratedClip{
		ClipNumber: a.Number,
		URL:        a.URL,
		FileID:     a.ObjectID,
		StartTime:  a.Segment.Start,
		EndTime:    a.Segment.End,
		Duration:   a.Segment.Duration(),
	}
	if a.Scored {
		score := a.Segment.Score
		out.ViralityScore = &score
		out.Keywords = a.Segment.Keywords
		if out.Keywords == nil {
			out.Keywords = []string{}
		}
	}
	return out
}

// AnalyzePayload is delivered when an analyze_only job succeeds.
type AnalyzePayload struct {
	Status           string            `json:"status"`
	JobID            string            `json:"job_id"`
	Mode             Mode              `json:"mode"`
	AnalyzedSegments []AnalyzedSegment `json:"analyzed_segments"`
	TotalSegments    int               `json:"total_segments"`
	SourceDuration   float64           `json:"source_duration"`
	Recommendation   string            `json:"recommendation"`
}

// GeneratePayload is delivered when a generate job succeeds.
type GeneratePayload struct {
	Status         string          `json:"status"`
	JobID          string          `json:"job_id"`
	Mode           Mode            `json:"mode"`
	Clips          []GeneratedClip `json:"clips"`
	TotalClips     int             `json:"total_clips"`
	SourceDuration float64         `json:"source_duration"`
}

// ErrorPayload is delivered once when any job fails.
type ErrorPayload struct {
	Status       string `json:"status"`
	JobID        string `json:"job_id"`
	ErrorMessage string `json:"error_message"`
}

// NewErrorPayload creates the payload of a failed job.
func NewErrorPayload(jobID string, err error) *ErrorPayload {
	return &ErrorPayload{Status: StatusError, JobID: jobID, ErrorMessage: err.Error()}
}

// AcceptedResponse is returned synchronously when a job is queued.
type AcceptedResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// NewAcceptedResponse creates the 202 body for a queued job.
func NewAcceptedResponse(jobID string) *AcceptedResponse {
	return &AcceptedResponse{Status: StatusAccepted, JobID: jobID, Message: AcceptedMessage}
}

// Recommendation summarises an analysis sorted by descending score.
func Recommendation(sorted []AnalyzedSegment) string {
	n := len(sorted)
	top := 0.0
	if n > 0 {
		top = sorted[0].ViralityScore
	}
	switch {
	case top > 0.7:
		return fmt.Sprintf("Found %d segments. Top %d have excellent viral potential (score > 0.7).", n, min(3, n))
	case top > 0.5:
		return fmt.Sprintf("Found %d segments. Top %d have good viral potential (score > 0.5).", n, min(3, n))
	default:
		return fmt.Sprintf("Found %d segments. Consider adjusting weights or source content.", n)
	}
}
