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
// This file holds the records written to the job table in BigQuery. The
// `bigquery` tags map struct fields onto the table's columns.
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobRecord is the persisted outcome of one smart clips job.
type JobRecord struct {
	Id             string        `json:"id" bigquery:"id"`
	Mode           string        `json:"mode" bigquery:"mode"`
	Status         string        `json:"status" bigquery:"status"`
	Backend        string        `json:"backend" bigquery:"backend"`
	SourceId       string        `json:"source_id" bigquery:"source_id"`
	TargetFolder   string        `json:"target_folder" bigquery:"target_folder"`
	CreateDate     time.Time     `json:"create_date" bigquery:"create_date"`
	CompleteDate   time.Time     `json:"complete_date" bigquery:"complete_date"`
	SourceDuration float64       `json:"source_duration" bigquery:"source_duration"`
	SegmentCount   int           `json:"segment_count" bigquery:"segment_count"`
	ErrorMessage   string        `json:"error_message,omitempty" bigquery:"error_message"`
	Clips          []*ClipRecord `json:"clips" bigquery:"clips"`
}

// ClipRecord is a clip row nested inside a JobRecord.
type ClipRecord struct {
	Number        int     `json:"number" bigquery:"number"`
	Url           string  `json:"url" bigquery:"url"`
	ObjectId      string  `json:"object_id" bigquery:"object_id"`
	Start         float64 `json:"start" bigquery:"start"`
	End           float64 `json:"end" bigquery:"end"`
	ViralityScore float64 `json:"virality_score" bigquery:"virality_score"`
}

// NewJobID returns a random job identifier.
func NewJobID() string {
	return uuid.NewString()
}

// NewJobRecord creates the record for a job that was just accepted.
func NewJobRecord(id string, req *SmartClipsRequest) *JobRecord {
	return &JobRecord{
		Id:           id,
		Mode:         string(req.Settings.Mode),
		Status:       StatusAccepted,
		Backend:      string(req.Storage.Backend),
		SourceId:     req.Storage.SourceID,
		TargetFolder: req.Storage.TargetFolder,
		CreateDate:   time.Now(),
		Clips:        make([]*ClipRecord, 0),
	}
}

// Complete marks the record finished with the given artifacts.
func (j *JobRecord) Complete(duration float64, segments int, clips []*ClipArtifact) {
	j.Status = StatusSuccess
	j.CompleteDate = time.Now()
	j.SourceDuration = duration
	j.SegmentCount = segments
	for _, c := range clips {
		j.Clips = append(j.Clips, &ClipRecord{
			Number:        c.Number,
			Url:           c.URL,
			ObjectId:      c.ObjectID,
			Start:         c.Segment.Start,
			End:           c.Segment.End,
			ViralityScore: c.Segment.Score,
		})
	}
}

// Fail marks the record failed.
func (j *JobRecord) Fail(err error) {
	j.Status = StatusError
	j.CompleteDate = time.Now()
	j.ErrorMessage = err.Error()
}
