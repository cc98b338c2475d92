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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. Every step of a smart
// clips job is one command; the commands share a single *Job stored in the
// context under JobParam.
package commands

import (
	"context"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// JobParam is the context key of the running *Job.
const JobParam = "__JOB__"

// Job accumulates the state of one smart clips job as it moves through the
// chain.
type Job struct {
	ID      string
	Request *model.SmartClipsRequest
	Record  *model.JobRecord

	Source     string // Local copy of the source video.
	Info       *model.VideoInfo
	Scenes     []float64
	Transcript []model.TranscriptSegment
	Candidates []model.Candidate
	Scored     []model.ScoredSegment // In candidate order.
	Selected   []model.ScoredSegment // Segments to render, in clip order.
	Clips      []*model.ClipArtifact

	// Payload is the success result delivered to the caller.
	Payload any
}

// NewJob creates the job for a validated request.
func NewJob(id string, req *model.SmartClipsRequest) *Job {
	return &Job{ID: id, Request: req, Record: model.NewJobRecord(id, req)}
}

// Settings returns the settings of the request.
func (j *Job) Settings() model.Settings {
	return j.Request.Settings
}

// Mode returns the requested mode.
func (j *Job) Mode() model.Mode {
	return j.Request.Settings.Mode
}

// JobFrom returns the job stored in the context, if any.
func JobFrom(context cor.Context) (*Job, bool) {
	return cor.Value[*Job](context, JobParam)
}

// StorageResolver hands out the storage backend a request names.
type StorageResolver interface {
	Get(ctx context.Context, name model.Backend) (ports.StorageBackend, error)
}

// ModelRegistry hands out the shared transcription and detection models.
type ModelRegistry interface {
	Transcriber(ctx context.Context, key inference.ModelKey) (ports.TranscriptProvider, error)
	Detector(ctx context.Context, key inference.ModelKey) (ports.SubjectDetector, error)
}

// jobCommand is embedded by every command that operates on the job. It runs
// only when a job is present and, if modes is not empty, only for those modes.
type jobCommand struct {
	cor.BaseCommand
	modes []model.Mode
}

func newJobCommand(name string, modes ...model.Mode) jobCommand {
	return jobCommand{BaseCommand: *cor.NewBaseCommandWithParams(name, JobParam, cor.CtxOut), modes: modes}
}

// IsExecutable reports whether a job is present and its mode is one of the
// command's modes.
func (c *jobCommand) IsExecutable(context cor.Context) bool {
	job, ok := JobFrom(context)
	if !ok || job == nil || context.GetContext() == nil {
		return false
	}
	if len(c.modes) == 0 {
		return true
	}
	for _, m := range c.modes {
		if job.Mode() == m {
			return true
		}
	}
	return false
}

// job returns the job; IsExecutable has already checked it is present.
func (c *jobCommand) job(context cor.Context) *Job {
	job, _ := JobFrom(context)
	return job
}
