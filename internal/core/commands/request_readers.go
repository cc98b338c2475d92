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

package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// JobRequestReader decodes a JSON job request (a queue message) into a new
// job. Request fields that are absent keep the configured defaults.
type JobRequestReader struct {
	cor.BaseCommand
	defaults       model.Settings
	defaultBackend model.Backend
}

// NewJobRequestReader creates the reader for job request messages.
//
// Inputs:
//   - name: The command name.
//   - defaults: Settings used for every field the message leaves out.
//   - defaultBackend: Storage backend used when the message names none.
//
// Outputs:
//   - *JobRequestReader: The command. It reads the message text from the
//     chain input and stores the new job under JobParam.
func NewJobRequestReader(name string, defaults model.Settings, defaultBackend model.Backend) *JobRequestReader {
	return &JobRequestReader{BaseCommand: *cor.NewBaseCommand(name), defaults: defaults, defaultBackend: defaultBackend}
}

// Execute decodes and validates the request. Invalid requests fail the
// message without creating a job.
func (c *JobRequestReader) Execute(context cor.Context) {
	in, _ := cor.Value[string](context, c.GetInputParam())

	req := model.NewSmartClipsRequest(c.defaults, c.defaultBackend)
	if err := json.Unmarshal([]byte(in), req); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal job request: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		c.Fail(context, fmt.Errorf("invalid job request: %w", err))
		return
	}

	job := NewJob(model.NewJobID(), req)
	slog.InfoContext(context.GetContext(), "job request received", "job_id", job.ID, "mode", req.Settings.Mode, "source", req.Storage.SourceID)
	context.Add(JobParam, job)
	c.Succeed(context, job)
}

// UploadTriggerReader turns a Cloud Storage object notification into an
// auto_generate job over the uploaded object. Clips go to clips/<object> and
// the result is posted to the configured default callback.
type UploadTriggerReader struct {
	cor.BaseCommand
	defaults model.Settings
	callback string
}

// NewUploadTriggerReader creates the reader for object finalize
// notifications. callback may be empty.
func NewUploadTriggerReader(name string, defaults model.Settings, callback string) *UploadTriggerReader {
	return &UploadTriggerReader{BaseCommand: *cor.NewBaseCommand(name), defaults: defaults, callback: callback}
}

// Execute builds and validates the request for the uploaded object.
func (c *UploadTriggerReader) Execute(context cor.Context) {
	in, _ := cor.Value[string](context, c.GetInputParam())

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.Fail(context, fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}
	obj := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType}
	context.Add(cloud.GetGCSObjectName(), obj)

	req := model.NewSmartClipsRequest(c.defaults, model.BackendGCS)
	req.Settings.Mode = model.ModeAutoGenerate
	req.Storage.SourceID = obj.URI()
	req.Storage.TargetFolder = path.Join("clips", obj.Name)
	req.WebhookCallback = c.callback
	if err := req.Validate(); err != nil {
		c.Fail(context, fmt.Errorf("invalid upload trigger for %s: %w", obj.URI(), err))
		return
	}

	job := NewJob(model.NewJobID(), req)
	slog.InfoContext(context.GetContext(), "upload trigger received", "job_id", job.ID, "source", obj.URI(), "mime_type", obj.MIMEType)
	context.Add(JobParam, job)
	c.Succeed(context, job)
}

// Dispatcher starts a job in the background.
type Dispatcher interface {
	Dispatch(job *Job)
}

// JobDispatch hands the job read from a message to the runner, so the
// message is acknowledged as soon as the job is accepted.
type JobDispatch struct {
	jobCommand
	dispatcher Dispatcher
}

// NewJobDispatch creates the step that hands jobs to the runner.
func NewJobDispatch(name string, dispatcher Dispatcher) *JobDispatch {
	return &JobDispatch{jobCommand: newJobCommand(name), dispatcher: dispatcher}
}

// Execute dispatches the job and outputs its id.
func (c *JobDispatch) Execute(context cor.Context) {
	job := c.job(context)
	c.dispatcher.Dispatch(job)
	c.Succeed(context, job.ID)
}
