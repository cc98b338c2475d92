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

package workflow

import (
	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// JobRequestWorkflow reads queued JSON job requests and dispatches them.
type JobRequestWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewJobRequestWorkflow creates the chain run for every job request message.
//
// Inputs:
//   - config: Supplies the request defaults and the default storage backend.
//   - dispatcher: Receives the jobs, usually the Runner.
//
// Outputs:
//   - *JobRequestWorkflow: The chain. It fails when the message is invalid.
func NewJobRequestWorkflow(config *cloud.Config, dispatcher commands.Dispatcher) *JobRequestWorkflow {
	out := cor.NewBaseChain("job-request-workflow")
	out.AddCommand(commands.NewJobRequestReader("job-request-reader", config.SmartClips, model.Backend(config.Storage.DefaultBackend)))
	out.AddCommand(commands.NewJobDispatch("job-dispatch", dispatcher))
	return &JobRequestWorkflow{BaseCommand: *cor.NewBaseCommand("job-request-workflow"), chain: out}
}

func (w *JobRequestWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// UploadTriggerWorkflow starts an auto_generate job for every source uploaded
// to the input bucket.
type UploadTriggerWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// NewUploadTriggerWorkflow creates the chain run for every object finalize
// notification.
func NewUploadTriggerWorkflow(config *cloud.Config, dispatcher commands.Dispatcher) *UploadTriggerWorkflow {
	out := cor.NewBaseChain("upload-trigger-workflow")
	out.AddCommand(commands.NewUploadTriggerReader("upload-trigger-reader", config.SmartClips, config.Webhook.DefaultCallback))
	out.AddCommand(commands.NewJobDispatch("job-dispatch", dispatcher))
	return &UploadTriggerWorkflow{BaseCommand: *cor.NewBaseCommand("upload-trigger-workflow"), chain: out}
}

// Execute reads the notification and dispatches the job.
func (w *UploadTriggerWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}
