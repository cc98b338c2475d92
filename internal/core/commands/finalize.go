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
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// Inserter stores rows; *bigquery.Inserter satisfies it.
type Inserter interface {
	Put(ctx context.Context, src interface{}) error
}

// JobPersistToBigQuery writes the job record once the job has finished,
// marking it failed when the context holds errors. A failed insert is logged
// and never changes the outcome of the job.
type JobPersistToBigQuery struct {
	jobCommand
	inserter Inserter
}

// NewJobPersistToBigQuery creates the persistence step.
//
// Inputs:
//   - name: The command name.
//   - inserter: The BigQuery inserter of the jobs table. A nil inserter
//     disables the step, which is how local runs skip persistence.
//
// Outputs:
//   - *JobPersistToBigQuery: The command.
func NewJobPersistToBigQuery(name string, inserter Inserter) *JobPersistToBigQuery {
	return &JobPersistToBigQuery{jobCommand: newJobCommand(name), inserter: inserter}
}

// IsExecutable runs the step regardless of earlier errors, as long as an
// inserter is configured.
func (c *JobPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return c.inserter != nil && c.jobCommand.IsExecutable(context)
}

// Execute inserts the job record.
func (c *JobPersistToBigQuery) Execute(context cor.Context) {
	job := c.job(context)
	if context.HasErrors() {
		job.Record.Fail(context.Err())
	}
	if err := c.inserter.Put(context.GetContext(), job.Record); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.ErrorContext(context.GetContext(), "failed to persist job record", "job_id", job.ID, "error", err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "persisted job record", "job_id", job.ID, "status", job.Record.Status)
}

// ResultNotification reports the outcome of the job to its callback: the
// success payload, or a single error payload when any step failed.
type ResultNotification struct {
	jobCommand
	notifier ports.ResultNotifier
}

// NewResultNotification creates the notification step.
//
// Inputs:
//   - name: The command name.
//   - notifier: Delivers the payload to the request callback.
//
// Outputs:
//   - *ResultNotification: The command.
func NewResultNotification(name string, notifier ports.ResultNotifier) *ResultNotification {
	return &ResultNotification{jobCommand: newJobCommand(name), notifier: notifier}
}

// Execute sends exactly one payload. Delivery problems are the notifier's
// to log; they never fail the job.
func (c *ResultNotification) Execute(context cor.Context) {
	job := c.job(context)
	var payload any = job.Payload
	if err := context.Err(); err != nil {
		slog.ErrorContext(context.GetContext(), "job failed", "job_id", job.ID, "error", err)
		payload = model.NewErrorPayload(job.ID, err)
	}
	c.notifier.Notify(context.GetContext(), job.Request.WebhookCallback, payload)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
}
