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
	"context"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// DefaultMaxConcurrentJobs applies when the configuration sets no limit.
const DefaultMaxConcurrentJobs = 4

// Runner executes jobs in the background, at most maxJobs at a time. Jobs
// run on a context detached from the request that submitted them and are
// never canceled once started.
type Runner struct {
	command cor.Command
	slots   chan struct{}
	wg      sync.WaitGroup
}

// NewRunner creates a runner.
//
// Inputs:
//   - command: The job chain, usually a SmartClipsWorkflow.
//   - maxJobs: The number of jobs that may run at once.
//     DefaultMaxConcurrentJobs when not positive.
//
// Outputs:
//   - *Runner: The runner.
func NewRunner(command cor.Command, maxJobs int) *Runner {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxConcurrentJobs
	}
	return &Runner{command: command, slots: make(chan struct{}, maxJobs)}
}

// Submit creates a job for a validated request, starts it and returns its id.
func (r *Runner) Submit(req *model.SmartClipsRequest) string {
	job := commands.NewJob(model.NewJobID(), req)
	r.Dispatch(job)
	return job.ID
}

// Dispatch starts the job in the background and returns immediately.
func (r *Runner) Dispatch(job *commands.Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.slots <- struct{}{}
		defer func() { <-r.slots }()
		r.Run(context.Background(), job)
	}()
}

// Run executes a job synchronously on ctx and returns the job's errors.
func (r *Runner) Run(ctx context.Context, job *commands.Job) error {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(commands.JobParam, job)
	defer chainCtx.Close()

	slog.InfoContext(ctx, "job started", "job_id", job.ID, "mode", job.Mode())
	r.command.Execute(chainCtx)
	err := chainCtx.Err()
	slog.InfoContext(ctx, "job finished", "job_id", job.ID, "failed", err != nil)
	return err
}

// Wait blocks until every dispatched job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
