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

package commands_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(mode model.Mode) *commands.Job {
	req := model.NewSmartClipsRequest(model.DefaultSettings(), model.BackendLocal)
	req.Storage.SourceID = "video.mp4"
	req.Settings.Mode = mode
	req.WebhookCallback = "https://hooks.example.com/done"
	return commands.NewJob("job-1", req)
}

func newContext(job *commands.Job) cor.Context {
	out := cor.NewBaseContext()
	out.SetContext(context.Background())
	if job != nil {
		out.Add(commands.JobParam, job)
	}
	return out
}

func TestJobScratchIsRemovedOnClose(t *testing.T) {
	job := newJob(model.ModeAutoGenerate)
	chainCtx := newContext(job)
	commands.NewJobScratch("job-scratch", t.TempDir()).Execute(chainCtx)
	require.NoError(t, chainCtx.Err())

	dir := chainCtx.GetScratchDir()
	assert.Contains(t, dir, "job_job-1")
	_, err := os.Stat(dir)
	require.NoError(t, err)

	chainCtx.Close()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCommandsRunOnlyForTheirModes(t *testing.T) {
	tests := []struct {
		command cor.Command
		mode    model.Mode
		want    bool
	}{
		{commands.NewSceneDetection("scenes", &test.FakeScenes{}), model.ModeAnalyzeOnly, true},
		{commands.NewSceneDetection("scenes", &test.FakeScenes{}), model.ModeManualGenerate, false},
		{commands.NewCandidateGeneration("candidates"), model.ModeAutoGenerate, true},
		{commands.NewCandidateGeneration("candidates"), model.ModeManualGenerate, false},
		{commands.NewAnalysisReport("report"), model.ModeAnalyzeOnly, true},
		{commands.NewAnalysisReport("report"), model.ModeAutoGenerate, false},
		{commands.NewClipSelection("select"), model.ModeAutoGenerate, true},
		{commands.NewClipSelection("select"), model.ModeAnalyzeOnly, false},
		{commands.NewManualSegments("manual"), model.ModeManualGenerate, true},
		{commands.NewManualSegments("manual"), model.ModeAutoGenerate, false},
		{commands.NewGenerateReport("report"), model.ModeManualGenerate, true},
		{commands.NewGenerateReport("report"), model.ModeAnalyzeOnly, false},
	}
	for _, tt := range tests {
		got := tt.command.IsExecutable(newContext(newJob(tt.mode)))
		assert.Equal(t, tt.want, got, "%s in %s", tt.command.GetName(), tt.mode)
	}
}

func TestCommandsNeedAJob(t *testing.T) {
	assert.False(t, commands.NewMediaProbe("probe", &test.FakeTranscoder{}).IsExecutable(newContext(nil)))
}

func TestTranscriptionInManualModeOnlyForCaptions(t *testing.T) {
	c := commands.NewTranscription("transcription", inference.Static(&test.FakeTranscriber{}, nil), inference.ModelKey{})

	job := newJob(model.ModeManualGenerate)
	job.Request.Settings.AddCaptions = false
	assert.False(t, c.IsExecutable(newContext(job)))

	job.Request.Settings.AddCaptions = true
	assert.True(t, c.IsExecutable(newContext(job)))

	assert.True(t, c.IsExecutable(newContext(newJob(model.ModeAnalyzeOnly))))
}

func TestAnalysisReportNumbersInCandidateOrder(t *testing.T) {
	job := newJob(model.ModeAnalyzeOnly)
	job.Info = &model.VideoInfo{Duration: 90}
	job.Scored = []model.ScoredSegment{
		{Candidate: model.Candidate{Start: 0, End: 30}, Score: 0.2},
		{Candidate: model.Candidate{Start: 15, End: 45}, Score: 0.9},
		{Candidate: model.Candidate{Start: 30, End: 60}, Score: 0.5},
	}
	chainCtx := newContext(job)
	commands.NewAnalysisReport("report").Execute(chainCtx)
	require.NoError(t, chainCtx.Err())

	payload := job.Payload.(*model.AnalyzePayload)
	require.Len(t, payload.AnalyzedSegments, 3)
	assert.Equal(t, 2, payload.AnalyzedSegments[0].SegmentNumber)
	assert.Equal(t, 3, payload.AnalyzedSegments[1].SegmentNumber)
	assert.Equal(t, 1, payload.AnalyzedSegments[2].SegmentNumber)
	assert.Equal(t, model.StatusSuccess, job.Record.Status)
}

func TestManualSegmentsKeepRequestOrder(t *testing.T) {
	job := newJob(model.ModeManualGenerate)
	job.Request.Settings.ManualTimestamps = []model.ManualTimestamp{{Start: 50, End: 60}, {Start: 5, End: 20}}
	commands.NewManualSegments("manual").Execute(newContext(job))

	require.Len(t, job.Selected, 2)
	assert.Equal(t, 50.0, job.Selected[0].Start)
	assert.Equal(t, 20.0, job.Selected[1].End)
	assert.Zero(t, job.Selected[0].Score)
}

func TestResultNotificationSendsOneErrorPayload(t *testing.T) {
	job := newJob(model.ModeAutoGenerate)
	job.Payload = &model.GeneratePayload{Status: model.StatusSuccess}
	chainCtx := newContext(job)
	chainCtx.AddError("scene-detection", errors.New("boom"))

	notifier := &test.FakeNotifier{}
	commands.NewResultNotification("notify", notifier).Execute(chainCtx)

	payloads := notifier.Delivered()
	require.Len(t, payloads, 1)
	payload, ok := payloads[0].(*model.ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "job-1", payload.JobID)
	assert.Contains(t, payload.ErrorMessage, "boom")
}

func TestJobPersistSkippedWithoutStore(t *testing.T) {
	assert.False(t, commands.NewJobPersistToBigQuery("persist", nil).IsExecutable(newContext(newJob(model.ModeAutoGenerate))))
}

type dispatched struct{ jobs []*commands.Job }

func (d *dispatched) Dispatch(job *commands.Job) { d.jobs = append(d.jobs, job) }

func TestJobDispatch(t *testing.T) {
	d := &dispatched{}
	job := newJob(model.ModeAutoGenerate)
	chainCtx := newContext(job)
	commands.NewJobDispatch("dispatch", d).Execute(chainCtx)
	require.Len(t, d.jobs, 1)
	assert.Same(t, job, d.jobs[0])
	assert.Equal(t, "job-1", chainCtx.Get(cor.CtxOut))
}
