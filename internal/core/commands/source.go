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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	"github.com/jaycherian/gcp-go-smart-clips/internal/storage"
)

// ErrNotVideo is recorded when a downloaded source is not a video container.
var ErrNotVideo = errors.New("source is not a video")

// JobScratch creates <root>/job_<id> and registers it with the context so
// that closing the context removes it whatever the outcome of the job.
type JobScratch struct {
	jobCommand
	root string
}

// NewJobScratch creates the scratch step. An empty root uses the system
// temporary directory.
func NewJobScratch(name string, root string) *JobScratch {
	return &JobScratch{jobCommand: newJobCommand(name), root: root}
}

// Execute creates the job directory.
func (c *JobScratch) Execute(context cor.Context) {
	job := c.job(context)
	root := c.root
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "job_"+job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.Fail(context, fmt.Errorf("failed to create job directory: %w", err))
		return
	}
	context.SetScratchDir(dir)
	c.Succeed(context, nil)
}

// SourceDownload fetches the source through the backend the request names
// and checks that it is a video.
type SourceDownload struct {
	jobCommand
	backends StorageResolver
}

// NewSourceDownload creates the download step.
//
// Inputs:
//   - name: The command name.
//   - backends: Resolves the backend named by the request.
//
// Outputs:
//   - *SourceDownload: The command. Downloads land in the job scratch dir.
func NewSourceDownload(name string, backends StorageResolver) *SourceDownload {
	return &SourceDownload{jobCommand: newJobCommand(name), backends: backends}
}

// Execute downloads the source. Non-video content fails the job with
// ErrNotVideo.
func (c *SourceDownload) Execute(context cor.Context) {
	job := c.job(context)
	ref := job.Request.Storage

	backend, err := c.backends.Get(context.GetContext(), ref.Backend)
	if err != nil {
		c.Fail(context, err)
		return
	}

	dst := filepath.Join(context.GetScratchDir(), "source"+sourceExt(ref.SourceID))
	if err := backend.Download(context.GetContext(), ref.SourceID, dst); err != nil {
		c.Fail(context, fmt.Errorf("failed to download %s: %w", ref.SourceID, err))
		return
	}
	context.AddTempFile(dst)

	ok, err := storage.IsVideo(dst)
	if err != nil {
		c.Fail(context, err)
		return
	}
	if !ok {
		mime, _ := storage.DetectMIME(dst)
		c.Fail(context, fmt.Errorf("%w: %s is %s", ErrNotVideo, ref.SourceID, mime))
		return
	}

	job.Source = dst
	slog.InfoContext(context.GetContext(), "source downloaded", "job_id", job.ID, "backend", ref.Backend, "path", dst)
	c.Succeed(context, dst)
}

// sourceExt keeps the extension of the source name, defaulting to .mp4.
// Drive ids and bare keys usually have none.
func sourceExt(sourceID string) string {
	ext := strings.ToLower(path.Ext(sourceID))
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "?&=") {
		return ".mp4"
	}
	return ext
}

// MediaProbe reads the geometry, frame rate and duration of the source.
type MediaProbe struct {
	jobCommand
	transcoder ports.MediaTranscoder
}

// NewMediaProbe creates the probe step.
func NewMediaProbe(name string, transcoder ports.MediaTranscoder) *MediaProbe {
	return &MediaProbe{jobCommand: newJobCommand(name), transcoder: transcoder}
}

func (c *MediaProbe) Execute(context cor.Context) {
	job := c.job(context)
	info, err := c.transcoder.Probe(context.GetContext(), job.Source)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to probe source: %w", err))
		return
	}
	job.Info = info
	slog.InfoContext(context.GetContext(), "source probed", "job_id", job.ID,
		"width", info.Width, "height", info.Height, "fps", info.FPS, "duration", info.Duration)
	c.Succeed(context, info)
}
