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

// Package whisper implements a transcript provider on top of the whisper.cpp
// command line tool.
package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

var ErrModelNotFound = errors.New("whisper model not found")

// AudioExtractor produces the 16 kHz mono wav whisper.cpp expects.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video string, out string) error
}

// Transcriber shells out to whisper.cpp once per video.
type Transcriber struct {
	bin      string
	model    string
	language string
	audio    AudioExtractor
	tempDir  string
}

var _ ports.TranscriptProvider = (*Transcriber)(nil)

// ModelPath resolves the ggml model file for a size. A path that already
// names a file is returned as is; a directory is searched for ggml-<size>.bin.
func ModelPath(path string, size string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return filepath.Join(path, fmt.Sprintf("ggml-%s.bin", size))
	}
	return path
}

// Load checks that the binary and model exist and returns a transcriber that
// writes its intermediate files below tempDir.
func Load(bin, modelPath, language string, audio AudioExtractor, tempDir string) (*Transcriber, error) {
	if bin == "" {
		bin = "whisper-cli"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q: %w", bin, err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}
	return &Transcriber{bin: resolved, model: modelPath, language: language, audio: audio, tempDir: tempDir}, nil
}

// Transcribe extracts the audio track and runs whisper.cpp over it.
func (t *Transcriber) Transcribe(ctx context.Context, video string) ([]model.TranscriptSegment, error) {
	dir, err := os.MkdirTemp(t.tempDir, "whisper-")
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription directory: %w", err)
	}
	defer os.RemoveAll(dir)

	wav := filepath.Join(dir, "audio.wav")
	if err := t.audio.ExtractAudio(ctx, video, wav); err != nil {
		return nil, err
	}

	outPrefix := filepath.Join(dir, "whisper")
	args := []string{"-m", t.model, "-f", wav, "-oj", "-of", outPrefix}
	if t.language != "" {
		args = append(args, "-l", t.language)
	}
	cmd := exec.CommandContext(ctx, t.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	segments, err := parseTranscript(jb)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "transcribed audio", "segments", len(segments))
	return segments, nil
}

type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseTranscript converts whisper.cpp JSON, whose offsets are milliseconds,
// into trimmed, lower-cased segments. Empty segments are dropped.
func parseTranscript(b []byte) ([]model.TranscriptSegment, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	segments := make([]model.TranscriptSegment, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		text := strings.ToLower(strings.TrimSpace(s.Text))
		if text == "" {
			continue
		}
		segments = append(segments, model.TranscriptSegment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  text,
		})
	}
	return segments, nil
}
