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

package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// DefaultTranscriptionPrompt is used when the configuration has no prompt.
const DefaultTranscriptionPrompt = `Transcribe the speech in the attached audio.
Return only a JSON array of segments ordered by start time. Each segment has
"start" and "end" in seconds from the beginning of the audio and "text".
Split segments at sentence boundaries and keep every segment under 10 seconds.
Example: {{ .EXAMPLE_JSON }}`

// AudioExtractor produces a wav rendition of a video's soundtrack.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video string, out string) error
}

var _ ports.TranscriptProvider = (*GeminiTranscriber)(nil)

// GeminiTranscriber asks a Gemini model for a timed transcript. Local videos
// are reduced to audio and staged in Cloud Storage for the request.
type GeminiTranscriber struct {
	model         *QuotaAwareGenerativeAIModel
	storage       *storage.Client
	stagingBucket string
	audio         AudioExtractor
	tempDir       string
	prompt        *template.Template

	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGeminiTranscriber creates the Gemini transcript provider.
//
// Inputs:
//   - generativeModel: The rate limited model that answers the prompt.
//   - gcs: Used to stage the extracted audio.
//   - stagingBucket: Bucket receiving the staged audio.
//   - audio: Extracts the audio track of the video.
//   - tempDir: Directory for the extracted audio.
//   - prompt: A text/template for the instruction; empty uses
//     DefaultTranscriptionPrompt.
//
// Outputs:
//   - *GeminiTranscriber: The provider.
//   - error: When the prompt template does not parse.
func NewGeminiTranscriber(
	generativeModel *QuotaAwareGenerativeAIModel,
	gcs *storage.Client,
	stagingBucket string,
	audio AudioExtractor,
	tempDir string,
	prompt string) (*GeminiTranscriber, error) {

	if prompt == "" {
		prompt = DefaultTranscriptionPrompt
	}
	tmpl, err := template.New("transcription").Parse(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription prompt: %w", err)
	}
	out := &GeminiTranscriber{
		model:         generativeModel,
		storage:       gcs,
		stagingBucket: stagingBucket,
		audio:         audio,
		tempDir:       tempDir,
		prompt:        tmpl,
	}
	meter := otel.Meter(cor.MeterName)
	out.inputTokenCounter, _ = meter.Int64Counter("transcription.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("transcription.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("transcription.gemini.token.retry")
	return out, nil
}

// Transcribe stages the audio of the video and asks the model for timed
// segments.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, video string) ([]model.TranscriptSegment, error) {
	uri, mimeType := video, "video/mp4"
	if !strings.HasPrefix(video, "gs://") {
		dir, err := os.MkdirTemp(g.tempDir, "gemini-")
		if err != nil {
			return nil, fmt.Errorf("failed to create transcription directory: %w", err)
		}
		defer os.RemoveAll(dir)

		wav := filepath.Join(dir, "audio.wav")
		if err := g.audio.ExtractAudio(ctx, video, wav); err != nil {
			return nil, err
		}
		staged, cleanup, err := StageObject(ctx, g.storage, g.stagingBucket, "staging/audio", wav)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		uri, mimeType = staged, "audio/wav"
	}

	instruction, err := g.instruction()
	if err != nil {
		return nil, err
	}
	out, err := GenerateMultiModalResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.retryCounter, 0, g.model,
		NewVideoPrompt(uri, mimeType, instruction))
	if err != nil {
		return nil, fmt.Errorf("gemini transcription failed: %w", err)
	}
	return ParseTranscript(out)
}

func (g *GeminiTranscriber) instruction() (string, error) {
	example, _ := json.Marshal(model.GetExampleTranscript())
	var buffer bytes.Buffer
	if err := g.prompt.Execute(&buffer, map[string]interface{}{"EXAMPLE_JSON": string(example)}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buffer.String(), nil
}

// ParseTranscript decodes the model's JSON answer into sorted, normalized
// segments. Segments with no text or a negative span are dropped.
func ParseTranscript(in string) ([]model.TranscriptSegment, error) {
	var raw []model.TranscriptSegment
	if err := json.Unmarshal([]byte(in), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	out := make([]model.TranscriptSegment, 0, len(raw))
	for _, s := range raw {
		s.Text = strings.ToLower(strings.TrimSpace(s.Text))
		if s.Text == "" || s.End < s.Start {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
