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

package whisper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranscript(t *testing.T) {
	got, err := parseTranscript([]byte(`{
  "systeminfo": "AVX = 1",
  "transcription": [
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:02,500"}, "offsets": {"from": 0, "to": 2500}, "text": " Wow, this is AMAZING."},
    {"timestamps": {"from": "00:00:02,500", "to": "00:00:03,000"}, "offsets": {"from": 2500, "to": 3000}, "text": "   "},
    {"timestamps": {"from": "00:00:03,000", "to": "00:00:07,120"}, "offsets": {"from": 3000, "to": 7120}, "text": " Why?"}
  ]
}`))
	require.NoError(t, err)
	assert.Equal(t, []model.TranscriptSegment{
		{Start: 0, End: 2.5, Text: "wow, this is amazing."},
		{Start: 3, End: 7.12, Text: "why?"},
	}, got)
}

func TestParseTranscriptRejectsGarbage(t *testing.T) {
	_, err := parseTranscript([]byte("{"))
	assert.Error(t, err)
}

func TestModelPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "ggml-base.bin"), ModelPath(dir, "base"))

	file := filepath.Join(dir, "custom.bin")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Equal(t, file, ModelPath(file, "base"))
}

func TestLoadRequiresModel(t *testing.T) {
	_, err := Load("sh", filepath.Join(t.TempDir(), "missing.bin"), "", nil, "")
	assert.ErrorIs(t, err, ErrModelNotFound)
}
