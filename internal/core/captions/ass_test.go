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

package captions_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/captions"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var style = captions.Style{Font: "Montserrat-Black", Size: 28, Color: "&H00FFFF&"}

func TestCuesKeepOnlyContainedSegments(t *testing.T) {
	transcript := []model.TranscriptSegment{
		{Start: 8, End: 11, Text: "crosses the start"},
		{Start: 10, End: 12.5, Text: "first"},
		{Start: 13, End: 14.25, Text: "second {\\b1}"},
		{Start: 39, End: 41, Text: "crosses the end"},
	}
	got := captions.Cues(transcript, 10, 40)
	assert.Equal(t, []captions.Cue{
		{Start: 0, End: 2500 * time.Millisecond, Text: "first"},
		{Start: 3 * time.Second, End: 4250 * time.Millisecond, Text: "second (b1)"},
	}, got)
}

func TestCuesDropBackslashes(t *testing.T) {
	got := captions.Cues([]model.TranscriptSegment{{Start: 1, End: 2, Text: `c:\path and \N no break`}}, 0, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "c:path and N no break", got[0].Text)
	assert.NotContains(t, got[0].Text, `\`)
}

func TestRenderUsesRequestedStyle(t *testing.T) {
	doc := captions.Render([]captions.Cue{{Start: 61*time.Second + 234*time.Millisecond, End: 62 * time.Second, Text: "hello"}}, style)
	assert.Contains(t, doc, "Style: Default,Montserrat-Black,28,&H00FFFF&,&H000000FF,")
	assert.Contains(t, doc, "PlayResX: 384\nPlayResY: 288\n")
	assert.Contains(t, doc, "Dialogue: 0,0:01:01.23,0:01:02.00,Default,,0,0,0,,hello\n")
	assert.True(t, strings.HasPrefix(doc, "[Script Info]\n"))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions_1.ass")

	ok, err := captions.WriteFile(path, []model.TranscriptSegment{{Start: 50, End: 60, Text: "outside"}}, 0, 30, style)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	ok, err = captions.WriteFile(path, []model.TranscriptSegment{{Start: 1, End: 2, Text: "inside"}}, 0, 30, style)
	require.NoError(t, err)
	assert.True(t, ok)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), ",,inside\n")
}

func TestStyleFromSettings(t *testing.T) {
	assert.Equal(t, style, captions.StyleFromSettings(model.DefaultSettings()))
}
