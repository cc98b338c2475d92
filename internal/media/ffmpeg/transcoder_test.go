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

package ffmpeg

import (
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{
  "programs": [],
  "streams": [{"width": 1920, "height": 1080, "r_frame_rate": "30000/1001", "nb_frames": "3000"}],
  "format": {"duration": "100.100000"}
}`))
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 29.97, info.FPS, 0.001)
	assert.Equal(t, 3000, info.FrameCount)
	assert.InDelta(t, 100.1, info.Duration, 1e-9)
}

func TestParseProbeEstimatesFrameCount(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams": [{"width": 1280, "height": 720, "r_frame_rate": "25/1"}], "format": {"duration": "10.0"}}`))
	require.NoError(t, err)
	assert.Equal(t, 250, info.FrameCount)
}

func TestParseProbeErrors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"streams": [], "format": {}}`,
		`{"streams": [{"width": 0, "height": 0, "r_frame_rate": "25/1"}], "format": {}}`,
		`{"streams": [{"width": 10, "height": 10, "r_frame_rate": "25/0"}], "format": {}}`,
	} {
		_, err := parseProbe([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestParseSceneTimes(t *testing.T) {
	out := `
[Parsed_showinfo_1 @ 0x1] n:   0 pts:  61440 pts_time:4.8     duration:512
[Parsed_showinfo_1 @ 0x1] n:   1 pts: 153600 pts_time:12      duration:512
[Parsed_showinfo_1 @ 0x1] n:   2 pts:  10240 pts_time:0.8     duration:512
frame=    3 fps=0.0 q=-0.0 Lsize=N/A time=00:00:20.00
`
	assert.Equal(t, []float64{0.8, 4.8, 12}, parseSceneTimes(out))
	assert.Empty(t, parseSceneTimes("frame=0 fps=0.0"))
}

func TestFramesFromFiles(t *testing.T) {
	info := &model.VideoInfo{Width: 640, Height: 360, FPS: 25}
	frames := framesFromFiles([]string{"a.jpg", "b.jpg", "c.jpg"}, 5, info)
	require.Len(t, frames, 3)
	assert.Equal(t, 10, frames[2].Index)
	assert.InDelta(t, 0.4, frames[2].Time, 1e-9)
	assert.Equal(t, "c.jpg", frames[2].Path)
	assert.Equal(t, 640, frames[2].Width)
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `C\:\\tmp\\it\'s.ass`, escapeFilterPath(`C:\tmp\it's.ass`))
	assert.Equal(t, "12.500", seconds(12.5))
}

func TestScalePadFitsBothAxes(t *testing.T) {
	// Landscape and tall portrait sources both fit inside 1080x1920 before padding.
	assert.Equal(t,
		"scale=1080:1920:force_original_aspect_ratio=decrease:force_divisible_by=2,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black",
		scalePadFilter(1080, 1920))
	assert.NotContains(t, scalePadFilter(1920, 1080), ":-2")
}
