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
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
)

// DefaultSceneThreshold is the scene score above which a frame starts a new shot.
const DefaultSceneThreshold = 0.3

var ptsTime = regexp.MustCompile(`pts_time:(\d+\.?\d*)`)

// SceneDetector finds cuts with ffmpeg's scene change score.
type SceneDetector struct {
	ffmpeg    string
	threshold float64
}

// NewSceneDetector creates a detector. threshold is the ffmpeg scene score
// a frame must exceed, 0.3 when not positive.
func NewSceneDetector(ffmpegPath string, threshold float64) *SceneDetector {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}
	return &SceneDetector{ffmpeg: ffmpegPath, threshold: threshold}
}

// DetectScenes returns the cut times in seconds, sorted.
func (d *SceneDetector) DetectScenes(ctx context.Context, video string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-i", video,
		"-vf", fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(d.threshold, 'f', -1, 64)),
		"-f", "null",
		"-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detection: %w\n%s", err, tail(b))
	}
	times := parseSceneTimes(string(b))
	slog.InfoContext(ctx, "detected scene changes", "count", len(times))
	return times, nil
}

func parseSceneTimes(out string) []float64 {
	var times []float64
	for _, m := range ptsTime.FindAllStringSubmatch(out, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		times = append(times, v)
	}
	sort.Float64s(times)
	return times
}
