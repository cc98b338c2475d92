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

// Package ffmpeg implements the media transcoder and a scene detector on top
// of the ffmpeg and ffprobe command line tools.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

var (
	_ ports.MediaTranscoder = (*Transcoder)(nil)
	_ ports.SceneDetector   = (*SceneDetector)(nil)
)

// Transcoder runs every operation as a separate ffmpeg process. Failures
// carry the tool's combined output.
type Transcoder struct {
	ffmpeg  string
	ffprobe string
}

// New creates a transcoder. Empty paths use ffmpeg and ffprobe from PATH.
func New(ffmpegPath, ffprobePath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Transcoder{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// encodeArgs is the delivery encoding of reframed clips.
var encodeArgs = []string{"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-c:a", "aac", "-b:a", "192k"}

func (t *Transcoder) run(ctx context.Context, op string, args ...string) error {
	cmd := exec.CommandContext(ctx, t.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, tail(b))
	}
	return nil
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the first video stream of the file.
func (t *Transcoder) Probe(ctx context.Context, video string) (*model.VideoInfo, error) {
	cmd := exec.CommandContext(ctx, t.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames:format=duration",
		"-of", "json",
		video,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w\n%s", err, stderr.String())
	}
	return parseProbe(b)
}

func parseProbe(b []byte) (*model.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found")
	}
	s := out.Streams[0]
	info := &model.VideoInfo{Width: s.Width, Height: s.Height}

	var err error
	if info.FPS, err = parseRate(s.RFrameRate); err != nil {
		return nil, err
	}
	if out.Format.Duration != "" {
		if info.Duration, err = strconv.ParseFloat(out.Format.Duration, 64); err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
		}
	}
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		info.FrameCount = n
	} else {
		info.FrameCount = int(math.Round(info.Duration * info.FPS))
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid video dimensions %dx%d", info.Width, info.Height)
	}
	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(r string) (float64, error) {
	num, den, found := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", r, err)
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("parse frame rate %q: invalid denominator", r)
	}
	return n / d, nil
}

// ExtractSegment copies [start, end] without re-encoding.
func (t *Transcoder) ExtractSegment(ctx context.Context, video string, start, end float64, out string) error {
	return t.run(ctx, "extract segment",
		"-y",
		"-ss", seconds(start),
		"-i", video,
		"-t", seconds(end-start),
		"-c", "copy",
		out,
	)
}

// ExtractAudio writes 16 kHz mono PCM, the input format of speech models.
func (t *Transcoder) ExtractAudio(ctx context.Context, video string, out string) error {
	return t.run(ctx, "extract audio",
		"-y",
		"-i", video,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		out,
	)
}

// ExtractFrame decodes the frame shown at the given time as JPEG.
func (t *Transcoder) ExtractFrame(ctx context.Context, video string, at float64) (*model.Frame, error) {
	cmd := exec.CommandContext(ctx, t.ffmpeg,
		"-v", "error",
		"-ss", seconds(at),
		"-i", video,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extract frame at %.3f: %w\n%s", at, err, stderr.String())
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("ffmpeg extract frame at %.3f: no frame decoded", at)
	}
	return &model.Frame{Time: at, Image: b}, nil
}

// ExtractFrames writes every nth frame of video into dir as JPEG files.
func (t *Transcoder) ExtractFrames(ctx context.Context, video string, every int, dir string) ([]*model.Frame, error) {
	every = max(1, every)
	info, err := t.Probe(ctx, video)
	if err != nil {
		return nil, err
	}
	pattern := filepath.Join(dir, "frame_%06d.jpg")
	err = t.run(ctx, "extract frames",
		"-y",
		"-i", video,
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))'", every),
		"-vsync", "vfr",
		"-q:v", "3",
		pattern,
	)
	if err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return framesFromFiles(files, every, info), nil
}

func framesFromFiles(files []string, every int, info *model.VideoInfo) []*model.Frame {
	frames := make([]*model.Frame, len(files))
	for i, f := range files {
		idx := i * every
		frames[i] = &model.Frame{
			Index:  idx,
			Time:   float64(idx) / info.FPS,
			Width:  info.Width,
			Height: info.Height,
			Path:   f,
		}
	}
	return frames
}

// ScalePad fits the whole frame into width x height and pads the short axis
// with black.
func (t *Transcoder) ScalePad(ctx context.Context, video string, width, height int, out string) error {
	vf := scalePadFilter(width, height)
	return t.run(ctx, "scale pad", append([]string{"-y", "-i", video, "-vf", vf}, append(encodeArgs, out)...)...)
}

func scalePadFilter(width, height int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease:force_divisible_by=2,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		width, height, width, height)
}

// CropStatic crops a fixed window and scales it to width x height.
func (t *Transcoder) CropStatic(ctx context.Context, video string, w model.CropWindow, width, height int, out string) error {
	vf := fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d", w.Width, w.Height, w.X, w.Y, width, height)
	return t.run(ctx, "crop", append([]string{"-y", "-i", video, "-vf", vf}, append(encodeArgs, out)...)...)
}

// CropTracked moves a cropW x cropH window following a sendcmd script.
func (t *Transcoder) CropTracked(ctx context.Context, video string, commands string, cropW, cropH, width, height int, out string) error {
	script := out + ".cmd"
	if err := os.WriteFile(script, []byte(commands), 0o644); err != nil {
		return fmt.Errorf("write crop commands: %w", err)
	}
	defer os.Remove(script)
	vf := fmt.Sprintf("sendcmd=f=%s,crop=%d:%d:0:0,scale=%d:%d", escapeFilterPath(script), cropW, cropH, width, height)
	return t.run(ctx, "tracked crop", append([]string{"-y", "-i", video, "-vf", vf}, append(encodeArgs, out)...)...)
}

// BurnCaptions overlays an ASS subtitle file.
func (t *Transcoder) BurnCaptions(ctx context.Context, video string, subtitles string, out string) error {
	return t.run(ctx, "burn captions",
		"-y",
		"-i", video,
		"-vf", "ass="+escapeFilterPath(subtitles),
		"-c:v", "libx264", "-crf", "18", "-preset", "medium",
		"-c:a", "aac", "-b:a", "192k",
		out,
	)
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

// tail keeps the end of long tool output, where ffmpeg prints the failure.
func tail(b []byte) string {
	const limit = 4096
	if len(b) > limit {
		b = b[len(b)-limit:]
	}
	return string(b)
}
