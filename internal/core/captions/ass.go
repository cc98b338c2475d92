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

// Package captions renders transcript segments as an Advanced SubStation
// Alpha document that ffmpeg's ass filter burns into a clip.
package captions

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// The script resolution ffmpeg assigns to converted subtitles. Font sizes are
// relative to it, so 28 stays legible on a 1080x1920 render.
const (
	PlayResX = 384
	PlayResY = 288
)

// Style is the caption look requested by the caller.
type Style struct {
	Font  string
	Size  int
	Color string // ASS colour, e.g. &H00FFFF&.
}

// StyleFromSettings extracts the caption style of a request.
func StyleFromSettings(s model.Settings) Style {
	return Style{Font: s.CaptionFont, Size: s.CaptionFontSize, Color: s.CaptionColor}
}

// Cue is one caption line, timed relative to the clip start.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Cues returns the transcript segments fully inside [start, end], shifted to
// clip-local time. Segments crossing either bound are dropped.
func Cues(transcript []model.TranscriptSegment, start, end float64) []Cue {
	var out []Cue
	for _, seg := range transcript {
		if !seg.Within(start, end) {
			continue
		}
		text := sanitize(seg.Text)
		if text == "" {
			continue
		}
		out = append(out, Cue{Start: seconds(seg.Start - start), End: seconds(seg.End - start), Text: text})
	}
	return out
}

// Render writes a complete ASS document for cues.
func Render(cues []Cue, style Style) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\nPlayResY: %d\n", PlayResX, PlayResY)
	b.WriteString("ScaledBorderAndShadow: yes\n\n")
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,0,2,10,10,150,1\n\n",
		style.Font, style.Size, style.Color)
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", assTime(c.Start), assTime(c.End), c.Text)
	}
	return b.String()
}

// WriteFile renders the captions of [start, end] to path. It reports false,
// and writes nothing, when no transcript segment lies inside the range.
func WriteFile(path string, transcript []model.TranscriptSegment, start, end float64, style Style) (bool, error) {
	cues := Cues(transcript, start, end)
	if len(cues) == 0 {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(Render(cues, style)), 0o644); err != nil {
		return false, fmt.Errorf("failed to write captions: %w", err)
	}
	return true, nil
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

// sanitize keeps caption text from being read as override blocks or breaking
// the single line Dialogue format. ASS has no escape character, so
// backslashes are dropped.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

func seconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
