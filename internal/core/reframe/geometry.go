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

package reframe

import (
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// PixelScale converts aspect ratio units into output pixels (9:16 is 1080x1920).
const PixelScale = 120

// TargetDimensions returns the output resolution for an aspect ratio.
func TargetDimensions(ar model.AspectRatio) (width, height int) {
	return ar.Width * PixelScale, ar.Height * PixelScale
}

// CropSize returns the window implied by the aspect ratio at full source
// height. The width is not limited to the source width.
func CropSize(ar model.AspectRatio, sourceHeight int) (width, height int) {
	return sourceHeight * ar.Width / ar.Height, sourceHeight
}

// FitCropSize returns the largest window with the aspect ratio that fits in
// the source frame. Sources narrower than the ratio keep their full width and
// lose height instead, so scaling the window to the target never stretches it.
func FitCropSize(ar model.AspectRatio, sourceWidth, sourceHeight int) (width, height int) {
	width, height = CropSize(ar, sourceHeight)
	if width <= sourceWidth {
		return width, height
	}
	return sourceWidth, min(sourceHeight, sourceWidth*ar.Height/ar.Width)
}

// GenerateCropWindows centers one window per trajectory point on that point,
// clamped so that every window lies inside the source frame. A requested
// window larger than the source is shrunk to the source size.
func GenerateCropWindows(centers []model.Point, sourceW, sourceH, cropW, cropH int) []model.CropWindow {
	cropW = min(cropW, sourceW)
	cropH = min(cropH, sourceH)
	out := make([]model.CropWindow, len(centers))
	for i, c := range centers {
		out[i] = model.CropWindow{
			X:      clamp(c.X-cropW/2, 0, sourceW-cropW),
			Y:      clamp(c.Y-cropH/2, 0, sourceH-cropH),
			Width:  cropW,
			Height: cropH,
		}
	}
	return out
}

// CenterWindow is the static window used when tracking is disabled.
func CenterWindow(sourceW, sourceH, cropW, cropH int) model.CropWindow {
	return GenerateCropWindows([]model.Point{{X: sourceW / 2, Y: sourceH / 2}}, sourceW, sourceH, cropW, cropH)[0]
}

// SendCommands renders the windows as an ffmpeg sendcmd script that moves a
// crop filter at the presentation time of each sampled frame.
func SendCommands(windows []model.CropWindow, times []float64) string {
	var b strings.Builder
	for i, w := range windows {
		fmt.Fprintf(&b, "%.3f [enter] crop x %d, crop y %d;\n", times[i], w.X, w.Y)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
