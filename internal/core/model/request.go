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

package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrUnknownMode              = errors.New("unknown mode")
	ErrUnknownCropMode          = errors.New("unknown crop mode")
	ErrUnknownBackend           = errors.New("unknown storage backend")
	ErrUnsupportedAspectRatio   = errors.New("unsupported aspect ratio")
	ErrManualTimestampsRequired = errors.New("manual_timestamps required for manual_generate mode")
	ErrInvalidManualTimestamp   = errors.New("invalid manual timestamp")
	ErrInvalidDurationBounds    = errors.New("invalid duration bounds")
	ErrInvalidWebhookCallback   = errors.New("invalid webhook callback")
	ErrMissingSource            = errors.New("missing source id")
	ErrInvalidMaxClips          = errors.New("max_clips must be at least 1")
)

// Mode selects which of the three job pipelines runs.
type Mode string

const (
	ModeAnalyzeOnly    Mode = "analyze_only"
	ModeAutoGenerate   Mode = "auto_generate"
	ModeManualGenerate Mode = "manual_generate"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeAnalyzeOnly, ModeAutoGenerate, ModeManualGenerate:
		return true
	}
	return false
}

// UnmarshalText rejects unknown modes.
func (m *Mode) UnmarshalText(b []byte) error {
	v := Mode(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, string(b))
	}
	*m = v
	return nil
}

// CropMode selects how a horizontal clip is turned into a vertical one.
type CropMode string

const (
	CropModeAuto     CropMode = "auto"
	CropModeCrop     CropMode = "crop"
	CropModeScalePad CropMode = "scale_pad"
)

func (c CropMode) Valid() bool {
	switch c {
	case CropModeAuto, CropModeCrop, CropModeScalePad:
		return true
	}
	return false
}

// UnmarshalText rejects unknown crop modes.
func (c *CropMode) UnmarshalText(b []byte) error {
	v := CropMode(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCropMode, string(b))
	}
	*c = v
	return nil
}

// Backend names a storage implementation.
type Backend string

const (
	BackendGCS   Backend = "gcs"
	BackendS3    Backend = "s3"
	BackendDrive Backend = "drive"
	BackendLocal Backend = "local"
)

func (b Backend) Valid() bool {
	switch b {
	case BackendGCS, BackendS3, BackendDrive, BackendLocal:
		return true
	}
	return false
}

// AspectRatio is a W:H pair such as 9:16.
type AspectRatio struct {
	Width  int
	Height int
}

func (a AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", a.Width, a.Height)
}

// ParseAspectRatio parses "W:H" where both sides are positive integers.
func ParseAspectRatio(in string) (AspectRatio, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(in), ":")
	if !ok {
		return AspectRatio{}, fmt.Errorf("%w: %q", ErrUnsupportedAspectRatio, in)
	}
	wi, err := strconv.Atoi(w)
	if err != nil || wi <= 0 {
		return AspectRatio{}, fmt.Errorf("%w: %q", ErrUnsupportedAspectRatio, in)
	}
	hi, err := strconv.Atoi(h)
	if err != nil || hi <= 0 {
		return AspectRatio{}, fmt.Errorf("%w: %q", ErrUnsupportedAspectRatio, in)
	}
	return AspectRatio{Width: wi, Height: hi}, nil
}

// ManualTimestamp is a caller supplied clip range in seconds.
type ManualTimestamp struct {
	Start float64 `json:"start" toml:"start"`
	End   float64 `json:"end" toml:"end"`
}

// Weights are the caller supplied multipliers of the four sub-scores. They
// are not required to sum to one.
type Weights struct {
	SpeechEnergy    float64
	FacePresence    float64
	SceneChange     float64
	CaptionKeywords float64
}

// Settings controls a single smart clips job.
type Settings struct {
	Mode             Mode              `json:"mode" toml:"mode"`
	ManualTimestamps []ManualTimestamp `json:"manual_timestamps,omitempty" toml:"manual_timestamps"`

	TargetDuration int `json:"target_duration" toml:"target_duration"`
	MinDuration    int `json:"min_duration" toml:"min_duration"`
	MaxDuration    int `json:"max_duration" toml:"max_duration"`
	MaxClips       int `json:"max_clips" toml:"max_clips"`

	SpeechEnergyWeight    float64 `json:"speech_energy_weight" toml:"speech_energy_weight"`
	FacePresenceWeight    float64 `json:"face_presence_weight" toml:"face_presence_weight"`
	SceneChangeWeight     float64 `json:"scene_change_weight" toml:"scene_change_weight"`
	CaptionKeywordsWeight float64 `json:"caption_keywords_weight" toml:"caption_keywords_weight"`

	AddCaptions       bool     `json:"add_captions" toml:"add_captions"`
	AspectRatio       string   `json:"aspect_ratio" toml:"aspect_ratio"`
	ApplyFaceTracking bool     `json:"apply_face_tracking" toml:"apply_face_tracking"`
	CropMode          CropMode `json:"crop_mode" toml:"crop_mode"`

	CaptionFont     string `json:"caption_font" toml:"caption_font"`
	CaptionFontSize int    `json:"caption_font_size" toml:"caption_font_size"`
	CaptionColor    string `json:"caption_color" toml:"caption_color"`
}

// DefaultSettings returns the settings applied when a request omits a field.
func DefaultSettings() Settings {
	return Settings{
		Mode:                  ModeAutoGenerate,
		TargetDuration:        30,
		MinDuration:           20,
		MaxDuration:           45,
		MaxClips:              3,
		SpeechEnergyWeight:    0.3,
		FacePresenceWeight:    0.2,
		SceneChangeWeight:     0.2,
		CaptionKeywordsWeight: 0.3,
		AddCaptions:           true,
		AspectRatio:           "9:16",
		ApplyFaceTracking:     true,
		CropMode:              CropModeAuto,
		CaptionFont:           "Montserrat-Black",
		CaptionFontSize:       28,
		CaptionColor:          "&H00FFFF&",
	}
}

// Weights returns the scoring weights as given, without normalization.
func (s Settings) Weights() Weights {
	return Weights{
		SpeechEnergy:    s.SpeechEnergyWeight,
		FacePresence:    s.FacePresenceWeight,
		SceneChange:     s.SceneChangeWeight,
		CaptionKeywords: s.CaptionKeywordsWeight,
	}
}

// Validate checks the settings for the configured mode.
func (s Settings) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}
	if !s.CropMode.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCropMode, s.CropMode)
	}
	if _, err := ParseAspectRatio(s.AspectRatio); err != nil {
		return err
	}
	switch s.Mode {
	case ModeManualGenerate:
		if len(s.ManualTimestamps) == 0 {
			return ErrManualTimestampsRequired
		}
		for i, ts := range s.ManualTimestamps {
			if ts.Start < 0 || ts.End <= ts.Start {
				return fmt.Errorf("%w: #%d [%.2f, %.2f]", ErrInvalidManualTimestamp, i+1, ts.Start, ts.End)
			}
		}
	case ModeAnalyzeOnly, ModeAutoGenerate:
		if s.MinDuration <= 0 || s.MinDuration > s.TargetDuration || s.TargetDuration > s.MaxDuration {
			return fmt.Errorf("%w: min=%d target=%d max=%d", ErrInvalidDurationBounds, s.MinDuration, s.TargetDuration, s.MaxDuration)
		}
		if s.MaxClips < 1 {
			return ErrInvalidMaxClips
		}
	}
	return nil
}

// StorageRef points at the source media and the folder that receives the clips.
type StorageRef struct {
	Backend      Backend `json:"backend"`
	SourceID     string  `json:"source_id"`
	TargetFolder string  `json:"target_folder"`
}

// SmartClipsRequest is the body of a smart clips job submission.
type SmartClipsRequest struct {
	Storage         StorageRef `json:"storage"`
	Settings        Settings   `json:"settings"`
	WebhookCallback string     `json:"webhook_callback"`
}

// NewSmartClipsRequest returns a request pre-populated with defaults so that a
// JSON body decoded on top of it only overrides the fields it names.
func NewSmartClipsRequest(defaults Settings, backend Backend) *SmartClipsRequest {
	return &SmartClipsRequest{
		Storage:  StorageRef{Backend: backend},
		Settings: defaults,
	}
}

// Validate checks the storage reference, the callback and the settings.
func (r *SmartClipsRequest) Validate() error {
	if !r.Storage.Backend.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, r.Storage.Backend)
	}
	if strings.TrimSpace(r.Storage.SourceID) == "" {
		return ErrMissingSource
	}
	if r.WebhookCallback != "" {
		u, err := url.Parse(r.WebhookCallback)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidWebhookCallback, r.WebhookCallback)
		}
	}
	return r.Settings.Validate()
}
