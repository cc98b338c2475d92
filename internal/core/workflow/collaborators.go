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

package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	"github.com/jaycherian/gcp-go-smart-clips/internal/media/ffmpeg"
	"github.com/jaycherian/gcp-go-smart-clips/internal/media/whisper"
	"github.com/jaycherian/gcp-go-smart-clips/internal/storage"
)

// Backend names accepted by the configuration besides the cloud ones.
const (
	DetectionBackendNone        = "none"
	ScenesBackendFFmpeg         = "ffmpeg"
	TranscriptionBackendWhisper = "whisper"
)

var ErrUnsupportedBackend = errors.New("unsupported backend")

// NewCollaborators builds the production collaborators of a job from the
// configuration. clients may be nil when no Google Cloud backend is selected;
// notifier and records are supplied by the caller.
func NewCollaborators(
	config *cloud.Config,
	clients *cloud.ServiceClients,
	notifier ports.ResultNotifier,
	records commands.Inserter) (Collaborators, error) {

	transcoder := ffmpeg.New(config.Tools.FFmpeg, config.Tools.FFprobe)
	scenes, err := NewSceneDetector(config, clients)
	if err != nil {
		return Collaborators{}, err
	}
	return Collaborators{
		Storage:    storage.NewConfiguredRegistry(config, clients),
		Transcoder: transcoder,
		Scenes:     scenes,
		Models:     inference.NewModels(TranscriberLoader(config, clients, transcoder), DetectorLoader(config, clients)),
		Notifier:   notifier,
		Records:    records,
	}, nil
}

// NewSceneDetector returns the configured scene detector.
func NewSceneDetector(config *cloud.Config, clients *cloud.ServiceClients) (ports.SceneDetector, error) {
	switch config.Scenes.Backend {
	case ScenesBackendFFmpeg, "":
		return ffmpeg.NewSceneDetector(config.Tools.FFmpeg, config.Scenes.Threshold), nil
	case cloud.ScenesBackendVideoIntelligence:
		if clients == nil || clients.VideoIntelligenceClient == nil {
			return nil, fmt.Errorf("%w: %s needs a Video Intelligence client", ErrUnsupportedBackend, config.Scenes.Backend)
		}
		return cloud.NewShotChangeDetector(clients.VideoIntelligenceClient, clients.StorageClient, config.Storage.InputBucket), nil
	}
	return nil, fmt.Errorf("%w: scenes %q", ErrUnsupportedBackend, config.Scenes.Backend)
}

// TranscriberLoader loads whisper.cpp models from disk or binds the Gemini
// agent model named in the configuration.
func TranscriberLoader(config *cloud.Config, clients *cloud.ServiceClients, audio *ffmpeg.Transcoder) inference.Loader[ports.TranscriptProvider] {
	return func(ctx context.Context, key inference.ModelKey) (ports.TranscriptProvider, error) {
		switch key.Backend {
		case TranscriptionBackendWhisper, "":
			t, err := whisper.Load(
				config.Tools.Whisper,
				whisper.ModelPath(config.Tools.WhisperModel, key.Size),
				config.Transcription.Language,
				audio,
				config.Application.ScratchRoot)
			if err != nil {
				return nil, err
			}
			return t, nil
		case cloud.TranscriptionBackendGemini:
			if clients == nil {
				return nil, fmt.Errorf("%w: %s needs Google Cloud clients", ErrUnsupportedBackend, key.Backend)
			}
			m, ok := clients.AgentModels[config.Transcription.AgentModel]
			if !ok {
				return nil, fmt.Errorf("%w: no agent model %q", ErrUnsupportedBackend, config.Transcription.AgentModel)
			}
			t, err := cloud.NewGeminiTranscriber(m, clients.StorageClient, config.Storage.InputBucket, audio,
				config.Application.ScratchRoot, config.Transcription.Prompt)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
		return nil, fmt.Errorf("%w: transcription %q", ErrUnsupportedBackend, key.Backend)
	}
}

// DetectorLoader binds Cloud Vision behind a client side rate limit. The
// none backend disables detection: jobs fall back to center crops and
// letterboxing.
func DetectorLoader(config *cloud.Config, clients *cloud.ServiceClients) inference.Loader[ports.SubjectDetector] {
	return func(ctx context.Context, key inference.ModelKey) (ports.SubjectDetector, error) {
		switch key.Backend {
		case DetectionBackendNone, "":
			return nil, nil
		case cloud.DetectionBackendVision:
			if clients == nil || clients.VisionClient == nil {
				return nil, fmt.Errorf("%w: %s needs a Vision client", ErrUnsupportedBackend, key.Backend)
			}
			d := cloud.NewVisionSubjectDetector(clients.VisionClient, config.Detection)
			return cloud.NewRateLimitedDetector(d, config.Detection.RequestsPerSecond, config.Detection.Burst), nil
		}
		return nil, fmt.Errorf("%w: detection %q", ErrUnsupportedBackend, key.Backend)
	}
}
