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

// Package workflow assembles the commands of package commands into the
// chains that run smart clips jobs, and runs those jobs in the background.
package workflow

import (
	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/cor"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/inference"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// Collaborators are the external services a job talks to. Records may be nil
// when no job store is configured.
type Collaborators struct {
	Storage    commands.StorageResolver
	Transcoder ports.MediaTranscoder
	Scenes     ports.SceneDetector
	Models     commands.ModelRegistry
	Notifier   ports.ResultNotifier
	Records    commands.Inserter
}

// SmartClipsWorkflow runs one job that is already stored in the context under
// commands.JobParam. The processing chain stops at the first error; the
// finalize chain always runs and persists and reports the outcome exactly
// once.
type SmartClipsWorkflow struct {
	cor.BaseCommand
	config        *cloud.Config
	collaborators Collaborators
	chain         cor.Chain
	finalize      cor.Chain
}

// NewSmartClipsWorkflow assembles the job chain.
//
// Inputs:
//   - config: The application configuration. Scratch root, presence samples,
//     tracking stride and model keys come from it.
//   - collaborators: The concrete ports the commands call.
//
// Outputs:
//   - *SmartClipsWorkflow: The workflow, ready to Execute against a context
//     holding a job.
func NewSmartClipsWorkflow(config *cloud.Config, collaborators Collaborators) *SmartClipsWorkflow {
	out := &SmartClipsWorkflow{
		BaseCommand:   *cor.NewBaseCommandWithParams("smart-clips-workflow", commands.JobParam, cor.CtxOut),
		config:        config,
		collaborators: collaborators,
	}
	out.initializeChain()
	return out
}

// TranscriberKey identifies the configured transcription model.
func TranscriberKey(config *cloud.Config) inference.ModelKey {
	return inference.ModelKey{
		Backend: config.Transcription.Backend,
		Size:    config.Transcription.ModelSize,
		Compute: config.Transcription.ComputeType,
	}
}

// DetectorKey identifies the configured subject detector.
func DetectorKey(config *cloud.Config) inference.ModelKey {
	return inference.ModelKey{Backend: config.Detection.Backend}
}

func (w *SmartClipsWorkflow) initializeChain() {
	c := w.collaborators
	detector := DetectorKey(w.config)

	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewJobScratch("job-scratch", w.config.Application.ScratchRoot))
	out.AddCommand(commands.NewSourceDownload("source-download", c.Storage))
	out.AddCommand(commands.NewMediaProbe("media-probe", c.Transcoder))
	out.AddCommand(commands.NewSceneDetection("scene-detection", c.Scenes))
	out.AddCommand(commands.NewTranscription("transcription", c.Models, TranscriberKey(w.config)))
	out.AddCommand(commands.NewCandidateGeneration("candidate-generation"))
	out.AddCommand(commands.NewSegmentScoring("segment-scoring", c.Transcoder, c.Models, detector, w.config.Detection.PresenceSamples))
	out.AddCommand(commands.NewAnalysisReport("analysis-report"))
	out.AddCommand(commands.NewClipSelection("clip-selection"))
	out.AddCommand(commands.NewManualSegments("manual-segments"))
	out.AddCommand(commands.NewClipRenderer("clip-renderer", c.Transcoder, c.Storage, c.Models, detector, w.config.Detection.TrackingStride))
	out.AddCommand(commands.NewGenerateReport("generate-report"))
	w.chain = out

	fin := cor.NewBaseChain(w.GetName() + "-finalize").ContinueOnFailure(true)
	fin.AddCommand(commands.NewJobPersistToBigQuery("job-persist", c.Records))
	fin.AddCommand(commands.NewResultNotification("result-notification", c.Notifier))
	w.finalize = fin
}

// Execute runs the processing chain, then the finalize chain. The caller
// closes the context, which removes the scratch directory.
func (w *SmartClipsWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
	w.finalize.Execute(context)
}
