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

// Command smartclips runs one smart clips job against a local video and
// prints the result payload as JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/workflow"
	"github.com/jaycherian/gcp-go-smart-clips/internal/notify"
	"github.com/jaycherian/gcp-go-smart-clips/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "smartclips <input.mp4>",
		Short:        "Score a local video and cut vertical clips from it",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	f := root.Flags()
	f.String("runtime", "local", "Configuration runtime (configs/.env.<runtime>.toml)")
	f.String("out", "out", "Directory receiving the clips")
	f.String("mode", "", "analyze_only, auto_generate or manual_generate")
	f.Int("clips", 0, "Number of clips for auto_generate")
	f.String("timestamps", "", "Clip ranges for manual_generate, e.g. 10-25,60-90")
	f.String("crop-mode", "", "auto, crop or scale_pad")
	f.String("aspect-ratio", "", "Output aspect ratio, e.g. 9:16")
	f.Bool("captions", true, "Burn captions into the clips")
	f.Bool("face-tracking", true, "Follow the subject when cropping")
	f.String("callback", "", "Also POST the result to this URL")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runtime, _ := cmd.Flags().GetString("runtime")
	config, err := loadConfig(runtime)
	if err != nil {
		return err
	}
	telemetry.SetupLogging(config)

	outDir, _ := cmd.Flags().GetString("out")
	if outDir, err = filepath.Abs(outDir); err != nil {
		return err
	}
	config.Storage.LocalRoot = outDir

	source, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	req := model.NewSmartClipsRequest(config.SmartClips, model.BackendLocal)
	req.Storage.SourceID = source
	req.WebhookCallback, _ = cmd.Flags().GetString("callback")
	if err := applyFlags(cmd, &req.Settings); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	var clients *cloud.ServiceClients
	if needsCloud(config) {
		if clients, err = cloud.NewCloudServiceClients(ctx, config); err != nil {
			return fmt.Errorf("failed to create cloud clients: %w", err)
		}
		defer clients.Close()
	}

	var notifier ports.ResultNotifier = notify.NewWriter(cmd.OutOrStdout())
	if req.WebhookCallback != "" {
		notifier = notify.Fanout{notifier, notify.NewWebhookFromConfig(config.Webhook)}
	}
	collaborators, err := workflow.NewCollaborators(config, clients, notifier, nil)
	if err != nil {
		return err
	}

	runner := workflow.NewRunner(workflow.NewSmartClipsWorkflow(config, collaborators), 1)
	return runner.Run(ctx, commands.NewJob(model.NewJobID(), req))
}

func loadConfig(runtime string) (*cloud.Config, error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return nil, err
		}
	}
	if err := os.Setenv(cloud.EnvConfigRuntime, runtime); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	cloud.LoadConfig(config)
	return config, nil
}

// needsCloud reports whether a configured backend talks to Google Cloud.
func needsCloud(config *cloud.Config) bool {
	return config.Detection.Backend == cloud.DetectionBackendVision ||
		config.Scenes.Backend == cloud.ScenesBackendVideoIntelligence ||
		config.Transcription.Backend == cloud.TranscriptionBackendGemini
}

func applyFlags(cmd *cobra.Command, s *model.Settings) error {
	flags := cmd.Flags()
	if v, _ := flags.GetString("mode"); v != "" {
		if err := s.Mode.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if v, _ := flags.GetInt("clips"); v > 0 {
		s.MaxClips = v
	}
	if v, _ := flags.GetString("crop-mode"); v != "" {
		if err := s.CropMode.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}
	if v, _ := flags.GetString("aspect-ratio"); v != "" {
		s.AspectRatio = v
	}
	if flags.Changed("captions") {
		s.AddCaptions, _ = flags.GetBool("captions")
	}
	if flags.Changed("face-tracking") {
		s.ApplyFaceTracking, _ = flags.GetBool("face-tracking")
	}
	if v, _ := flags.GetString("timestamps"); v != "" {
		ts, err := parseTimestamps(v)
		if err != nil {
			return err
		}
		s.ManualTimestamps = ts
		if !flags.Changed("mode") {
			s.Mode = model.ModeManualGenerate
		}
	}
	return nil
}

// parseTimestamps reads "start-end" ranges in seconds separated by commas.
func parseTimestamps(in string) ([]model.ManualTimestamp, error) {
	var out []model.ManualTimestamp
	for _, part := range strings.Split(in, ",") {
		start, end, ok := strings.Cut(strings.TrimSpace(part), "-")
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidManualTimestamp, part)
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(start), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidManualTimestamp, part)
		}
		e, err := strconv.ParseFloat(strings.TrimSpace(end), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidManualTimestamp, part)
		}
		out = append(out, model.ManualTimestamp{Start: s, End: e})
	}
	return out, nil
}
