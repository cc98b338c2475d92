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

// Package test provides utility functions, sample data and fakes of the
// pipeline's external collaborators to support the application's test suite.
package test

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
)

// StateManager caches the test configuration so it is decoded once per run.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestUploadMessageText returns the notification Cloud Storage publishes
// when a source video lands in the input bucket.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "smart_clips_sources/podcast-episode-042.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/smart_clips_sources/o/podcast-episode-042.mp4",
  "name": "podcast-episode-042.mp4",
  "bucket": "smart_clips_sources",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/smart_clips_sources/o/podcast-episode-042.mp4?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
}`
}

// GetTestJobRequestText returns an auto_generate request as published on the
// job request topic.
func GetTestJobRequestText() string {
	return `{
  "storage": {"backend": "local", "source_id": "podcast.mp4", "target_folder": "out"},
  "settings": {"mode": "auto_generate", "max_clips": 2, "add_captions": false, "crop_mode": "scale_pad"},
  "webhook_callback": "https://hooks.example.com/smart-clips"
}`
}

// SetupOS points the configuration loader at the repository's configs
// directory and the "test" runtime.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, configDir())
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// configDir resolves <repo>/configs from this source file so that tests work
// from any package directory.
func configDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "configs"
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "configs")
}

// GetConfig returns the test configuration, decoding it on first use.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	})
	return state.config
}
