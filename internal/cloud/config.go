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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients used to talk to Google Cloud.
//
// Structs:
//   - BigQueryDataSource: dataset and table holding job records.
//   - VertexAiLLMModel: settings for a rate-limited Gemini model.
//   - TopicSubscription: a single Pub/Sub subscription.
//   - Storage: blob store settings for every supported backend.
//   - Tools, Detection, Scenes, Transcription, Webhook: pipeline collaborators.
//   - Config: the top-level struct that aggregates all of the above.
package cloud

import (
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

// DefaultSafetySettings leaves every harm category unblocked; transcripts are
// transcribed verbatim whatever their content.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the job record store.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`    // The name of the BigQuery dataset.
	JobsTable   string `toml:"jobs_table"` // The table holding one row per job.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage holds the settings of every storage backend. Only the backend a
// request names is ever constructed.
type Storage struct {
	DefaultBackend        string `toml:"default_backend"`           // Backend used when a request does not name one.
	InputBucket           string `toml:"input_bucket"`              // GCS bucket resolved for bare source object names.
	OutputBucket          string `toml:"output_bucket"`             // GCS bucket receiving rendered clips.
	SignedURLTTLInMinutes int    `toml:"signed_url_ttl_in_minutes"` // Lifetime of signed clip URLs.
	S3Endpoint            string `toml:"s3_endpoint"`               // Optional S3 compatible endpoint (MinIO, R2).
	S3Region              string `toml:"s3_region"`
	S3Bucket              string `toml:"s3_bucket"`
	S3AccessKey           string `toml:"s3_access_key"`
	S3SecretKey           string `toml:"s3_secret_key"`
	DriveCredentialsFile  string `toml:"drive_credentials_file"` // Service account key for Google Drive.
	LocalRoot             string `toml:"local_root"`             // Root directory of the local backend.
}

// Tools locates the external binaries the media adapters shell out to.
type Tools struct {
	FFmpeg       string `toml:"ffmpeg"`
	FFprobe      string `toml:"ffprobe"`
	Whisper      string `toml:"whisper"`
	WhisperModel string `toml:"whisper_model"`
}

// Detection configures the subject detector.
type Detection struct {
	Backend           string  `toml:"backend"`             // "vision" or "none".
	RequestsPerSecond float64 `toml:"requests_per_second"` // Client side limit on detector calls.
	Burst             int     `toml:"burst"`
	TrackingStride    int     `toml:"tracking_stride"`  // Source frames between two tracked samples.
	PresenceSamples   int     `toml:"presence_samples"` // Frames inspected per candidate when scoring.
	Label             string  `toml:"label"`            // Object label counted as a subject.
	MinScore          float32 `toml:"min_score"`        // Detections below this confidence are dropped.
}

// Scenes configures the scene detector.
type Scenes struct {
	Backend   string  `toml:"backend"`   // "ffmpeg" or "video_intelligence".
	Threshold float64 `toml:"threshold"` // ffmpeg scene score above which a frame starts a new scene.
}

// Transcription configures the transcript provider.
type Transcription struct {
	Backend     string `toml:"backend"` // "whisper" or "gemini".
	ModelSize   string `toml:"model_size"`
	ComputeType string `toml:"compute_type"`
	Language    string `toml:"language"`
	AgentModel  string `toml:"agent_model"` // Key into AgentModels for the gemini backend.
	Prompt      string `toml:"prompt"`
}

// Webhook configures result delivery.
type Webhook struct {
	Attempts         int    `toml:"attempts"`
	DelaysInSeconds  []int  `toml:"delays_in_seconds"` // Delay before each attempt.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
	DefaultCallback  string `toml:"default_callback"` // Used by jobs started from upload notifications.
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		Port                      int    `toml:"port"`
		ScratchRoot               string `toml:"scratch_root"`        // Parent of every job scratch directory.
		MaxConcurrentJobs         int    `toml:"max_concurrent_jobs"` // Jobs executing at once; the rest wait.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"`
	} `toml:"application"`
	Telemetry struct {
		Enabled bool `toml:"enabled"` // Export traces and metrics to Google Cloud.
	} `toml:"telemetry"`
	Logging struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"logging"`
	Tools              Tools                        `toml:"tools"`
	Detection          Detection                    `toml:"detection"`
	Scenes             Scenes                       `toml:"scenes"`
	Transcription      Transcription                `toml:"transcription"`
	Storage            Storage                      `toml:"storage"`
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"` // Keyed by a logical name (e.g., "JobRequests").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`        // Keyed by a logical name (e.g., "transcriber").
	Webhook            Webhook                      `toml:"webhook"`
	SmartClips         model.Settings               `toml:"smart_clips"` // Request defaults.
}

// NewConfig creates a Config whose maps are ready for decoding and whose
// request defaults are those of model.DefaultSettings.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		SmartClips:         model.DefaultSettings(),
	}
}
