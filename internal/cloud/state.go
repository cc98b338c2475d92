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

// Package cloud provides components for interacting with Google Cloud services.
// This file initializes and holds every client the service needs, acting as
// the dependency container handed to workflows and API handlers.
package cloud

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vision "cloud.google.com/go/vision/v2/apiv1"
	"google.golang.org/genai"
)

// Detector and scene backends that require a Google Cloud client.
const (
	DetectionBackendVision         = "vision"
	ScenesBackendVideoIntelligence = "video_intelligence"
	TranscriptionBackendGemini     = "gemini"
)

// ServiceClients is the central container for the clients that interact with
// Google Cloud. Optional clients are nil when the configuration does not
// select the backend that needs them.
type ServiceClients struct {
	StorageClient           *storage.Client
	PubsubClient            *pubsub.Client
	GenAIClient             *genai.Client
	BiqQueryClient          *bigquery.Client
	IAMClient               *credentials.IamCredentialsClient
	VisionClient            *vision.ImageAnnotatorClient            // Set for the vision detection backend.
	VideoIntelligenceClient *videointelligence.Client               // Set for the video_intelligence scene backend.
	PubSubListeners         map[string]*PubSubListener              // Keyed by the logical subscription name.
	AgentModels             map[string]*QuotaAwareGenerativeAIModel // Keyed by the logical model name.
}

// Close releases every open client connection.
func (c *ServiceClients) Close() error {
	var errs []error
	if c.StorageClient != nil {
		errs = append(errs, c.StorageClient.Close())
	}
	if c.PubsubClient != nil {
		errs = append(errs, c.PubsubClient.Close())
	}
	if c.BiqQueryClient != nil {
		errs = append(errs, c.BiqQueryClient.Close())
	}
	if c.IAMClient != nil {
		errs = append(errs, c.IAMClient.Close())
	}
	if c.VisionClient != nil {
		errs = append(errs, c.VisionClient.Close())
	}
	if c.VideoIntelligenceClient != nil {
		errs = append(errs, c.VideoIntelligenceClient.Close())
	}
	return errors.Join(errs...)
}

// NewCloudServiceClients creates the Google Cloud clients selected by the
// configuration. On failure the clients created so far are closed.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{
		PubSubListeners: make(map[string]*PubSubListener),
		AgentModels:     make(map[string]*QuotaAwareGenerativeAIModel),
	}
	defer func() {
		if err != nil {
			_ = cloud.Close()
			cloud = nil
		}
	}()

	if cloud.StorageClient, err = storage.NewClient(ctx); err != nil {
		return cloud, err
	}
	if cloud.PubsubClient, err = pubsub.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return cloud, err
	}
	if cloud.BiqQueryClient, err = bigquery.NewClient(ctx, config.Application.GoogleProjectId); err != nil {
		return cloud, err
	}
	if cloud.IAMClient, err = credentials.NewIamCredentialsClient(ctx); err != nil {
		return cloud, err
	}

	if config.Detection.Backend == DetectionBackendVision {
		if cloud.VisionClient, err = vision.NewImageAnnotatorClient(ctx); err != nil {
			return cloud, err
		}
	}
	if config.Scenes.Backend == ScenesBackendVideoIntelligence {
		if cloud.VideoIntelligenceClient, err = videointelligence.NewClient(ctx); err != nil {
			return cloud, err
		}
	}

	if config.Transcription.Backend == TranscriptionBackendGemini || len(config.AgentModels) > 0 {
		slog.InfoContext(ctx, "creating genai client",
			"project", config.Application.GoogleProjectId, "location", config.Application.GoogleLocation)
		cloud.GenAIClient, err = genai.NewClient(ctx, &genai.ClientConfig{
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return cloud, err
		}
		for key, values := range config.AgentModels {
			generation := &genai.GenerateContentConfig{
				Temperature:       genai.Ptr[float32](values.Temperature),
				TopP:              genai.Ptr[float32](values.TopP),
				TopK:              genai.Ptr[float32](values.TopK),
				MaxOutputTokens:   values.MaxTokens,
				SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
				SafetySettings:    DefaultSafetySettings,
				ResponseMIMEType:  values.OutputFormat,
			}
			cloud.AgentModels[key] = NewQuotaAwareModel(generation, values.Model, cloud.GenAIClient.Models, values.RateLimit)
		}
	}

	// Commands are attached once the workflows are built.
	for key, values := range config.TopicSubscriptions {
		listener, err := NewPubSubListener(cloud.PubsubClient, values.Name, nil)
		if err != nil {
			return cloud, err
		}
		cloud.PubSubListeners[key] = listener
	}
	return cloud, nil
}
