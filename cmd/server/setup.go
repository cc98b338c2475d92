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

package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-smart-clips/internal/api"
	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/commands"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/services"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/workflow"
	"github.com/jaycherian/gcp-go-smart-clips/internal/notify"
)

// StateManager holds the process wide configuration, clients and runner.
type StateManager struct {
	config      *cloud.Config
	cloud       *cloud.ServiceClients
	runner      *workflow.Runner
	jobService  *services.JobService
	clipService *services.ClipService
}

var state = &StateManager{}

// SetupOS defaults to the configs directory and the local runtime; both can
// be overridden from the environment.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig returns the configuration, loading it on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(config)
		state.config = config
	}
	return state.config
}

// InitState loads the configuration, starts telemetry and builds the clients,
// the runner and the listeners. Failures are fatal.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	var records commands.Inserter
	if config.BigQueryDataSource.JobsTable != "" {
		records = cloudClients.BiqQueryClient.Dataset(config.BigQueryDataSource.DatasetName).Table(config.BigQueryDataSource.JobsTable).Inserter()
		state.jobService = &services.JobService{
			BigqueryClient: cloudClients.BiqQueryClient,
			DatasetName:    config.BigQueryDataSource.DatasetName,
			JobsTable:      config.BigQueryDataSource.JobsTable,
		}
	}
	state.clipService = &services.ClipService{
		StorageClient: cloudClients.StorageClient,
		IAMClient:     cloudClients.IAMClient,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
		TTL:           time.Duration(config.Storage.SignedURLTTLInMinutes) * time.Minute,
	}

	collaborators, err := workflow.NewCollaborators(config, cloudClients, notify.NewWebhookFromConfig(config.Webhook), records)
	if err != nil {
		panic(err)
	}
	state.runner = workflow.NewRunner(workflow.NewSmartClipsWorkflow(config, collaborators), config.Application.MaxConcurrentJobs)

	SetupListeners(config, cloudClients, state.runner, ctx)
}

// Handlers exposes the state to the HTTP routes.
func Handlers() *api.Handlers {
	h := &api.Handlers{
		Defaults:       state.config.SmartClips,
		DefaultBackend: model.Backend(state.config.Storage.DefaultBackend),
		Runner:         state.runner,
		Clips:          state.clipService,
	}
	if state.jobService != nil {
		h.Jobs = state.jobService
	}
	return h
}
