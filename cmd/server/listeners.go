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
	"log/slog"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/workflow"
)

// Logical subscription names in the topic_subscriptions configuration.
const (
	JobRequestsSubscription   = "JobRequests"
	SourceUploadsSubscription = "SourceUploads"
)

// SetupListeners attaches the intake workflows to their subscriptions and
// starts listening. Jobs read from either subscription run on the runner.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, runner *workflow.Runner, ctx context.Context) {
	if l, ok := cloudClients.PubSubListeners[JobRequestsSubscription]; ok {
		l.SetCommand(workflow.NewJobRequestWorkflow(config, runner))
		l.Listen(ctx)
	} else {
		slog.WarnContext(ctx, "no job request subscription configured")
	}

	if l, ok := cloudClients.PubSubListeners[SourceUploadsSubscription]; ok {
		l.SetCommand(workflow.NewUploadTriggerWorkflow(config, runner))
		l.Listen(ctx)
	}
}
