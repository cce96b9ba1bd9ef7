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

// Package main contains the logic for setting up and starting the Pub/Sub message listener.
// The listener initiates plan generation in response to queued plan request messages,
// giving callers an asynchronous alternative to the synchronous HTTP endpoint.
//
// Functions:
//   - SetupListeners: Initializes and starts the listener for the plan request
//     topic, attaching the plan generation workflow.
package main

import (
	"context"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
)

// SetupListeners configures and starts the background Pub/Sub listener.
// It attaches the shared plan generation workflow to the plan request topic
// listener, so queued requests flow through the same chain as HTTP requests.
//
// Inputs:
//   - config: The application's configuration, containing topic subscription settings.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listener.
//
// Outputs:
//   - This function does not return any value. It starts the listener as a background goroutine.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	// Assign the shared plan generation workflow as the command to be executed
	// by the listener for the plan request topic. A message that fails the
	// chain is left unacknowledged and redelivered per the subscription's
	// retry policy.
	cloudClients.PubSubListeners["PlanRequests"].SetCommand(state.planWorkflow)
	// Start the listener in a background goroutine. It will now begin
	// receiving and processing messages from its subscription.
	cloudClients.PubSubListeners["PlanRequests"].Listen(ctx)
}
