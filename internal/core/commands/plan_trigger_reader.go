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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// initial command in the plan generation workflow.
//
// Logic Flow:
// This command serves as the entry point for any workflow triggered by a plan
// request, whether it arrived as a Pub/Sub message or as an HTTP request
// body. Either way the payload is a JSON document describing the request.
//
//  1. The command receives the raw request data as a JSON string from the context.
//  2. It unmarshals (parses) this JSON string into a `model.PlanRequest` struct.
//  3. It rejects requests missing the fields every later step depends on:
//     the request ID (plan identity derives from it), the brief, and a
//     non-empty asset inventory.
//  4. The parsed request is placed back into the context under a well-known
//     key so that every subsequent command in the chain (prompt composition,
//     asset reference checks, render script asset lookup) can access it.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
)

// PlanTriggerToRequest is a command that parses an inbound trigger payload
// into a validated PlanRequest.
type PlanTriggerToRequest struct {
	cor.BaseCommand // Embeds the BaseCommand for common functionality.
}

// NewPlanTriggerToRequest is the constructor for the PlanTriggerToRequest command.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *PlanTriggerToRequest: A pointer to the newly instantiated command.
func NewPlanTriggerToRequest(name string) *PlanTriggerToRequest {
	return &PlanTriggerToRequest{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute contains the core logic for parsing the trigger payload.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution, containing
//     the raw message data in the input parameter.
func (c *PlanTriggerToRequest) Execute(context cor.Context) {
	// Retrieve the raw JSON payload from the context.
	in := context.Get(c.GetInputParam()).(string)

	// Parse the JSON string into the PlanRequest struct.
	var out model.PlanRequest
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal plan request: %w", err))
		return
	}

	// Reject requests that cannot possibly produce a plan. These checks are on
	// the caller's payload, not the model's output, so they belong here rather
	// than in the recovery schema.
	if out.Id == "" {
		context.AddError(c.GetName(), fmt.Errorf("plan request is missing an id"))
	}
	if out.Brief == "" {
		context.AddError(c.GetName(), fmt.Errorf("plan request is missing a brief"))
	}
	if len(out.Assets) == 0 {
		context.AddError(c.GetName(), fmt.Errorf("plan request has no assets"))
	}
	if context.HasErrors() {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	// If successful, increment the success counter for telemetry.
	c.GetSuccessCounter().Add(context.GetContext(), 1)

	// Add the request to the context under a well-known key so later commands
	// (composer, struct builder, render script builder) can access it without
	// depending on chain position.
	context.Add(cloud.GetPlanRequestName(), &out)

	// Also add it to the default output parameter so it becomes the input for
	// the very next command in the chain.
	context.Add(c.GetOutputParam(), &out)
}
