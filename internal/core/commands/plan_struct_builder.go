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
// command that turns a model-produced draft into a persistent edit plan.
//
// Logic Flow:
// The recovery session already guaranteed the draft is schema-conformant, so
// this command handles the concerns the schema cannot see: identity,
// provenance, timeline ordering, and referential integrity against the
// request's asset inventory.
//
//  1. It receives the `model.PlanDraft` from the previous command and the
//     `model.PlanRequest` from the well-known context key.
//  2. It creates a new `model.EditPlan` whose ID derives deterministically
//     from the request ID.
//  3. It copies the creative fields and the timeline into the plan, sorting
//     segments by their declared order.
//  4. It verifies every segment references an asset that actually exists in
//     the request's inventory. A hallucinated asset ID fails the chain here
//     rather than at render time.
package commands

import (
	"fmt"
	"sort"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
)

// PlanStructBuilder is a command that folds a generated draft into a
// persistent EditPlan and checks its asset references.
type PlanStructBuilder struct {
	cor.BaseCommand
	OutputParamName string // The specific context key where the built plan will be stored.
}

// NewPlanStructBuilder is the constructor for the PlanStructBuilder command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - outputParamName: The context key under which to store the built EditPlan.
//
// Outputs:
//   - *PlanStructBuilder: A pointer to the newly instantiated command.
func NewPlanStructBuilder(name string, outputParamName string) *PlanStructBuilder {
	return &PlanStructBuilder{
		BaseCommand:     *cor.NewBaseCommand(name),
		OutputParamName: outputParamName,
	}
}

// Execute contains the core logic for building the persistent plan.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *PlanStructBuilder) Execute(context cor.Context) {
	draft := context.Get(c.GetInputParam()).(*model.PlanDraft)
	request := context.Get(cloud.GetPlanRequestName()).(*model.PlanRequest)

	// Create the plan shell. The ID is a deterministic hash of the request ID,
	// so re-running the same request overwrites rather than duplicates.
	plan := model.NewEditPlan(request.Id)
	plan.Title = draft.Title
	plan.Description = draft.Description
	plan.Structure = draft.Structure

	// Normalize the timeline: segments arrive in whatever order the model
	// emitted them, but the declared order field is authoritative.
	sort.SliceStable(plan.Structure.Segments, func(i, j int) bool {
		return plan.Structure.Segments[i].Order < plan.Structure.Segments[j].Order
	})

	// Verify referential integrity against the request's asset inventory. The
	// schema can only check shapes; it cannot know which asset IDs exist.
	known := make(map[string]bool, len(request.Assets))
	for _, asset := range request.Assets {
		known[asset.Id] = true
	}
	for _, segment := range plan.Structure.Segments {
		if !known[segment.AssetId] {
			context.AddError(c.GetName(), fmt.Errorf(
				"segment %q references unknown asset %q", segment.Id, segment.AssetId))
		}
	}
	if context.HasErrors() {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.OutputParamName, plan)
	context.Add(c.GetOutputParam(), plan)
}
