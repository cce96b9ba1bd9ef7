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

// Package workflow_test contains integration tests for the core application workflows.
// This file, `plan_generation_test.go`, tests the complete `PlanGenerationPipeline`.
// The workflow parses a plan request, composes an edit plan with the generative
// model behind the output recovery layer, verifies and assembles the result,
// derives the render script, and persists the plan to BigQuery and GCS.
package workflow_test

import (
	"fmt"
	"log"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/workflow"
	test "github.com/mosaicvideo/gcp-go-video-planner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

// TestPlanGenerationChain performs an end-to-end integration test of the plan
// generation workflow. It simulates a Pub/Sub plan request and runs the entire
// chain of commands to process it. The test's success is determined by whether
// the workflow completes without any errors being added to its context and
// produces a structurally sound plan.
//
// Inputs:
//   - t: A pointer to the testing.T object, provided by the Go testing framework,
//     used for logging, error reporting, and assertions.
func TestPlanGenerationChain(t *testing.T) {
	// Start a new OpenTelemetry trace span. This allows us to trace the execution
	// of this specific test within a distributed tracing system like Google Cloud Trace.
	traceCtx, span := tracer.Start(ctx, "plan-generation-test")
	defer span.End()

	// Initialize the workflow under test with the shared config and cloud
	// clients, using the "creative-flash" generative model configuration.
	planGeneration := workflow.NewPlanGenerationPipeline(config, cloudClients, "creative-flash")

	// Create a new chain of responsibility (cor) context to manage state
	// throughout the workflow execution.
	chainCtx := cor.NewBaseContext()
	// Pass the Go context (which includes our tracing information) into the chain context.
	chainCtx.SetContext(traceCtx)
	// Set the initial input for the workflow: a JSON payload that mimics a
	// real plan request message.
	chainCtx.Add(cor.CtxIn, test.GetTestPlanRequestMessageText())

	// Execute the entire plan generation workflow.
	planGeneration.Execute(chainCtx)

	// After execution, loop through any errors that were recorded in the context
	// by the workflow's commands and print them for debugging.
	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}

	// If the context contains any errors, we mark the trace span with an error status.
	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute plan generation test")
	}

	// The primary assertion of the test: verify that the workflow's context has no errors.
	// If this passes, it means every command in the chain executed successfully.
	require.False(t, chainCtx.HasErrors())

	// Inspect the finished plan. The recovery layer guarantees schema
	// conformance, and the chain guarantees identity, ordering, referential
	// integrity, and a render script.
	plan := chainCtx.Get(workflow.GetPlanOutputParamName()).(*model.EditPlan)
	assert.Equal(t, "req-test-0001", plan.RequestId)
	assert.NotEmpty(t, plan.Title)
	assert.NotEmpty(t, plan.Structure.Segments)
	assert.NotEmpty(t, plan.RenderScript)
	assert.NotEmpty(t, plan.PlanUrl)
	for i := 1; i < len(plan.Structure.Segments); i++ {
		assert.Less(t, plan.Structure.Segments[i-1].Order, plan.Structure.Segments[i].Order)
	}

	// Mark the trace span as "Ok" to signify a successful test run.
	span.SetStatus(codes.Ok, "passed - plan generation test")

	// For debugging purposes, log the final plan produced by the workflow.
	log.Println(plan)
}
