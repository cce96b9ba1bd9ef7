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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements the
// plan generation workflow.
package workflow

import (
	"text/template"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/commands"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
)

// PlanGenerationWorkflow orchestrates the production of one edit plan from an
// inbound request. It's structured as a Chain of Responsibility (cor.Chain)
// that executes a sequence of commands: request parsing, model-backed plan
// composition (behind the output recovery layer), structural assembly, render
// script derivation, and persistence.
//
// The workflow is triggered two ways: by a Pub/Sub message on the plan
// request subscription, or synchronously by the HTTP API. Both hand the
// request JSON to the same chain.
type PlanGenerationWorkflow struct {
	cor.BaseCommand
	config         *cloud.Config
	bigqueryClient *bigquery.Client
	genaiModel     *cloud.QuotaAwareGenerativeAIModel
	storageClient  *storage.Client
	planTemplate   *template.Template
	chain          cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the entire plan generation workflow by invoking the underlying
// chain. The context carries the trigger payload in and the finished plan out.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (m *PlanGenerationWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// GetPlanOutputParamName returns the context key under which the completed
// EditPlan is stored. The API layer uses this to read the result back after
// a synchronous execution.
func GetPlanOutputParamName() string {
	return "__edit_plan__"
}

// initializeChain builds the sequence of commands that make up this workflow.
// Each command is an atomic unit of work whose output feeds the next.
// This method is called by the constructor.
func (m *PlanGenerationWorkflow) initializeChain() {
	// Create the chain that will hold all the command steps.
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse the trigger payload (Pub/Sub message or HTTP body) into a
	// validated PlanRequest and publish it under the well-known context key.
	out.AddCommand(commands.NewPlanTriggerToRequest("plan-trigger-to-request"))

	// Step 2: Compose the plan draft with the generative model. All of the
	// extraction, repair, validation and re-prompting lives inside this
	// command's recovery session, so the rest of the chain only ever sees a
	// schema-conformant draft.
	out.AddCommand(commands.NewPlanComposer("compose-plan", m.config, m.genaiModel, m.planTemplate))

	// Step 3: Fold the draft into a persistent EditPlan: assign identity,
	// sort the timeline, and verify every segment references a real asset.
	out.AddCommand(commands.NewPlanStructBuilder("build-edit-plan", GetPlanOutputParamName()))

	// Step 4: Derive the FFmpeg render script from the validated timeline.
	// Purely deterministic, no model involvement.
	out.AddCommand(commands.NewRenderScriptBuilder("build-render-script"))

	// Step 5: Persist the completed plan record to the plan table in BigQuery.
	out.AddCommand(commands.NewPlanToBigQuery(
		"write-to-bigquery",
		m.bigqueryClient,
		m.config.BigQueryDataSource.DatasetName,
		m.config.BigQueryDataSource.PlanTable,
		GetPlanOutputParamName()))

	// Step 6: Upload the plan document to the plan bucket and record its URL.
	out.AddCommand(commands.NewPlanUploadToGCS("upload-plan-document", m.storageClient, m.config.Storage.PlanBucket))

	// Assign the fully constructed chain to the workflow instance.
	m.chain = out
}

// NewPlanGenerationPipeline is the constructor for the PlanGenerationWorkflow.
// It compiles the plan prompt template and initializes the command chain.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the Vertex AI agent model config to use (e.g., "creative-flash").
//
// Returns:
//   - A pointer to a newly created and fully initialized PlanGenerationWorkflow.
func NewPlanGenerationPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string) *PlanGenerationWorkflow {

	// Parse the plan prompt template from the configuration file.
	planTemplate, err := template.New("plan-template").Parse(config.PromptTemplates.PlanPrompt)
	if err != nil {
		panic(err) // Panic on failure, as the app cannot run without a valid template.
	}

	// Create the PlanGenerationWorkflow instance with all its dependencies.
	pipeline := &PlanGenerationWorkflow{
		BaseCommand:    *cor.NewBaseCommand("plan-generation-pipeline"),
		config:         config,
		bigqueryClient: serviceClients.BigQueryClient,
		genaiModel:     serviceClients.AgentModels[agentModelName],
		storageClient:  serviceClients.StorageClient,
		planTemplate:   planTemplate,
	}
	// Build the command chain for the new pipeline instance.
	pipeline.initializeChain()
	return pipeline
}
