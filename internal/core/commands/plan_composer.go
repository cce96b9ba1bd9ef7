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
// command responsible for composing an edit plan with a generative model.
//
// Logic Flow:
// This is the creative heart of the pipeline and the place where the
// structured-output recovery layer earns its keep. The model is asked for a
// strict JSON document, but its output routinely arrives wrapped in prose,
// fenced, truncated, or structurally damaged; instead of calling the model
// and parsing by hand, this command runs a bounded recovery session that
// extracts, repairs, validates and, when needed, re-prompts.
//
//  1. It receives the validated `model.PlanRequest` from the context.
//  2. It constructs a detailed prompt using a Go template, populated with the
//     brief, the target duration, a rendered asset inventory, and a complete
//     example of the desired JSON structure (few-shot prompting). A style
//     preset from the configuration may override the template and the system
//     instructions.
//  3. It opens a recovery session against the configured agent model with the
//     declarative plan schema and the configured attempt budget.
//  4. The session returns either a schema-conformant generic value or a
//     terminal error carrying the full attempt history.
//  5. The value is decoded into a `model.PlanDraft` and placed into the
//     context for the struct builder.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
)

// PlanComposer is a command that uses a generative model, behind a recovery
// session, to compose an edit plan draft for a request.
type PlanComposer struct {
	cor.BaseCommand
	config   *cloud.Config                      // Application configuration, used for style presets and recovery tuning.
	model    *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	template *template.Template                 // The Go template for building the plan prompt.
}

// NewPlanComposer is the constructor for the PlanComposer command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application's configuration object.
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the plan prompt.
//
// Outputs:
//   - *PlanComposer: A pointer to the newly instantiated command.
func NewPlanComposer(
	name string,
	config *cloud.Config,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *PlanComposer {
	return &PlanComposer{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		model:       generativeAIModel,
		template:    template,
	}
}

// GenerateParams creates the map of dynamic data to be injected into the
// prompt template.
//
// Inputs:
//   - request: The plan request being composed.
//
// Outputs:
//   - map[string]interface{}: A map of keys and values for template substitution.
func (t *PlanComposer) GenerateParams(request *model.PlanRequest) map[string]interface{} {
	params := make(map[string]interface{})
	params["BRIEF"] = request.Brief
	params["TARGET_DURATION"] = request.TargetDuration

	// Render the asset inventory as one line per asset so the model can only
	// reference material that actually exists.
	// Example: "asset-sunrise | video/mp4 | 45.0s | gs://assets/sunrise.mp4"
	var inventory strings.Builder
	for _, asset := range request.Assets {
		fmt.Fprintf(&inventory, "%s | %s | %.1fs | %s\n", asset.Id, asset.MimeType, asset.Duration, asset.Uri)
	}
	params["ASSET_INVENTORY"] = inventory.String()

	// Provide a complete, well-formed JSON example in the prompt. This
	// technique (few-shot prompting) significantly improves the reliability
	// and structure of the model's output.
	exampleDraft, _ := json.Marshal(model.GetExamplePlanDraft())
	params["EXAMPLE_JSON"] = string(exampleDraft)
	return params
}

// resolveStyle returns the per-request system instruction override and the
// prompt template override for the request's style preset, when one is
// configured. Empty strings mean "use the defaults".
func (t *PlanComposer) resolveStyle(request *model.PlanRequest) (system string, prompt string) {
	if request.Style == "" {
		return "", ""
	}
	style, ok := t.config.Styles[request.Style]
	if !ok {
		return "", ""
	}
	return style.SystemInstructions, style.Plan
}

// Execute contains the core logic for composing the plan draft.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (t *PlanComposer) Execute(context cor.Context) {
	// Retrieve the validated plan request from the context.
	request := context.Get(cloud.GetPlanRequestName()).(*model.PlanRequest)

	// Resolve any style preset before building the prompt.
	systemOverride, promptOverride := t.resolveStyle(request)

	// Build the prompt: either the standard template or the style's override
	// template, executed with the same parameter map.
	promptTemplate := t.template
	if promptOverride != "" {
		parsed, err := template.New(request.Style).Parse(promptOverride)
		if err != nil {
			t.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(t.GetName(), fmt.Errorf("failed to parse style prompt template: %w", err))
			return
		}
		promptTemplate = parsed
	}
	var buffer bytes.Buffer
	if err := promptTemplate.Execute(&buffer, t.GenerateParams(request)); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute prompt template: %w", err))
		return
	}

	// Run the bounded recovery session: generate, then extract/repair/validate,
	// re-prompting on failure up to the configured attempt budget. Session
	// internals (attempt counts, failure kinds, excerpts) flow to the logs
	// through the slog observer.
	session := recovery.NewSession(
		cloud.NewGeminiGenerator(t.model),
		model.PlanSchema(),
		t.config.Recovery.MaxAttempts,
		recovery.NewSlogObserver(nil),
	)
	session.SetLookAheadWindow(t.config.Recovery.LookAheadWindow)
	value, err := session.Recover(context.GetContext(), buffer.String(), systemOverride)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("plan composition failed: %w", err))
		return
	}

	// Decode the schema-conformant generic value into the typed draft.
	draft := &model.PlanDraft{}
	if err := recovery.DecodeInto(value, draft); err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), err)
		return
	}

	// On success, update the success counter and hand the draft to the next
	// command in the chain.
	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), draft)
}
