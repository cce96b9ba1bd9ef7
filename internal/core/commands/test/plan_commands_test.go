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

// Package commands_test contains unit tests for the deterministic plan
// workflow commands. These tests run against an in-memory chain context and
// require no cloud connectivity.
package commands_test

import (
	"context"
	"encoding/json"
	"testing"
	"text/template"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/commands"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChainContext creates an in-memory chain context ready for command
// execution.
func newChainContext() cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	return chainCtx
}

func TestPlanTriggerToRequestParsesPayload(t *testing.T) {
	request := model.GetExamplePlanRequest()
	payload, err := json.Marshal(request)
	require.NoError(t, err)

	chainCtx := newChainContext()
	chainCtx.Add(cor.CtxIn, string(payload))

	cmd := commands.NewPlanTriggerToRequest("trigger-test")
	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	parsed := chainCtx.Get(cloud.GetPlanRequestName()).(*model.PlanRequest)
	assert.Equal(t, request.Id, parsed.Id)
	assert.Equal(t, request.Brief, parsed.Brief)
	assert.Len(t, parsed.Assets, len(request.Assets))

	// The parsed request must also feed the next command in the chain.
	assert.Same(t, parsed, chainCtx.Get(cor.CtxOut).(*model.PlanRequest))
}

func TestPlanTriggerToRequestRejectsIncompletePayload(t *testing.T) {
	chainCtx := newChainContext()
	chainCtx.Add(cor.CtxIn, `{"brief": "make something"}`)

	cmd := commands.NewPlanTriggerToRequest("trigger-test")
	cmd.Execute(chainCtx)

	// Missing ID and missing assets both fail the payload check.
	require.True(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cloud.GetPlanRequestName()))
}

func TestPlanTriggerToRequestRejectsMalformedJson(t *testing.T) {
	chainCtx := newChainContext()
	chainCtx.Add(cor.CtxIn, `{"id": "req-1",`)

	cmd := commands.NewPlanTriggerToRequest("trigger-test")
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
}

func TestPlanComposerGenerateParams(t *testing.T) {
	config := cloud.NewConfig()
	tmpl := template.Must(template.New("plan").Parse("{{.BRIEF}}"))
	composer := commands.NewPlanComposer("composer-test", config, nil, tmpl)

	request := model.GetExamplePlanRequest()
	params := composer.GenerateParams(request)

	assert.Equal(t, request.Brief, params["BRIEF"])
	assert.Equal(t, request.TargetDuration, params["TARGET_DURATION"])

	// Every asset must appear in the rendered inventory, one per line, so the
	// model can only reference real material.
	inventory := params["ASSET_INVENTORY"].(string)
	for _, asset := range request.Assets {
		assert.Contains(t, inventory, asset.Id)
		assert.Contains(t, inventory, asset.Uri)
	}

	// The few-shot example must be valid JSON of the draft wire shape.
	var example model.PlanDraft
	require.NoError(t, json.Unmarshal([]byte(params["EXAMPLE_JSON"].(string)), &example))
	assert.NotEmpty(t, example.Title)
	assert.NotEmpty(t, example.Structure.Segments)
}

func TestPlanStructBuilderSortsAndVerifies(t *testing.T) {
	request := model.GetExamplePlanRequest()
	draft := model.GetExamplePlanDraft()

	// Shuffle the timeline; the declared order field is authoritative.
	segments := draft.Structure.Segments
	segments[0], segments[len(segments)-1] = segments[len(segments)-1], segments[0]

	chainCtx := newChainContext()
	chainCtx.Add(cloud.GetPlanRequestName(), request)
	chainCtx.Add(cor.CtxIn, draft)

	cmd := commands.NewPlanStructBuilder("builder-test", "__plan__")
	cmd.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	plan := chainCtx.Get("__plan__").(*model.EditPlan)

	// Identity derives from the request, content from the draft.
	assert.Equal(t, request.Id, plan.RequestId)
	assert.Equal(t, model.NewEditPlan(request.Id).Id, plan.Id)
	assert.Equal(t, draft.Title, plan.Title)

	for i := 1; i < len(plan.Structure.Segments); i++ {
		assert.Less(t, plan.Structure.Segments[i-1].Order, plan.Structure.Segments[i].Order)
	}
}

func TestPlanStructBuilderRejectsUnknownAsset(t *testing.T) {
	request := model.GetExamplePlanRequest()
	draft := model.GetExamplePlanDraft()
	draft.Structure.Segments[1].AssetId = "asset-hallucinated"

	chainCtx := newChainContext()
	chainCtx.Add(cloud.GetPlanRequestName(), request)
	chainCtx.Add(cor.CtxIn, draft)

	cmd := commands.NewPlanStructBuilder("builder-test", "__plan__")
	cmd.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	for _, err := range chainCtx.GetErrors() {
		assert.Contains(t, err.Error(), "asset-hallucinated")
	}
}

func TestRenderScriptBuilderHardCuts(t *testing.T) {
	request := model.GetExamplePlanRequest()
	plan := model.NewEditPlan(request.Id)
	plan.Structure = &model.PlanStructure{
		TotalDuration: 10,
		Segments: []*model.Segment{
			{Id: "s1", AssetId: request.Assets[0].Id, Duration: 5, Order: 1, Transition: model.TransitionCut},
			{Id: "s2", AssetId: request.Assets[1].Id, Duration: 5, Order: 2},
		},
	}

	cmd := commands.NewRenderScriptBuilder("render-test")
	script, err := cmd.BuildScript(plan, request.Assets)
	require.NoError(t, err)

	// Two inputs, trimmed, joined with a plain concat.
	assert.Contains(t, script, "-i "+request.Assets[0].Uri)
	assert.Contains(t, script, "-i "+request.Assets[1].Uri)
	assert.Contains(t, script, "concat=n=2:v=1:a=0[vout]")
	assert.NotContains(t, script, "xfade")
	assert.Contains(t, script, "plan_"+plan.Id+".mp4")
}

func TestRenderScriptBuilderTransitions(t *testing.T) {
	request := model.GetExamplePlanRequest()
	plan := model.NewEditPlan(request.Id)
	plan.Structure = &model.PlanStructure{
		TotalDuration: 15,
		Segments: []*model.Segment{
			{Id: "s1", AssetId: request.Assets[0].Id, Duration: 5, Order: 1, Transition: model.TransitionDissolve},
			{Id: "s2", AssetId: request.Assets[1].Id, Duration: 5, Order: 2, Transition: model.TransitionFade},
			{Id: "s3", AssetId: request.Assets[2].Id, Duration: 5, Order: 3},
		},
	}

	cmd := commands.NewRenderScriptBuilder("render-test")
	script, err := cmd.BuildScript(plan, request.Assets)
	require.NoError(t, err)

	assert.Contains(t, script, "xfade=transition=dissolve")
	assert.Contains(t, script, "xfade=transition=fade")
	// The final filter in the chain feeds the mapped output stream.
	assert.Contains(t, script, "[vout]")
	assert.NotContains(t, script, "concat", "mixed transitions use xfade, not concat")

	// The first dissolve begins half a second before the first segment ends.
	assert.Contains(t, script, "offset=4.500")
}

func TestRenderScriptBuilderSingleSegment(t *testing.T) {
	request := model.GetExamplePlanRequest()
	plan := model.NewEditPlan(request.Id)
	// A one-segment timeline may still declare a fade; with nothing to fade
	// into, the graph must fall back to a one-input concat that labels [vout].
	plan.Structure = &model.PlanStructure{
		TotalDuration: 5,
		Segments: []*model.Segment{
			{Id: "s1", AssetId: request.Assets[0].Id, Duration: 5, Order: 1, Transition: model.TransitionFade},
		},
	}

	cmd := commands.NewRenderScriptBuilder("render-test")
	script, err := cmd.BuildScript(plan, request.Assets)
	require.NoError(t, err)

	assert.Contains(t, script, "concat=n=1:v=1:a=0[vout]")
	assert.Contains(t, script, "-map \"[vout]\"")
	assert.NotContains(t, script, "xfade")
}

func TestRenderScriptBuilderUnknownAsset(t *testing.T) {
	plan := model.NewEditPlan("req-x")
	plan.Structure = &model.PlanStructure{
		TotalDuration: 5,
		Segments: []*model.Segment{
			{Id: "s1", AssetId: "asset-missing", Duration: 5, Order: 1},
		},
	}

	cmd := commands.NewRenderScriptBuilder("render-test")
	_, err := cmd.BuildScript(plan, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset-missing")
}
