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
// command that derives an FFmpeg render script from a validated edit plan.
//
// Logic Flow:
// By the time this command runs, the plan's structure has been validated and
// its asset references verified, so script generation is a pure, deterministic
// transformation with no model involvement.
//
//  1. Each segment contributes one `-i` input, sourced from the asset's URI
//     and trimmed to the segment's duration.
//  2. A filter graph stitches the trimmed streams together. When every
//     transition is a hard cut the graph is a simple concat; any fade or
//     dissolve switches the graph to a chain of xfade filters with a fixed
//     overlap.
//  3. The complete argument string is stored on the plan's RenderScript field
//     for the persistence and upload commands that follow.
//
// The script is arguments only. Executing FFmpeg is the renderer's job, not
// this service's.
package commands

import (
	"fmt"
	"strings"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/cloud"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/cor"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
)

// TransitionOverlapSeconds is the fixed duration of a fade or dissolve
// between two segments. Cuts have no overlap.
const TransitionOverlapSeconds = 0.5

// RenderScriptBuilder is a command that converts a plan's timeline into an
// FFmpeg argument script.
type RenderScriptBuilder struct {
	cor.BaseCommand
}

// NewRenderScriptBuilder is the constructor for the RenderScriptBuilder command.
//
// Inputs:
//   - name: A string name for this command instance.
//
// Outputs:
//   - *RenderScriptBuilder: A pointer to the newly instantiated command.
func NewRenderScriptBuilder(name string) *RenderScriptBuilder {
	return &RenderScriptBuilder{BaseCommand: *cor.NewBaseCommand(name)}
}

// BuildScript derives the FFmpeg argument string for a plan. It is exposed as
// a method so the API layer can regenerate a script without running the whole
// chain.
//
// Inputs:
//   - plan: The validated edit plan.
//   - assets: The asset inventory from the originating request, used to
//     resolve segment asset IDs to source URIs.
//
// Outputs:
//   - string: The complete FFmpeg argument string.
//   - error: An error if a segment references an asset missing from the inventory.
func (c *RenderScriptBuilder) BuildScript(plan *model.EditPlan, assets []*model.AssetRef) (string, error) {
	byId := make(map[string]*model.AssetRef, len(assets))
	for _, asset := range assets {
		byId[asset.Id] = asset
	}

	segments := plan.Structure.Segments
	var args strings.Builder
	args.WriteString("-y")

	// One input per segment, in timeline order.
	for _, segment := range segments {
		asset, ok := byId[segment.AssetId]
		if !ok {
			return "", fmt.Errorf("segment %q references unknown asset %q", segment.Id, segment.AssetId)
		}
		fmt.Fprintf(&args, " -t %.3f -i %s", segment.Duration, asset.Uri)
	}

	// Trim each input and reset its timestamps so the streams can be joined.
	var filter strings.Builder
	for i, segment := range segments {
		fmt.Fprintf(&filter, "[%d:v]trim=duration=%.3f,setpts=PTS-STARTPTS[v%d];", i, segment.Duration, i)
	}

	// A lone segment has no following segment to transition into, so its
	// declared transition is moot and the graph degenerates to a one-input
	// concat. The xfade chain needs at least two inputs to label [vout].
	if len(segments) < 2 || hardCutsOnly(segments) {
		for i := range segments {
			fmt.Fprintf(&filter, "[v%d]", i)
		}
		fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[vout]", len(segments))
	} else {
		// Chain xfade filters. The offset of each transition is the running
		// timeline position where the overlap begins.
		previous := "v0"
		offset := 0.0
		for i := 1; i < len(segments); i++ {
			transition := segments[i-1].Transition
			if transition == "" || transition == model.TransitionCut {
				// xfade has no "cut"; a zero-length fade is the same thing.
				transition = model.TransitionFade
			}
			overlap := TransitionOverlapSeconds
			if segments[i-1].Transition == "" || segments[i-1].Transition == model.TransitionCut {
				overlap = 0.0
			}
			offset += segments[i-1].Duration - overlap
			label := fmt.Sprintf("x%d", i)
			if i == len(segments)-1 {
				label = "vout"
			}
			fmt.Fprintf(&filter, "[%s][v%d]xfade=transition=%s:duration=%.3f:offset=%.3f[%s];",
				previous, i, transition, overlap, offset, label)
			previous = label
		}
	}

	graph := strings.TrimSuffix(filter.String(), ";")
	fmt.Fprintf(&args, " -filter_complex \"%s\" -map \"[vout]\" plan_%s.mp4", graph, plan.Id)
	return args.String(), nil
}

// hardCutsOnly reports whether every transition in the timeline is a cut.
func hardCutsOnly(segments []*model.Segment) bool {
	for _, segment := range segments {
		if segment.Transition != "" && segment.Transition != model.TransitionCut {
			return false
		}
	}
	return true
}

// Execute contains the core logic for attaching the render script.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *RenderScriptBuilder) Execute(context cor.Context) {
	plan := context.Get(c.GetInputParam()).(*model.EditPlan)
	request := context.Get(cloud.GetPlanRequestName()).(*model.PlanRequest)

	script, err := c.BuildScript(plan, request.Assets)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	plan.RenderScript = script

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), plan)
}
