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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions for data models that
// are primarily used for in-memory operations during the execution of a
// workflow. These objects are considered "transient" because they are not
// persisted to the dataset in their current form. Instead, they serve as
// intermediate containers for data as it's being processed, transformed, and
// passed between different commands in a chain of responsibility.
package model

// AssetRef describes one media asset available to the plan: where it lives,
// what it is, and how much material it holds.
type AssetRef struct {
	Id       string  `json:"id"`       // The caller-assigned asset ID referenced by plan segments.
	Uri      string  `json:"uri"`      // The GCS URI of the asset.
	MimeType string  `json:"mime_type"` // The sniffed media type, e.g. "video/mp4".
	Duration float64 `json:"duration"` // The length of the source material in seconds.
}

// PlanRequest is the inbound unit of work: a creative brief plus the asset
// inventory the plan may draw from. It arrives as the JSON body of the API
// call or the payload of the Pub/Sub trigger message.
type PlanRequest struct {
	Id             string      `json:"id"`              // The caller-assigned request ID; plan IDs derive from it.
	Brief          string      `json:"brief"`           // The creative brief describing the desired cut.
	Style          string      `json:"style,omitempty"` // Optional creative style preset key (e.g. "teaser").
	TargetDuration float64     `json:"target_duration"` // The requested total runtime in seconds.
	Assets         []*AssetRef `json:"assets"`          // The media assets the plan may reference.
}

// PlanDraft is the wire shape the generative model is asked to produce: the
// creative fields plus the timeline, without any of the identity or
// provenance the service adds afterwards. The recovered generic value is
// decoded into this struct before being folded into a persistent EditPlan.
type PlanDraft struct {
	Title       string         `json:"title"`                 // The model-suggested title.
	Description string         `json:"description,omitempty"` // The model's description of the cut.
	Structure   *PlanStructure `json:"structure"`             // The proposed timeline.
}
