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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// These example objects are crucial for "few-shot" prompting with the
// generative AI models. By providing a concrete example of the desired JSON
// output structure within the prompt itself, we guide the AI to return data
// that is consistent, correctly formatted, and easily parsable.
package model

// GetExamplePlanDraft creates a sample PlanDraft object. This is used to
// provide a "few-shot" learning example to the generative AI model when it is
// asked to compose an edit plan. It shows the AI the expected JSON structure
// for the entire plan, including the nested structure object and its ordered
// segment array, and demonstrates every allowed transition value.
//
// Outputs:
//   - *PlanDraft: A pointer to a hardcoded PlanDraft object.
func GetExamplePlanDraft() *PlanDraft {
	// Instantiate a PlanDraft with example data for a short product teaser.
	out := &PlanDraft{
		Title:       "Mountain Gear Teaser",
		Description: "A fast-paced thirty second teaser opening on a summit sunrise, cutting through three product shots, and closing on the brand card.",
		Structure: &PlanStructure{
			TotalDuration: 30,
			Segments:      make([]*Segment, 0),
		},
	}
	// Append example segments. The AI is expected to produce segments in
	// timeline order with 1-based order values and durations that sum to the
	// total duration.
	out.Structure.Segments = append(out.Structure.Segments,
		&Segment{Id: "seg-1", AssetId: "asset-sunrise", Duration: 8, Order: 1, Transition: TransitionCut},
		&Segment{Id: "seg-2", AssetId: "asset-boots", Duration: 7, Order: 2, Transition: TransitionDissolve},
		&Segment{Id: "seg-3", AssetId: "asset-jacket", Duration: 7, Order: 3, Transition: TransitionCut},
		&Segment{Id: "seg-4", AssetId: "asset-brand-card", Duration: 8, Order: 4, Transition: TransitionFade},
	)
	return out
}

// GetExamplePlanRequest creates a sample PlanRequest matching the example
// draft, used by tests and by the API documentation endpoint.
//
// Outputs:
//   - *PlanRequest: A pointer to a hardcoded PlanRequest object.
func GetExamplePlanRequest() *PlanRequest {
	out := &PlanRequest{
		Id:             "req-0001",
		Brief:          "Thirty second teaser for the fall mountain gear line. Energetic, sunrise open, brand card close.",
		TargetDuration: 30,
		Assets:         make([]*AssetRef, 0),
	}
	out.Assets = append(out.Assets,
		&AssetRef{Id: "asset-sunrise", Uri: "gs://assets/sunrise.mp4", MimeType: "video/mp4", Duration: 45},
		&AssetRef{Id: "asset-boots", Uri: "gs://assets/boots.mp4", MimeType: "video/mp4", Duration: 20},
		&AssetRef{Id: "asset-jacket", Uri: "gs://assets/jacket.mp4", MimeType: "video/mp4", Duration: 25},
		&AssetRef{Id: "asset-brand-card", Uri: "gs://assets/brand.mp4", MimeType: "video/mp4", Duration: 10},
	)
	return out
}
