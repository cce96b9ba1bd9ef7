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

// Package model defines the core data structures for the application. This
// file, `persistent.go`, contains the struct definitions for the data models
// that are persisted to the BigQuery dataset. The struct tags define both the
// JSON wire format used by the API and the BigQuery column mapping used by
// the persistence command.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Transition names the supported ways one segment hands off to the next.
// The generative model is constrained to this set by the plan schema.
const (
	TransitionCut      = "cut"
	TransitionFade     = "fade"
	TransitionDissolve = "dissolve"
)

// Segment is one contiguous slice of the edit timeline: which asset plays,
// for how long, in what position, and how it transitions into the next
// segment.
type Segment struct {
	Id         string  `json:"id" bigquery:"id"`                           // The unique ID of the segment within its plan.
	AssetId    string  `json:"asset_id" bigquery:"asset_id"`               // The ID of the media asset this segment plays.
	Duration   float64 `json:"duration" bigquery:"duration"`               // The length of the segment in seconds.
	Order      int     `json:"order" bigquery:"order"`                     // The 1-based position of the segment on the timeline.
	Transition string  `json:"transition,omitempty" bigquery:"transition"` // The hand-off into the next segment: "cut", "fade" or "dissolve".
}

// PlanStructure is the timeline itself: the total runtime and the ordered
// segments that fill it.
type PlanStructure struct {
	TotalDuration float64    `json:"total_duration" bigquery:"total_duration"` // The total runtime of the plan in seconds.
	Segments      []*Segment `json:"segments" bigquery:"segments"`             // The ordered segments of the timeline.
}

// EditPlan is the persistent record of one generated video plan: the
// validated structure returned by the model, enriched with identity,
// provenance, the rendered FFmpeg script, and the GCS location of the plan
// document.
type EditPlan struct {
	Id           string         `json:"id" bigquery:"id"`                               // A UUIDv5 hash of the originating request ID.
	RequestId    string         `json:"request_id" bigquery:"request_id"`               // The ID of the PlanRequest this plan answers.
	CreateDate   time.Time      `json:"create_date" bigquery:"create_date"`             // The time the plan record was created.
	Title        string         `json:"title" bigquery:"title"`                         // The model-suggested title for the cut.
	Description  string         `json:"description,omitempty" bigquery:"description"`   // The model's one-paragraph description of the cut.
	Structure    *PlanStructure `json:"structure" bigquery:"structure"`                 // The validated edit timeline.
	RenderScript string         `json:"render_script,omitempty" bigquery:"render_script"` // The FFmpeg argument script derived from the structure.
	PlanUrl      string         `json:"plan_url,omitempty" bigquery:"plan_url"`         // The GCS URL of the uploaded plan document.
}

// NewEditPlan creates an EditPlan shell for a request. The ID is a UUIDv5
// hash of the request ID, so re-processing the same request always yields the
// same plan ID and persistence stays idempotent.
//
// Inputs:
//   - requestId: the originating PlanRequest ID.
//
// Outputs:
//   - *EditPlan: a plan with identity and timestamps set and an empty,
//     non-nil structure awaiting the generated timeline.
func NewEditPlan(requestId string) *EditPlan {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(requestId))
	return &EditPlan{
		Id:         id.String(),
		RequestId:  requestId,
		CreateDate: time.Now(),
		Structure:  &PlanStructure{Segments: make([]*Segment, 0)},
	}
}
