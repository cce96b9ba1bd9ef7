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

package model

import "github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"

// PlanSchema declares the recovery contract for the PlanDraft wire shape.
// The plan composer hands this to its recovery session, so any generated
// payload that reaches the struct builder is guaranteed to carry a positive
// total duration and at least one fully-typed segment. The field names here
// must track the json tags on PlanDraft, PlanStructure and Segment.
func PlanSchema() *recovery.Schema {
	return &recovery.Schema{
		Fields: []*recovery.Field{
			{Name: "title", Kind: recovery.KindString, Required: true},
			{Name: "description", Kind: recovery.KindString},
			{
				Name:     "structure",
				Kind:     recovery.KindObject,
				Required: true,
				Fields: []*recovery.Field{
					{Name: "total_duration", Kind: recovery.KindNumber, Required: true, Positive: true},
					{
						Name:     "segments",
						Kind:     recovery.KindArray,
						Required: true,
						NonEmpty: true,
						Elem: &recovery.Field{
							Kind: recovery.KindObject,
							Fields: []*recovery.Field{
								{Name: "id", Kind: recovery.KindString, Required: true},
								{Name: "asset_id", Kind: recovery.KindString, Required: true},
								{Name: "duration", Kind: recovery.KindNumber, Required: true, Positive: true},
								{Name: "order", Kind: recovery.KindInteger, Required: true, Positive: true},
								{Name: "transition", Kind: recovery.KindString, Enum: []string{TransitionCut, TransitionFade, TransitionDissolve}},
							},
						},
					},
				},
			},
		},
	}
}
