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

// Package model_test contains unit tests for the data models defined in the
// model package. This file specifically tests the constructor and initial
// state of the persistent EditPlan model and the declarative plan schema.
package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewEditPlan tests the constructor for the EditPlan struct.
// It verifies that the ID is generated correctly using a UUIDv5 hash of the
// request ID, that the creation timestamp is set to the current time, and
// that the structure and its segment slice are initialized non-nil.
func TestNewEditPlan(t *testing.T) {
	// Define a sample request ID to be used for plan ID generation.
	requestId := "req-0001"
	// Call the constructor to create a new EditPlan object.
	plan := model.NewEditPlan(requestId)

	// To verify the ID, generate the same UUIDv5 hash the constructor is
	// expected to create, using the URL namespace and the request ID.
	generatedID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(requestId))

	// Assert that the generated ID in the plan matches our expected ID.
	assert.Equal(t, generatedID.String(), plan.Id)
	// Assert that the request ID is carried through for provenance.
	assert.Equal(t, requestId, plan.RequestId)
	// Assert that the creation date is very recent (within one second of now).
	assert.WithinDuration(t, time.Now(), plan.CreateDate, time.Second)
	// Assert that the structure is initialized with an empty segment slice.
	require.NotNil(t, plan.Structure)
	assert.Equal(t, 0, len(plan.Structure.Segments))
}

// TestNewEditPlanIsDeterministic verifies the idempotency property the
// persistence layer relies on: the same request always hashes to the same
// plan ID.
func TestNewEditPlanIsDeterministic(t *testing.T) {
	a := model.NewEditPlan("req-42")
	b := model.NewEditPlan("req-42")
	assert.Equal(t, a.Id, b.Id)
}

// TestPlanSchemaAcceptsExampleDraft verifies that the few-shot example plan
// satisfies the declarative schema it is meant to demonstrate. If these two
// ever drift apart the model would be shown an example its own output
// contract rejects.
func TestPlanSchemaAcceptsExampleDraft(t *testing.T) {
	draft := model.GetExamplePlanDraft()

	// Round-trip through JSON to obtain the generic wire shape the schema
	// validates against.
	data, err := json.Marshal(draft)
	require.NoError(t, err)
	var wire any
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Empty(t, model.PlanSchema().Validate(wire))
}

// TestPlanSchemaRejectsBrokenDraft verifies the schema catches the defects
// the plan workflow depends on it catching.
func TestPlanSchemaRejectsBrokenDraft(t *testing.T) {
	wire := map[string]any{
		"title": "broken",
		"structure": map[string]any{
			"total_duration": 0.0,
			"segments": []any{
				map[string]any{"id": "s1", "asset_id": "a1", "duration": 5.0, "order": 1.0, "transition": "spin"},
			},
		},
	}

	violations := model.PlanSchema().Validate(wire)
	require.Len(t, violations, 2)
}
