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

package recovery_test

import (
	"encoding/json"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// segmentContractSchema builds the kind of contract the plan workflow uses:
// a nested object holding a non-empty array of segments with typed, bounded
// fields and an enumerated transition.
func segmentContractSchema() *recovery.Schema {
	return &recovery.Schema{
		Fields: []*recovery.Field{
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
								{Name: "transition", Kind: recovery.KindString, Enum: []string{"cut", "fade", "dissolve"}},
							},
						},
					},
				},
			},
		},
	}
}

func decode(t *testing.T, text string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(text), &v))
	return v
}

// TestValidateAcceptsConformantValue verifies the empty-violations success
// path on a fully conformant payload.
func TestValidateAcceptsConformantValue(t *testing.T) {
	v := decode(t, `{
		"structure": {
			"total_duration": 10,
			"segments": [
				{"id": "s1", "asset_id": "a1", "duration": 6, "order": 1, "transition": "cut"},
				{"id": "s2", "asset_id": "a2", "duration": 4, "order": 2}
			]
		}
	}`)

	assert.Empty(t, segmentContractSchema().Validate(v))
}

// TestValidateCollectsEveryViolation verifies the full-walk contract: one
// pass over a payload with four independent defects reports all four, each
// under its own dotted and indexed path.
func TestValidateCollectsEveryViolation(t *testing.T) {
	v := decode(t, `{
		"structure": {
			"total_duration": -5,
			"segments": [
				{"id": "s1", "duration": 6, "order": 1.5, "transition": "wipe"}
			]
		}
	}`)

	violations := segmentContractSchema().Validate(v)
	require.Len(t, violations, 4)

	paths := make([]string, 0, len(violations))
	for _, viol := range violations {
		paths = append(paths, viol.Path)
	}
	assert.Contains(t, paths, "structure.total_duration")
	assert.Contains(t, paths, "structure.segments[0].asset_id")
	assert.Contains(t, paths, "structure.segments[0].order")
	assert.Contains(t, paths, "structure.segments[0].transition")
}

// TestValidateRejectsEmptySegments verifies the NonEmpty array constraint.
func TestValidateRejectsEmptySegments(t *testing.T) {
	v := decode(t, `{"structure": {"total_duration": 10, "segments": []}}`)

	violations := segmentContractSchema().Validate(v)
	require.Len(t, violations, 1)
	assert.Equal(t, "structure.segments", violations[0].Path)
}

// TestValidateReportsTypeMismatches verifies typing violations: a string
// where a number belongs, and an object where an array belongs.
func TestValidateReportsTypeMismatches(t *testing.T) {
	v := decode(t, `{"structure": {"total_duration": "ten", "segments": {}}}`)

	violations := segmentContractSchema().Validate(v)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0].Message, "expected number")
	assert.Contains(t, violations[1].Message, "expected array")
}

// TestValidateRejectsNonObjectRoot verifies the root-shape guard.
func TestValidateRejectsNonObjectRoot(t *testing.T) {
	violations := segmentContractSchema().Validate([]any{1.0, 2.0})

	require.Len(t, violations, 1)
	assert.Equal(t, "$", violations[0].Path)
}
