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
	"errors"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractPreferredFencedBlock verifies that the interior of a ```json
// fence wins over any braces in the surrounding prose.
func TestExtractPreferredFencedBlock(t *testing.T) {
	text := "Sure! Here is the plan {as requested}:\n```json\n{\"total_duration\": 10}\n```\nLet me know."

	payload, err := recovery.ExtractPayload(text)

	require.NoError(t, err)
	assert.Equal(t, `{"total_duration": 10}`, payload)
}

// TestExtractToleratesUnterminatedFence verifies that output truncated before
// the closing fence still yields the fence interior.
func TestExtractToleratesUnterminatedFence(t *testing.T) {
	text := "```json\n{\"total_duration\": 10,\n\"segments\": ["

	payload, err := recovery.ExtractPayload(text)

	require.NoError(t, err)
	assert.Equal(t, "{\"total_duration\": 10,\n\"segments\": [", payload)
}

// TestExtractBraceSpanFromProse verifies the fallback: no fence, so the span
// from the first '{' to the last '}' is taken.
func TestExtractBraceSpanFromProse(t *testing.T) {
	text := `The plan is as follows: {"total_duration": 10, "segments": []} and that is all.`

	payload, err := recovery.ExtractPayload(text)

	require.NoError(t, err)
	assert.Equal(t, `{"total_duration": 10, "segments": []}`, payload)
}

// TestExtractOpenSpanWhenTruncated verifies that an opening brace with no
// closer yields the span to end of text for the balancer to finish.
func TestExtractOpenSpanWhenTruncated(t *testing.T) {
	payload, err := recovery.ExtractPayload(`here: {"total_duration": 10, "seg`)

	require.NoError(t, err)
	assert.Equal(t, `{"total_duration": 10, "seg`, payload)
}

// TestExtractFailsWithoutAnyBrace verifies the only hard failure of
// extraction: prose with no opening brace at all.
func TestExtractFailsWithoutAnyBrace(t *testing.T) {
	_, err := recovery.ExtractPayload("I am unable to produce a plan for this request.")

	var extractionErr *recovery.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Contains(t, extractionErr.Raw, "unable")
}
