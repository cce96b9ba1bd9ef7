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
	"context"
	"errors"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator plays back a fixed sequence of outputs (or errors) and
// records every prompt it receives, so tests can assert on the repair
// prompts the session builds between attempts.
type scriptedGenerator struct {
	outputs []string
	errs    []error
	prompts []string
	calls   int
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ string) (*recovery.GenerateResult, error) {
	g.prompts = append(g.prompts, prompt)
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return &recovery.GenerateResult{
		Content: g.outputs[i],
		Usage:   &recovery.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

// recordingObserver captures events for assertions.
type recordingObserver struct {
	started  []int
	failures []string
	finished bool
	success  bool
}

func (o *recordingObserver) AttemptStarted(index int) { o.started = append(o.started, index) }
func (o *recordingObserver) AttemptFailed(_ int, kind string, _ error, _ string) {
	o.failures = append(o.failures, kind)
}
func (o *recordingObserver) SessionFinished(_ int, succeeded bool) {
	o.finished = true
	o.success = succeeded
}

// TestSessionSucceedsFirstAttempt verifies the happy path: clean output,
// one generation call, no repair prompts.
func TestSessionSucceedsFirstAttempt(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{`{"structure": {"total_duration": 10, "segments": [{"id": "s1", "asset_id": "a1", "duration": 10, "order": 1}]}}`}}
	obs := &recordingObserver{}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, obs)

	value, err := session.Recover(context.Background(), "make a plan", "you are a planner")

	require.NoError(t, err)
	assert.NotNil(t, value)
	assert.Equal(t, 1, gen.calls)
	require.Len(t, session.Attempts(), 1)
	assert.NoError(t, session.Attempts()[0].Err)
	assert.True(t, obs.finished)
	assert.True(t, obs.success)
}

// TestSessionRecoversMalformedOutputInOnePass verifies that output every
// attempt-level stage has to work on (prose, fencing, missing comma,
// truncation) is recovered without spending a second attempt.
func TestSessionRecoversMalformedOutputInOnePass(t *testing.T) {
	raw := "Here is your plan:\n```json\n{\"structure\": {\"total_duration\": 10 \"segments\": [{\"id\": \"s1\", \"asset_id\": \"a1\", \"duration\": 10, \"order\": 1}]"
	gen := &scriptedGenerator{outputs: []string{raw}}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, nil)

	value, err := session.Recover(context.Background(), "make a plan", "")

	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	structure := value.(map[string]any)["structure"].(map[string]any)
	assert.Equal(t, 10.0, structure["total_duration"])
}

// TestSessionRetriesWithRepairPrompt verifies the retry loop: the first
// output has no payload at all, the second is clean. The second prompt must
// quote the rejected output and carry the re-emission instructions.
func TestSessionRetriesWithRepairPrompt(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"I cannot find any assets for this brief.",
		`{"structure": {"total_duration": 10, "segments": [{"id": "s1", "asset_id": "a1", "duration": 10, "order": 1}]}}`,
	}}
	obs := &recordingObserver{}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, obs)

	value, err := session.Recover(context.Background(), "make a plan", "")

	require.NoError(t, err)
	assert.NotNil(t, value)
	require.Equal(t, 2, gen.calls)

	// The second prompt is a repair prompt built from the first failure.
	repairPrompt := gen.prompts[1]
	assert.Contains(t, repairPrompt, "make a plan")
	assert.Contains(t, repairPrompt, "I cannot find any assets")
	assert.Contains(t, repairPrompt, "Re-emit the ENTIRE JSON")

	// History: the failed attempt is recorded with its class, then success.
	require.Len(t, session.Attempts(), 2)
	assert.Error(t, session.Attempts()[0].Err)
	assert.NoError(t, session.Attempts()[1].Err)
	assert.Equal(t, []string{"extraction"}, obs.failures)
}

// TestSessionExhaustsBudget verifies the terminal failure: three attempts,
// three distinct rejections, then a *SessionExhausted carrying the full
// history with per-attempt error classes.
func TestSessionExhaustsBudget(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		// No payload at all.
		"no plan available",
		// Parses but breaks the contract (empty segments).
		`{"structure": {"total_duration": 10, "segments": []}}`,
		// Breaks the contract a different way (negative duration).
		`{"structure": {"total_duration": -1, "segments": [{"id": "s1", "asset_id": "a1", "duration": 5, "order": 1}]}}`,
	}}
	obs := &recordingObserver{}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, obs)

	_, err := session.Recover(context.Background(), "make a plan", "")

	var exhausted *recovery.SessionExhausted
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, exhausted.Attempts, 3)

	var extractionErr *recovery.ExtractionError
	assert.True(t, errors.As(exhausted.Attempts[0].Err, &extractionErr))
	var validationErr *recovery.ValidationError
	assert.True(t, errors.As(exhausted.Attempts[1].Err, &validationErr))
	assert.True(t, errors.As(exhausted.Attempts[2].Err, &validationErr))

	assert.Equal(t, []string{"extraction", "validation", "validation"}, obs.failures)
	assert.True(t, obs.finished)
	assert.False(t, obs.success)
}

// TestSessionSurfacesGeneratorErrorImmediately verifies the taxonomy split:
// a failed generation call is not a malformation, so it is returned at once
// as a *GeneratorError without consuming a repair attempt.
func TestSessionSurfacesGeneratorErrorImmediately(t *testing.T) {
	transportErr := errors.New("rpc unavailable")
	gen := &scriptedGenerator{errs: []error{transportErr}}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, nil)

	_, err := session.Recover(context.Background(), "make a plan", "")

	var genErr *recovery.GeneratorError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, genErr, transportErr)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, session.Attempts())
}

// TestSessionHonorsContextCancellation verifies that cancellation comes back
// as the context's error, not as exhaustion.
func TestSessionHonorsContextCancellation(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"unused"}}
	session := recovery.NewSession(gen, segmentContractSchema(), 3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session.Recover(ctx, "make a plan", "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.calls)
}

// TestRecoverStructuredValueConvenience verifies the package-level entry
// point end to end with the default pipeline.
func TestRecoverStructuredValueConvenience(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"```json\n{\"structure\": {\"total_duration\": 8, \"segments\": [{\"id\": \"s1\", \"asset_id\": \"a1\", \"duration\": 8, \"order\": 1}]}}\n```"}}

	value, err := recovery.RecoverStructuredValue(context.Background(), gen, "make a plan", "", segmentContractSchema(), 0)

	require.NoError(t, err)
	assert.NotNil(t, value)
}

// TestDecodeInto verifies the bridge from a recovered generic value to a
// typed struct.
func TestDecodeInto(t *testing.T) {
	value := map[string]any{"total_duration": 10.0, "segments": []any{}}
	var target struct {
		TotalDuration float64 `json:"total_duration"`
	}

	require.NoError(t, recovery.DecodeInto(value, &target))
	assert.Equal(t, 10.0, target.TotalDuration)
}
