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

package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMaxAttempts is the attempt budget used when a caller passes a
	// non-positive one. Three attempts (one initial generation plus two
	// repair regenerations) recovers the overwhelming majority of malformed
	// outputs; beyond that the model is usually confused about the task
	// itself and more retries only burn tokens.
	DefaultMaxAttempts = 3

	// repairExcerptLimit bounds how much of the previous raw output is
	// quoted back to the model in a repair prompt, and how much is retained
	// in attempt records and events.
	repairExcerptLimit = 1500

	meterName = "github.com/mosaicvideo/gcp-go-video-planner"
)

// Attempt records one generation attempt of a session: what was sent, what
// came back, what it cost, and why it was rejected. Err is nil only on the
// succeeding attempt.
type Attempt struct {
	// Index is 1-based.
	Index int
	// TriggeredBy is the prompt that produced this attempt: the caller's
	// prompt for attempt 1, a repair prompt afterwards.
	TriggeredBy string
	// RawOutput is the model's verbatim text, truncated to the excerpt
	// limit.
	RawOutput string
	// Usage is the provider-reported token accounting, when available.
	Usage *TokenUsage
	// Err is the failure class that rejected this attempt.
	Err error
}

// Session drives the bounded generate, repair, validate loop for a single
// structured value. A Session is single use and not safe for concurrent
// calls: attempts are strictly sequential because each repair prompt is
// built from the previous failure.
type Session struct {
	generator   Generator
	schema      *Schema
	engine      *Engine
	normalizer  *Normalizer
	observer    Observer
	maxAttempts int
	attempts    []*Attempt

	tracer         trace.Tracer
	attemptCounter metric.Int64Counter
	successCounter metric.Int64Counter
	failureCounter metric.Int64Counter
	tokenCounter   metric.Int64Counter
}

// NewSession creates a recovery session.
//
// Inputs:
//   - generator: the model behind the session.
//   - schema: the contract the recovered value must meet. A nil schema skips
//     validation and accepts any value that parses.
//   - maxAttempts: the attempt budget; non-positive selects
//     DefaultMaxAttempts.
//   - observer: the diagnostic sink; nil installs a no-op sink.
//
// Outputs:
//   - A ready Session. Metric instrument creation failures are logged and
//     degrade to uninstrumented operation rather than failing construction.
func NewSession(generator Generator, schema *Schema, maxAttempts int, observer Observer) *Session {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if observer == nil {
		observer = nopObserver{}
	}
	s := &Session{
		generator:   generator,
		schema:      schema,
		engine:      NewEngine(),
		normalizer:  &Normalizer{},
		observer:    observer,
		maxAttempts: maxAttempts,
		tracer:      otel.Tracer(meterName),
	}
	meter := otel.Meter(meterName)
	var err error
	if s.attemptCounter, err = meter.Int64Counter("recovery.attempts"); err != nil {
		slog.Error("failed to create attempt counter", "error", err)
	}
	if s.successCounter, err = meter.Int64Counter("recovery.success"); err != nil {
		slog.Error("failed to create success counter", "error", err)
	}
	if s.failureCounter, err = meter.Int64Counter("recovery.failure"); err != nil {
		slog.Error("failed to create failure counter", "error", err)
	}
	if s.tokenCounter, err = meter.Int64Counter("recovery.tokens"); err != nil {
		slog.Error("failed to create token counter", "error", err)
	}
	return s
}

// SetLookAheadWindow overrides the normalizer's duplicate look-ahead
// distance for this session. Non-positive values keep the default.
func (s *Session) SetLookAheadWindow(lines int) {
	if lines > 0 {
		s.normalizer.LookAheadWindow = lines
	}
}

// Attempts returns the ordered attempt history recorded so far.
func (s *Session) Attempts() []*Attempt {
	return s.attempts
}

// Recover runs the session to a terminal state.
//
// Inputs:
//   - ctx: cancels the in-flight generation; cancellation is returned as the
//     context's error, not as exhaustion.
//   - prompt: the caller's task prompt for the first attempt.
//   - systemInstructions: passed unchanged to every generation call.
//
// Outputs:
//   - The decoded, schema-conformant generic value on success.
//   - A *GeneratorError when a generation call itself fails (no attempt is
//     consumed), or a *SessionExhausted carrying the full attempt history
//     when the budget runs out.
func (s *Session) Recover(ctx context.Context, prompt string, systemInstructions string) (any, error) {
	ctx, span := s.tracer.Start(ctx, "recovery.session")
	defer span.End()

	currentPrompt := prompt
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.observer.AttemptStarted(attempt)
		s.count(ctx, s.attemptCounter, 1)

		result, err := s.generator.Generate(ctx, currentPrompt, systemInstructions)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.count(ctx, s.failureCounter, 1)
			s.observer.SessionFinished(len(s.attempts), false)
			return nil, &GeneratorError{Err: err}
		}
		s.recordUsage(ctx, result.Usage)

		rec := &Attempt{
			Index:       attempt,
			TriggeredBy: currentPrompt,
			RawOutput:   excerpt(result.Content, repairExcerptLimit),
			Usage:       result.Usage,
		}
		s.attempts = append(s.attempts, rec)

		value, err := s.runPipeline(result.Content)
		if err == nil {
			s.count(ctx, s.successCounter, 1)
			span.SetAttributes(attribute.Int("recovery.attempts", attempt))
			s.observer.SessionFinished(attempt, true)
			return value, nil
		}

		rec.Err = err
		kind := failureKind(err)
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("kind", kind)))
		s.observer.AttemptFailed(attempt, kind, err, rec.RawOutput)
		currentPrompt = buildRepairPrompt(prompt, result.Content, err)
	}

	s.count(ctx, s.failureCounter, 1)
	s.observer.SessionFinished(len(s.attempts), false)
	var lastOutput string
	if n := len(s.attempts); n > 0 {
		lastOutput = s.attempts[n-1].RawOutput
	}
	return nil, &SessionExhausted{Attempts: s.attempts, LastOutput: lastOutput}
}

// runPipeline pushes one raw output through the full recovery pipeline:
// normalize, extract, repair to fixed point, balance brackets, strict parse,
// then validate. The strict parse happens exactly once per attempt.
func (s *Session) runPipeline(raw string) (any, error) {
	text := s.normalizer.NormalizeLines(raw)
	payload, err := ExtractPayload(text)
	if err != nil {
		return nil, err
	}
	payload = s.engine.Repair(payload)
	payload = BalanceBrackets(payload)
	value, err := ParseStrict(payload)
	if err != nil {
		return nil, err
	}
	if s.schema != nil {
		if violations := s.schema.Validate(value); len(violations) > 0 {
			return nil, &ValidationError{Violations: violations}
		}
	}
	return value, nil
}

func (s *Session) count(ctx context.Context, c metric.Int64Counter, n int64) {
	if c != nil {
		c.Add(ctx, n)
	}
}

func (s *Session) recordUsage(ctx context.Context, usage *TokenUsage) {
	if usage == nil || s.tokenCounter == nil {
		return
	}
	s.tokenCounter.Add(ctx, int64(usage.PromptTokens),
		metric.WithAttributes(attribute.String("kind", "prompt")))
	s.tokenCounter.Add(ctx, int64(usage.CompletionTokens),
		metric.WithAttributes(attribute.String("kind", "completion")))
}

// failureKind maps a pipeline error to its short class name for events.
func failureKind(err error) string {
	switch err.(type) {
	case *ExtractionError:
		return "extraction"
	case *SyntaxRepairError:
		return "syntax"
	case *ValidationError:
		return "validation"
	}
	return "unknown"
}

// buildRepairPrompt composes the corrective prompt for the next attempt: the
// original task, a truncated quote of the rejected output, the failure
// description, and explicit re-emission instructions with one worked example
// of the most common structural mistake.
func buildRepairPrompt(originalPrompt string, lastOutput string, failure error) string {
	var b strings.Builder
	b.WriteString(originalPrompt)
	b.WriteString("\n\nYour previous response could not be used. Here is what you produced (possibly truncated):\n\n")
	b.WriteString(excerpt(lastOutput, repairExcerptLimit))
	b.WriteString("\n\nIt was rejected for the following reason:\n")
	b.WriteString(failure.Error())
	if sre, ok := failure.(*SyntaxRepairError); ok && sre.Diagnostic != "" {
		b.WriteString("\n")
		b.WriteString(sre.Diagnostic)
	}
	b.WriteString("\n\nCommon mistake to check for: an object closed with the wrong bracket. For example this is wrong:\n")
	b.WriteString("  {\"segments\": [{\"id\": \"s1\", \"order\": 1]}\n")
	b.WriteString("and this is the corrected form:\n")
	b.WriteString("  {\"segments\": [{\"id\": \"s1\", \"order\": 1}]}\n")
	b.WriteString("\nRe-emit the ENTIRE JSON document, corrected. Output only the JSON object itself: no prose, no markdown fences, no commentary.")
	return b.String()
}

// excerpt truncates s to at most limit bytes, marking the cut.
func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n...[truncated]"
}

// RecoverStructuredValue is the package's convenience entry point: it builds
// a single-use session with the default pipeline and an slog-backed observer,
// runs it, and returns the recovered value.
func RecoverStructuredValue(ctx context.Context, generator Generator, prompt string, systemInstructions string, schema *Schema, maxAttempts int) (any, error) {
	session := NewSession(generator, schema, maxAttempts, NewSlogObserver(nil))
	return session.Recover(ctx, prompt, systemInstructions)
}

// DecodeInto re-marshals a recovered generic value into a typed struct. It is
// the canonical bridge from the recovery layer to the domain model: the value
// has already passed schema validation, so a decode failure here indicates a
// contract/model mismatch and is returned wrapped.
func DecodeInto(value any, target any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to re-marshal recovered value: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode recovered value into %T: %w", target, err)
	}
	return nil
}
