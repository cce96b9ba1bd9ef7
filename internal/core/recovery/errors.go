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

// Package recovery turns the unreliable text output of a generative model into
// a schema-conformant value. This file defines the error taxonomy for the
// package. Each failure class is a distinct type so that the retry controller
// (and its callers) can decide, per class, whether a failure is recoverable
// by issuing a repair prompt or must be surfaced immediately.
//
// The classes are:
//   - ExtractionError: no plausible structured payload could be located in the
//     generated text. Recoverable (a repair prompt is issued).
//   - SyntaxRepairError: the payload still fails to parse after every
//     heuristic rewrite and bracket balancing. Carries a rendered diagnostic
//     window pointing at the failure location. Recoverable.
//   - ValidationError: the payload parses but violates the declared schema
//     contract. Carries every violation, not just the first. Recoverable.
//   - SessionExhausted: the attempt budget ran out. Carries the full attempt
//     history. Terminal.
//   - GeneratorError: the generation call itself failed (transport, auth,
//     provider). Not a malformation; surfaced immediately without consuming a
//     repair attempt. Terminal for the session.
package recovery

import (
	"fmt"
	"strings"
)

// ExtractionError indicates that no structured payload span (no opening brace
// at all) was found in the normalized model output.
type ExtractionError struct {
	// Raw is the normalized text that was searched.
	Raw string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return "no structured payload found in generated text"
}

// SyntaxRepairError indicates that the repaired payload was still rejected by
// the strict parser. It wraps the parser's error and carries a human-readable
// diagnostic window of the text surrounding the failure offset.
type SyntaxRepairError struct {
	// Err is the underlying parser error.
	Err error
	// Offset is the byte offset reported by the parser, or 0 if unavailable.
	Offset int64
	// Diagnostic is the rendered window: numbered lines with a caret marking
	// the failure column. It is attached for operator and repair-prompt
	// consumption and never influences control flow.
	Diagnostic string
}

// Error implements the error interface.
func (e *SyntaxRepairError) Error() string {
	return fmt.Sprintf("payload failed strict parse after repair at offset %d: %v", e.Offset, e.Err)
}

// Unwrap exposes the underlying parser error for errors.Is / errors.As.
func (e *SyntaxRepairError) Unwrap() error {
	return e.Err
}

// Violation is a single schema-contract violation, located by a dotted and
// indexed path into the value (e.g. "structure.segments[2].order").
type Violation struct {
	Path    string
	Message string
}

// String renders the violation as "path: message".
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidationError indicates that the payload parsed but does not satisfy the
// declared schema contract. It aggregates every violation found during a full
// structural walk; validation never stops at the first defect because a
// model-produced payload frequently has several independent ones, and
// bundling them all into one repair prompt reduces total regenerations.
type ValidationError struct {
	Violations []Violation
}

// Error joins all violations into a single semicolon-separated message.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("schema validation failed: %s", strings.Join(parts, "; "))
}

// GeneratorError wraps a failure of the generation call itself. It is not a
// malformation of the output, so the controller surfaces it to the caller
// as-is instead of spending a repair attempt on it.
type GeneratorError struct {
	Err error
}

// Error implements the error interface.
func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generation call failed: %v", e.Err)
}

// Unwrap exposes the transport/provider error.
func (e *GeneratorError) Unwrap() error {
	return e.Err
}

// SessionExhausted is the terminal error returned when every attempt in the
// budget failed. It carries the complete attempt history so the caller can
// diagnose why recovery failed without any other source of truth.
type SessionExhausted struct {
	// Attempts is the ordered, append-only attempt history of the session.
	Attempts []*Attempt
	// LastOutput is a truncated excerpt of the final raw model output.
	LastOutput string
}

// Error summarizes the exhaustion: attempt count plus the last attempt's error.
func (e *SessionExhausted) Error() string {
	var last error
	if n := len(e.Attempts); n > 0 {
		last = e.Attempts[n-1].Err
	}
	return fmt.Sprintf("structured value not recovered after %d attempts, last error: %v", len(e.Attempts), last)
}

// Unwrap exposes the last attempt's error so callers can inspect the final
// failure class with errors.As.
func (e *SessionExhausted) Unwrap() error {
	if n := len(e.Attempts); n > 0 {
		return e.Attempts[n-1].Err
	}
	return nil
}
