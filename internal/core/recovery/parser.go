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
	"encoding/json"
	"fmt"
	"strings"
)

// diagnosticRadius is how many bytes of context, on each side of the failure
// offset, the diagnostic window renders.
const diagnosticRadius = 300

// ParseStrict performs the single strict parse of an attempt. All leniency
// lives in the repair rules; the parse itself is plain encoding/json so that
// what this function accepts is exactly what every downstream consumer of the
// payload will accept.
//
// Inputs:
//   - text: the repaired, balanced candidate payload.
//
// Outputs:
//   - The decoded generic value (map[string]any / []any / scalars).
//   - A *SyntaxRepairError carrying the parser's reason, the failure offset,
//     and a rendered diagnostic window; nil on success.
func ParseStrict(text string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		offset := failureOffset(err)
		return nil, &SyntaxRepairError{
			Err:        err,
			Offset:     offset,
			Diagnostic: Diagnose(text, offset),
		}
	}
	return v, nil
}

// failureOffset pulls the byte offset out of the typed encoding/json errors.
// Errors that carry no position report offset 0 and the window simply shows
// the head of the document.
func failureOffset(err error) int64 {
	switch e := err.(type) {
	case *json.SyntaxError:
		return e.Offset
	case *json.UnmarshalTypeError:
		return e.Offset
	}
	return 0
}

// Diagnose renders a human-readable window around a parse failure: the lines
// covering offset±diagnosticRadius, each prefixed with its line number, with
// tabs and carriage returns made visible and a caret marking the failure
// column. The rendering is advisory text for logs and repair prompts; nothing
// parses it back.
func Diagnose(text string, offset int64) string {
	if text == "" {
		return "(empty payload)"
	}
	off := int(offset)
	if off > len(text) {
		off = len(text)
	}
	if off < 0 {
		off = 0
	}
	// A SyntaxError offset points one past the offending byte.
	mark := off
	if mark > 0 && mark == len(text) {
		mark = len(text) - 1
	}

	lo := off - diagnosticRadius
	if lo < 0 {
		lo = 0
	}
	hi := off + diagnosticRadius
	if hi > len(text) {
		hi = len(text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "parse failure at offset %d:\n", off)

	lineNum := 1
	lineStart := 0
	for i := 0; i <= len(text); i++ {
		atEnd := i == len(text)
		if !atEnd && text[i] != '\n' {
			continue
		}
		lineEnd := i
		if lineEnd >= lo && lineStart <= hi {
			// Clip very long lines to the window so the rendering stays
			// bounded even for single-line payloads.
			segStart := lineStart
			if segStart < lo {
				segStart = lo
			}
			segEnd := lineEnd
			if segEnd > hi {
				segEnd = hi
			}
			fmt.Fprintf(&b, "%4d | %s\n", lineNum, visibleWhitespace(text[segStart:segEnd]))
			if mark >= segStart && mark <= segEnd {
				col := len(visibleWhitespace(text[segStart:mark]))
				fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col))
			}
		}
		lineNum++
		lineStart = i + 1
		if lineStart > hi {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// visibleWhitespace rewrites the invisible characters that most often explain
// a baffling parse error into printable escapes.
func visibleWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", `\t`)
	return strings.ReplaceAll(s, "\r", `\r`)
}
