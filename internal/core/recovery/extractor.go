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

import "strings"

const (
	fenceJSON  = "```json"
	fencePlain = "```"
)

// ExtractPayload isolates the structured payload from normalized model text.
// Models wrap their JSON in prose, markdown fences, or both, and sometimes
// truncate mid-document; extraction is deliberately permissive and leaves
// syntax problems to the repair engine.
//
// Inputs:
//   - text: normalized model output.
//
// Outputs:
//   - The candidate payload string.
//   - An *ExtractionError when the text contains no opening brace at all;
//     nil otherwise.
//
// Resolution order: the interior of the first ```json (or bare ```) fenced
// block wins when present, tolerating a missing closing fence on truncated
// output. Otherwise the span from the first '{' to the last '}' is taken, or
// from the first '{' to the end of the text when no closing brace survived.
func ExtractPayload(text string) (string, error) {
	if inner, ok := fencedInterior(text); ok {
		text = inner
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", &ExtractionError{Raw: text}
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		// Truncated before any closing brace. Hand the open span to the
		// balancer rather than failing here.
		return strings.TrimSpace(text[start:]), nil
	}
	return strings.TrimSpace(text[start : end+1]), nil
}

// fencedInterior returns the contents of the first markdown code fence in
// text, preferring a ```json fence over a bare one. The second return is
// false when no fence opens.
func fencedInterior(text string) (string, bool) {
	marker := fenceJSON
	idx := strings.Index(text, marker)
	if idx < 0 {
		marker = fencePlain
		idx = strings.Index(text, marker)
		if idx < 0 {
			return "", false
		}
	}
	inner := text[idx+len(marker):]
	if close := strings.Index(inner, fencePlain); close >= 0 {
		inner = inner[:close]
	}
	return strings.TrimSpace(inner), true
}
