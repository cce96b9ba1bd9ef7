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

// DefaultLookAheadWindow bounds how far ahead of the current line the
// normalizer searches for duplication artifacts. Streamed model output tends
// to repeat a line within a handful of lines of the original, so a small
// window catches the real cases without turning normalization quadratic.
const DefaultLookAheadWindow = 6

// Normalizer removes the line-level duplication artifacts that streaming
// model transports introduce: a line emitted twice verbatim, a truncated line
// followed by its completed form, or two near-identical prefixes of which only
// one was actually finished. It operates purely on text, before any payload
// extraction, and never inspects JSON semantics beyond a few terminator
// characters.
type Normalizer struct {
	// LookAheadWindow is the maximum distance, in lines, between a line and
	// a duplicate of it that the normalizer will still detect. Zero or
	// negative falls back to DefaultLookAheadWindow. Dedup is best effort;
	// artifacts farther apart than the window pass through untouched and are
	// left for the parser to reject.
	LookAheadWindow int
}

// NormalizeLines collapses streaming duplication artifacts in raw generated
// text.
//
// Inputs:
//   - raw: the model output, possibly containing duplicated or truncated
//     lines.
//
// Outputs:
//   - The cleaned text, lines rejoined with "\n". Relative order of surviving
//     lines is preserved.
//
// Within the look-ahead window, three artifact shapes are collapsed:
//   - exact duplicates: the first occurrence is kept;
//   - a line and a strictly longer line that begins with it and ends in a
//     structural terminator ('}', ']' or ','): the longer, completed form is
//     kept;
//   - two lines sharing a long common prefix where exactly one ends in a
//     structural terminator: the terminated one is kept.
//
// A final filter drops obviously truncated leftovers (lines ending in a bare
// colon, or with an unterminated string literal). Lone structural delimiter
// lines ("{", "}", "[", "]") are always preserved, since dropping one would
// corrupt nesting for the whole document.
func (n *Normalizer) NormalizeLines(raw string) string {
	window := n.LookAheadWindow
	if window <= 0 {
		window = DefaultLookAheadWindow
	}

	lines := make([]string, 0, 64)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	// First pass: pairwise dedup within the window. dropped marks lines that
	// lost against a later (or earlier) line and must not be emitted.
	dropped := make([]bool, len(lines))
	for i := 0; i < len(lines); i++ {
		if dropped[i] {
			continue
		}
		limit := i + window
		if limit > len(lines)-1 {
			limit = len(lines) - 1
		}
		for j := i + 1; j <= limit; j++ {
			if dropped[j] {
				continue
			}
			switch {
			case lines[i] == lines[j]:
				// Exact duplicate. Keep the first occurrence.
				dropped[j] = true
			case strings.HasPrefix(lines[j], lines[i]) && endsStructural(lines[j]):
				// The later line is a completed superset of the earlier
				// truncated one. Keep the completed form in the later slot so
				// ordering relative to its own context survives.
				dropped[i] = true
			case strings.HasPrefix(lines[i], lines[j]) && endsStructural(lines[i]):
				dropped[j] = true
			case nearDuplicate(lines[i], lines[j]):
				if endsStructural(lines[i]) && !endsStructural(lines[j]) {
					dropped[j] = true
				} else if endsStructural(lines[j]) && !endsStructural(lines[i]) {
					dropped[i] = true
				}
			}
			if dropped[i] {
				break
			}
		}
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if dropped[i] {
			continue
		}
		if isTruncatedLeftover(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// endsStructural reports whether a line ends in one of the terminators that
// mark a JSON line as syntactically complete.
func endsStructural(line string) bool {
	if line == "" {
		return false
	}
	switch line[len(line)-1] {
	case '}', ']', ',':
		return true
	}
	return false
}

// nearDuplicate reports whether two lines share a common prefix long enough
// (at least 20 characters and at least 80% of the shorter line) to treat them
// as two renditions of the same logical line.
func nearDuplicate(a, b string) bool {
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	if shorter < 20 {
		return false
	}
	common := 0
	for common < shorter && a[common] == b[common] {
		common++
	}
	return common >= 20 && common*5 >= shorter*4
}

// isTruncatedLeftover reports whether a surviving line is an obviously
// incomplete fragment: it ends in a bare colon, or it opens a string literal
// that never closes. Lone structural delimiters are exempt.
func isTruncatedLeftover(line string) bool {
	switch line {
	case "{", "}", "[", "]":
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	var sc stringScanner
	for i := 0; i < len(line); i++ {
		sc.step(line[i])
	}
	return sc.inString()
}
