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
	"regexp"
	"strings"
)

// MaxRepairPasses caps the fixed-point iteration of the repair engine. Rules
// are individually idempotent, but a rewrite by a later rule can re-enable an
// earlier one, so the engine reruns the full ordered list until a pass
// changes nothing or the cap is hit. The cap exists purely as a safety net
// against a pathological rule interaction; well-formed rule sets converge in
// two or three passes.
const MaxRepairPasses = 10

// Rule is a single named text rewrite. Name appears in logs and diagnostics;
// Apply must be a pure function of its input and idempotent on text it has
// already fixed (and, critically, a no-op on valid JSON).
type Rule struct {
	Name  string
	Apply func(string) string
}

// Engine runs an ordered rule list to a fixed point. The order is load
// bearing: string closure must precede the structural rules so brackets and
// commas inside literals are never mistaken for structure, and trailing-comma
// removal must follow comma insertion so the two never fight.
type Engine struct {
	rules []Rule
}

// NewEngine builds a repair engine. With no arguments it uses DefaultRules.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Repair rewrites text by applying every rule in order, repeating the full
// pass until a pass produces no change or MaxRepairPasses is reached. On
// already-valid JSON every rule is a semantic no-op (at most whitespace
// changes), so repairing twice equals repairing once.
func (e *Engine) Repair(text string) string {
	for pass := 0; pass < MaxRepairPasses; pass++ {
		before := text
		for _, rule := range e.rules {
			text = rule.Apply(text)
		}
		if text == before {
			break
		}
	}
	return text
}

var (
	// A quoted JSON key followed by a colon, with escape-aware quoting.
	reKeyAfterOpen   = regexp.MustCompile(`(\[|\},)(\s*)("(?:[^"\\]|\\.)*"\s*:)`)
	reKeyStart       = regexp.MustCompile(`^\s*"(?:[^"\\]|\\.)*"\s*:`)
	reMissingComma   = regexp.MustCompile(`(["0-9}\]]|true|false|null)(\s+)("(?:[^"\\]|\\.)*"\s*:)`)
	reMissingCommaBr = regexp.MustCompile(`(["0-9}\]]|true|false|null)(\s+)([{\[])`)
	reBareKey        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	reQuoteOpen      = regexp.MustCompile(`([{\[:,]\s*)'`)
	reQuoteClose     = regexp.MustCompile(`'(\s*[:,}\]])`)
	reTrailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
)

// DefaultRules returns the standard ordered rule list. Each rule targets one
// malformation class commonly produced by generative models emitting JSON.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "insert-missing-object-open", Apply: insertMissingObjectOpen},
		{Name: "close-broken-strings", Apply: closeBrokenStrings},
		{Name: "escape-control-characters", Apply: escapeControlCharacters},
		{Name: "insert-missing-object-close", Apply: insertMissingObjectClose},
		{Name: "insert-missing-commas", Apply: insertMissingCommas},
		{Name: "quote-bare-keys", Apply: quoteBareKeys},
		{Name: "normalize-quotes", Apply: normalizeQuotes},
		{Name: "strip-trailing-commas", Apply: stripTrailingCommas},
		{Name: "strip-comments", Apply: stripComments},
		{Name: "normalize-whitespace", Apply: normalizeWhitespace},
	}
}

// insertMissingObjectOpen restores a dropped '{' when an array element or a
// sibling object starts directly with a quoted key, e.g.
// `[ "id": "s1" }` or `}, "id": "s2" }`.
func insertMissingObjectOpen(text string) string {
	return reKeyAfterOpen.ReplaceAllString(text, `${1}${2}{${3}`)
}

// closeBrokenStrings terminates string literals the model left open at a line
// break. A raw newline inside a literal whose next line begins a new key or
// closes a scope means the closing quote was dropped; the quote (and a comma
// when a key follows) is reinserted and scanning resumes outside the string.
// Newlines inside literals that do not look like a boundary are left for
// escapeControlCharacters.
func closeBrokenStrings(text string) string {
	var sc stringScanner
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' && sc.inString() && sc.state != stateEscaped {
			rest := text[i+1:]
			trimmed := strings.TrimLeft(rest, " \t")
			if reKeyStart.MatchString(trimmed) {
				b.WriteString("\",")
				b.WriteByte(c)
				sc.reset()
				continue
			}
			if len(trimmed) > 0 && (trimmed[0] == '}' || trimmed[0] == ']') {
				b.WriteByte('"')
				b.WriteByte(c)
				sc.reset()
				continue
			}
		}
		b.WriteByte(c)
		sc.step(c)
	}
	return b.String()
}

// escapeControlCharacters rewrites raw control characters inside string
// literals into their two-character JSON escapes. Raw newlines, tabs and
// friends inside a literal are the single most common strict-parser rejection
// in model output.
func escapeControlCharacters(text string) string {
	var sc stringScanner
	var b strings.Builder
	b.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if sc.inString() && sc.state != stateEscaped {
			switch c {
			case '\n':
				b.WriteString(`\n`)
				continue
			case '\r':
				b.WriteString(`\r`)
				continue
			case '\t':
				b.WriteString(`\t`)
				continue
			case '\f':
				b.WriteString(`\f`)
				continue
			case '\b':
				b.WriteString(`\b`)
				continue
			}
		}
		b.WriteByte(c)
		sc.step(c)
	}
	return b.String()
}

// insertMissingObjectClose restores dropped closers when a scope is closed by
// the wrong bracket kind, e.g. `{"order": 3]` closed the object with the
// array's ']' because the '}' was dropped. A bracket stack of open scopes
// (outside strings) detects the mismatch and emits the missing closer first.
func insertMissingObjectClose(text string) string {
	var sc stringScanner
	var stack []byte
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sc.inString() {
			switch c {
			case '{', '[':
				stack = append(stack, c)
			case '}':
				for len(stack) > 0 && stack[len(stack)-1] == '[' {
					b.WriteByte(']')
					stack = stack[:len(stack)-1]
				}
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			case ']':
				for len(stack) > 0 && stack[len(stack)-1] == '{' {
					b.WriteByte('}')
					stack = stack[:len(stack)-1]
				}
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		}
		b.WriteByte(c)
		sc.step(c)
	}
	return b.String()
}

// insertMissingCommas restores the comma between a completed value and the
// next key or the next array element, on the same line or across lines, e.g.
// `"duration": 4.0 "order": 2`.
func insertMissingCommas(text string) string {
	text = reMissingComma.ReplaceAllString(text, `${1},${2}${3}`)
	return reMissingCommaBr.ReplaceAllString(text, `${1},${2}${3}`)
}

// applyOutsideStrings runs rewrite over the spans of text lying outside
// double-quoted string literals, copying literal content through verbatim.
// Regex rules routed through this helper can never touch characters inside a
// literal. None of the routed patterns contain a double quote, so a match can
// never straddle a span boundary.
func applyOutsideStrings(text string, rewrite func(string) string) string {
	var sc stringScanner
	var b strings.Builder
	b.Grow(len(text))
	start := 0
	for i := 0; i < len(text); i++ {
		wasIn := sc.inString()
		sc.step(text[i])
		if !wasIn && sc.inString() {
			// text[i] opened a literal; rewrite the span before it.
			b.WriteString(rewrite(text[start:i]))
			start = i
		} else if wasIn && !sc.inString() {
			// text[i] closed the literal; copy it through with both quotes.
			b.WriteString(text[start : i+1])
			start = i + 1
		}
	}
	if sc.inString() {
		// Unterminated literal at the end of input belongs to an earlier
		// rule's problem space; leave it untouched.
		b.WriteString(text[start:])
		return b.String()
	}
	b.WriteString(rewrite(text[start:]))
	return b.String()
}

// quoteBareKeys wraps unquoted object keys in double quotes. The rewrite runs
// outside string literals only, so a value like "use {key: value} syntax"
// keeps its content.
func quoteBareKeys(text string) string {
	return applyOutsideStrings(text, func(chunk string) string {
		return reBareKey.ReplaceAllString(chunk, `${1}"${2}"${3}`)
	})
}

// normalizeQuotes converts single-quoted keys and values into double-quoted
// ones by rewriting quotes adjacent to structural characters. The rewrite runs
// outside string literals only; apostrophes inside otherwise-double-quoted
// text are left untouched.
func normalizeQuotes(text string) string {
	return applyOutsideStrings(text, func(chunk string) string {
		chunk = reQuoteOpen.ReplaceAllString(chunk, `${1}"`)
		return reQuoteClose.ReplaceAllString(chunk, `"${1}`)
	})
}

// stripTrailingCommas removes commas dangling before a closing bracket. The
// second application catches the comma exposed when the first removal closes
// a nested scope, e.g. `1,],`.
func stripTrailingCommas(text string) string {
	text = reTrailingComma.ReplaceAllString(text, `${1}`)
	return reTrailingComma.ReplaceAllString(text, `${1}`)
}

// stripComments removes // line comments and /* */ block comments that some
// models emit inside JSON. The scanner keeps comment markers inside string
// literals (URLs in particular) intact.
func stripComments(text string) string {
	var sc stringScanner
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sc.inString() && c == '/' && i+1 < len(text) {
			switch text[i+1] {
			case '/':
				for i < len(text) && text[i] != '\n' {
					i++
				}
				if i < len(text) {
					b.WriteByte('\n')
				}
				continue
			case '*':
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					i = len(text)
					continue
				}
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(c)
		sc.step(c)
	}
	return b.String()
}

// normalizeWhitespace trims trailing whitespace from every line and drops
// lines left entirely blank by earlier rules. By this point in the rule order
// string literals carry no raw newlines, so splitting on lines is safe.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
