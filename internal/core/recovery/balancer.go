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

// BalanceBrackets appends the closing brackets a truncated document still
// owes. It runs once, after the repair engine reaches its fixed point, so it
// only sees deficits the rules could not attribute to a local malformation
// (typically output cut off mid-document by a token limit).
//
// Openers and closers are tallied outside string literals; the missing
// closers are emitted in the reverse order the unclosed scopes were opened,
// which keeps the appended tail parseable for any nesting of objects and
// arrays. Surplus closers are left alone for the parser to report.
func BalanceBrackets(text string) string {
	var sc stringScanner
	var stack []byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !sc.inString() {
			switch c {
			case '{', '[':
				stack = append(stack, c)
			case '}':
				if len(stack) > 0 && stack[len(stack)-1] == '{' {
					stack = stack[:len(stack)-1]
				}
			case ']':
				if len(stack) > 0 && stack[len(stack)-1] == '[' {
					stack = stack[:len(stack)-1]
				}
			}
		}
		sc.step(c)
	}
	if len(stack) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(stack) + 1)
	b.WriteString(text)
	// A document truncated inside a literal owes the closing quote before
	// any bracket.
	if sc.inString() {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
