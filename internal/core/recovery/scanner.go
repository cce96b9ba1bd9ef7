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

// stringScanner is the shared three-state cursor used by every repair rule
// that must distinguish structural characters from characters inside string
// literals. Feeding it one byte at a time keeps the states as:
//
//	stateNormal:   outside any string literal
//	stateInString: inside a double-quoted literal
//	stateEscaped:  immediately after a backslash inside a literal
//
// The escaped state exists so that \" does not terminate a literal and \\"
// does.
type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateEscaped
)

type stringScanner struct {
	state scanState
}

// step advances the scanner by one byte. Callers inspect inString before or
// after stepping depending on whether they need the state at the character
// (before) or following it (after).
func (s *stringScanner) step(c byte) {
	switch s.state {
	case stateNormal:
		if c == '"' {
			s.state = stateInString
		}
	case stateInString:
		switch c {
		case '\\':
			s.state = stateEscaped
		case '"':
			s.state = stateNormal
		}
	case stateEscaped:
		s.state = stateInString
	}
}

// inString reports whether the cursor currently sits inside a string literal.
func (s *stringScanner) inString() bool {
	return s.state != stateNormal
}

// reset returns the scanner to the normal state. Rules that rewrite a broken
// literal terminator call this so scanning resumes from structural context.
func (s *stringScanner) reset() {
	s.state = stateNormal
}
