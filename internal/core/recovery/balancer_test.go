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
	"encoding/json"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/zeebo/assert"
)

// TestBalanceAppendsTwoClosers covers a document truncated inside a nested
// array: both the array and the enclosing object are owed a closer, in that
// order.
func TestBalanceAppendsTwoClosers(t *testing.T) {
	out := recovery.BalanceBrackets(`{"segments": [1, 2`)
	assert.Equal(t, `{"segments": [1, 2]}`, out)

	var v any
	assert.NoError(t, json.Unmarshal([]byte(out), &v))
}

// TestBalanceClosesInOpenOrder verifies that mixed object/array nesting is
// closed in the reverse of the order the scopes opened, not by bracket kind.
func TestBalanceClosesInOpenOrder(t *testing.T) {
	out := recovery.BalanceBrackets(`{"a": [{"b": [1`)
	assert.Equal(t, `{"a": [{"b": [1]}]}`, out)
}

// TestBalanceIgnoresBracketsInsideStrings verifies that brace and bracket
// characters inside string literals do not count toward the deficit.
func TestBalanceIgnoresBracketsInsideStrings(t *testing.T) {
	out := recovery.BalanceBrackets(`{"note": "use [1] and {2}"`)
	assert.Equal(t, `{"note": "use [1] and {2}"}`, out)
}

// TestBalanceClosesDanglingString verifies that truncation mid-literal gets
// the closing quote before any brackets.
func TestBalanceClosesDanglingString(t *testing.T) {
	out := recovery.BalanceBrackets(`{"title": "My Pl`)
	assert.Equal(t, `{"title": "My Pl"}`, out)
}

// TestBalanceLeavesBalancedTextAlone verifies the no-deficit case.
func TestBalanceLeavesBalancedTextAlone(t *testing.T) {
	in := `{"a": [1, 2]}`
	assert.Equal(t, in, recovery.BalanceBrackets(in))
}
