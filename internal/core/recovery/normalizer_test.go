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
	"strings"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/stretchr/testify/assert"
)

// TestNormalizeDropsExactDuplicates verifies that a line streamed twice
// within the look-ahead window survives exactly once, in its original
// position.
func TestNormalizeDropsExactDuplicates(t *testing.T) {
	n := &recovery.Normalizer{}
	raw := "{\n\"title\": \"My Plan\",\n\"title\": \"My Plan\",\n\"total_duration\": 10,\n}"

	out := n.NormalizeLines(raw)

	assert.Equal(t, 1, strings.Count(out, "\"title\""))
	// The surviving copy stays ahead of the line that followed the pair.
	assert.Less(t, strings.Index(out, "title"), strings.Index(out, "total_duration"))
}

// TestNormalizePrefersCompletedSuperset verifies that when a truncated line
// is followed by its completed form (same prefix, ends in a structural
// terminator), only the completed form survives.
func TestNormalizePrefersCompletedSuperset(t *testing.T) {
	n := &recovery.Normalizer{}
	raw := "\"title\": \"My Video Plan\n\"title\": \"My Video Plan\",\n\"order\": 1,"

	out := n.NormalizeLines(raw)

	assert.Equal(t, 1, strings.Count(out, "\"title\""))
	assert.Contains(t, out, "\"title\": \"My Video Plan\",")
}

// TestNormalizeRespectsLookAheadWindow verifies that duplicates farther apart
// than the window are deliberately left alone. Dedup is best effort; distant
// repeats are the parser's problem, not the normalizer's.
func TestNormalizeRespectsLookAheadWindow(t *testing.T) {
	n := &recovery.Normalizer{LookAheadWindow: 2}
	lines := []string{
		`"a": 1,`,
		`"b": 2,`,
		`"c": 3,`,
		`"d": 4,`,
		`"a": 1,`,
	}

	out := n.NormalizeLines(strings.Join(lines, "\n"))

	assert.Equal(t, 2, strings.Count(out, `"a": 1,`))
}

// TestNormalizeDropsTruncatedLeftovers verifies the final filter: lines
// ending in a bare colon or holding an unterminated string literal are
// removed, while lone structural delimiter lines always survive.
func TestNormalizeDropsTruncatedLeftovers(t *testing.T) {
	n := &recovery.Normalizer{}
	raw := "{\n\"segments\":\n\"title\": \"unfinished\n}"

	out := n.NormalizeLines(raw)

	assert.NotContains(t, out, "segments")
	assert.NotContains(t, out, "unfinished")
	// The braces bounding the document must not be dropped.
	assert.Contains(t, out, "{")
	assert.Contains(t, out, "}")
}

// TestNormalizeLeavesCleanTextAlone verifies that well-formed multi-line
// output passes through with only whitespace trimming.
func TestNormalizeLeavesCleanTextAlone(t *testing.T) {
	n := &recovery.Normalizer{}
	raw := "{\n  \"total_duration\": 10,\n  \"segments\": []\n}"

	out := n.NormalizeLines(raw)

	assert.Equal(t, "{\n\"total_duration\": 10,\n\"segments\": []\n}", out)
}
