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
	"errors"
	"strings"
	"testing"

	"github.com/mosaicvideo/gcp-go-video-planner/internal/core/recovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseStrictDecodesValidPayload verifies the success path returns the
// generic decoded value.
func TestParseStrictDecodesValidPayload(t *testing.T) {
	v, err := recovery.ParseStrict(`{"total_duration": 10, "segments": []}`)

	require.NoError(t, err)
	obj := v.(map[string]any)
	assert.Equal(t, 10.0, obj["total_duration"])
}

// TestParseStrictReturnsTypedErrorWithDiagnostic verifies that a rejected
// payload comes back as a *SyntaxRepairError carrying a non-zero offset and
// a rendered window with a caret.
func TestParseStrictReturnsTypedErrorWithDiagnostic(t *testing.T) {
	_, err := recovery.ParseStrict("{\n  \"duration\": 4.0\n  \"order\": 2\n}")

	var syntaxErr *recovery.SyntaxRepairError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Greater(t, syntaxErr.Offset, int64(0))
	assert.Contains(t, syntaxErr.Diagnostic, "parse failure at offset")
	assert.Contains(t, syntaxErr.Diagnostic, "^")
}

// TestDiagnoseRendersLineNumbersAndCaret verifies the window layout: each
// line carries its number and the caret row sits under the failure column.
func TestDiagnoseRendersLineNumbersAndCaret(t *testing.T) {
	text := "{\n\"a\": 1,\n\"b\": !\n}"
	// Offset of the '!' byte.
	offset := int64(strings.IndexByte(text, '!'))

	out := recovery.Diagnose(text, offset)

	assert.Contains(t, out, "   3 | \"b\": !")
	lines := strings.Split(out, "\n")
	var caretLine string
	for _, l := range lines {
		if strings.Contains(l, "^") {
			caretLine = l
		}
	}
	require.NotEmpty(t, caretLine)
	// Caret column: prefix "     | " plus the five characters before '!'.
	assert.Equal(t, "     |      ^", caretLine)
}

// TestDiagnoseVisualizesWhitespace verifies that tabs are rendered as \t so
// an invisible character can be seen in the window.
func TestDiagnoseVisualizesWhitespace(t *testing.T) {
	out := recovery.Diagnose("{\t\"a\": 1}", 1)
	assert.Contains(t, out, `\t`)
}

// TestDiagnoseWindowIsBounded verifies that only text near the offset is
// rendered for a large payload.
func TestDiagnoseWindowIsBounded(t *testing.T) {
	head := strings.Repeat("x", 2000)
	tail := strings.Repeat("y", 2000)
	text := head + "\nHERE\n" + tail

	out := recovery.Diagnose(text, int64(len(head)+3))

	assert.Contains(t, out, "HERE")
	assert.NotContains(t, out, head)
	assert.NotContains(t, out, tail)
}
