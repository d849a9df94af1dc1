package fixapply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Codeunit.al")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyExactMatchReplacesExactlyOneOccurrenceByteIdenticalElsewhere(t *testing.T) {
	original := "codeunit 50100 X {\n    field(1; \"Name\"; Text[50]) { }\n}\nother content below\n"
	path := writeTempFile(t, original)

	result, err := Apply(path, "field(1; \"Name\"; Text[50]) { }", "field(1; \"Name\"; Text[100]) { }")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, MatchExact, result.MatchType)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := "codeunit 50100 X {\n    field(1; \"Name\"; Text[100]) { }\n}\nother content below\n"
	assert.Equal(t, expected, string(data))
}

func TestApplyFuzzyMatchPreservesLeadingIndentation(t *testing.T) {
	original := "codeunit 50100 X {\n field(1; \"Name\"; Text[50]) { }\n}\n"
	path := writeTempFile(t, original)

	result, err := Apply(path, `field(1; "Name"; Text[50]) { }`, `field(1; "Name"; Text[100]) { }`)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, MatchFuzzy, result.MatchType)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "codeunit 50100 X {\n field(1; \"Name\"; Text[100]) { }\n}\n", string(data))
}

func TestApplyNoMatchReportsFailureWithoutWriting(t *testing.T) {
	original := "codeunit 50100 X {\n}\n"
	path := writeTempFile(t, original)

	result, err := Apply(path, "this text does not appear anywhere", "replacement")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.NotEmpty(t, result.Message)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data), "file must be untouched when no strategy matches")
}

func TestApplyMultiHunkSplitsAndAppliesEachHunkIndependently(t *testing.T) {
	original := "codeunit 50100 X {\n    procedure Foo()\n    begin\n    end;\n\n    procedure Bar()\n    begin\n    end;\n}\n"
	path := writeTempFile(t, original)

	codeBefore := "procedure Foo()\n    begin\n    end;\n// ...\nprocedure Bar()\n    begin\n    end;"
	codeAfter := "procedure Foo()\n    begin\n        Msg();\n    end;\n// ...\nprocedure Bar()\n    begin\n        Msg2();\n    end;"

	result, err := Apply(path, codeBefore, codeAfter)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, MatchMultiHunk, result.MatchType)
	assert.Equal(t, 2, result.HunksApplied)
	assert.Equal(t, 2, result.HunksTotal)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Msg();")
	assert.Contains(t, string(data), "Msg2();")
}

func TestApplyMultiHunkCountMismatchFails(t *testing.T) {
	path := writeTempFile(t, "codeunit 50100 X {\n}\n")

	codeBefore := "a\n// ...\nb"
	codeAfter := "a2"

	result, err := Apply(path, codeBefore, codeAfter)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Contains(t, result.Message, "mismatch")
}

func TestSplitHunksNoSeparatorIsNotMulti(t *testing.T) {
	_, _, isMulti := splitHunks("plain before", "plain after")
	assert.False(t, isMulti)
}
