package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralgauge/centralgauge/internal/debuglog"
)

func compilationFailingTask(t *testing.T) debuglog.FailingTask {
	t.Helper()
	payload := map[string]any{
		"errors": []map[string]any{
			{"file": "Foo.al", "line": 10, "column": 5, "code": "AL0185", "message": "identifier not found"},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return debuglog.FailingTask{
		TaskID:      "CG-AL-E008",
		Model:       "claude-3.7-sonnet",
		Attempt:     1,
		FailureType: debuglog.FailureCompilation,
		Record:      debuglog.Record{Raw: raw},
	}
}

func testFailingTask(t *testing.T) debuglog.FailingTask {
	t.Helper()
	payload := map[string]any{
		"results": []map[string]any{
			{"name": "TestFoo", "success": false, "message": "expected 1 got 2"},
			{"name": "TestBar", "success": true},
		},
		"output": "full run output",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return debuglog.FailingTask{
		TaskID:      "CG-AL-E015",
		Model:       "claude-3.7-sonnet",
		Attempt:     1,
		FailureType: debuglog.FailureTest,
		Record:      debuglog.Record{Raw: raw},
	}
}

func TestBuildPromptIncludesAllSections(t *testing.T) {
	system, user := BuildPrompt(compilationFailingTask(t), "id: CG-AL-E008", "codeunit 1 Test { }", "codeunit 2 Impl { }")

	assert.Contains(t, system, "raw JSON")
	assert.Contains(t, user, "id: CG-AL-E008")
	assert.Contains(t, user, "codeunit 1 Test { }")
	assert.Contains(t, user, "codeunit 2 Impl { }")
	assert.Contains(t, user, "id_conflict")
	assert.Contains(t, user, "AL0185")
}

func TestFormatErrorSectionTruncatesCompilationErrorsToTen(t *testing.T) {
	var errs []map[string]any
	for i := 0; i < 15; i++ {
		errs = append(errs, map[string]any{"file": "X.al", "line": i, "column": 1, "code": "AL0001", "message": "err"})
	}
	raw, err := json.Marshal(map[string]any{"errors": errs})
	require.NoError(t, err)
	ft := debuglog.FailingTask{FailureType: debuglog.FailureCompilation, Record: debuglog.Record{Raw: raw}}

	section := formatErrorSection(ft)

	assert.Equal(t, 10, strings.Count(section, "AL0001"))
}

func TestFormatErrorSectionListsFailingTestsOnly(t *testing.T) {
	section := formatErrorSection(testFailingTask(t))

	assert.Contains(t, section, "TestFoo")
	assert.NotContains(t, section, "TestBar")
	assert.Contains(t, section, "full run output")
}

func TestTruncateRespectsMaxLength(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
