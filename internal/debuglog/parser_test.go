package debuglog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepoForTask(t *testing.T, repoRoot, taskID string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "tasks", "easy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "tasks", "easy", taskID+".yml"), []byte("id: "+taskID+"\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "tests", "al", "easy"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "tests", "al", "easy", taskID+".Test.al"), []byte("codeunit 1 {}"), 0o644))
}

func TestCollectFailuresExcludesEventuallySuccessful(t *testing.T) {
	debugDir := t.TempDir()
	repoRoot := t.TempDir()
	setupRepoForTask(t, repoRoot, "CG-AL-E001")

	writeJSONL(t, filepath.Join(debugDir, "compilation-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"compilation_result","taskId":"CG-AL-E001","model":"claude","attempt":1,"success":false}`,
		`{"type":"compilation_result","taskId":"CG-AL-E001","model":"claude","attempt":2,"success":true}`,
	})
	writeJSONL(t, filepath.Join(debugDir, "tests-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"test_result","taskId":"CG-AL-E001","model":"claude","attempt":2,"success":true}`,
	})

	failing, err := CollectFailures(debugDir, 1, repoRoot)
	require.NoError(t, err)
	assert.Empty(t, failing)
}

func TestCollectFailuresCompilationSupersedesTest(t *testing.T) {
	debugDir := t.TempDir()
	repoRoot := t.TempDir()
	setupRepoForTask(t, repoRoot, "CG-AL-E002")

	writeJSONL(t, filepath.Join(debugDir, "compilation-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"compilation_result","taskId":"CG-AL-E002","model":"claude","attempt":1,"success":false}`,
	})
	writeJSONL(t, filepath.Join(debugDir, "tests-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"test_result","taskId":"CG-AL-E002","model":"claude","attempt":1,"success":false}`,
	})

	failing, err := CollectFailures(debugDir, 1, repoRoot)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	assert.Equal(t, FailureCompilation, failing[0].FailureType)
}

func TestCollectFailuresKeepsLatestAttemptAndEmitsTestFailure(t *testing.T) {
	debugDir := t.TempDir()
	repoRoot := t.TempDir()
	setupRepoForTask(t, repoRoot, "CG-AL-E003")

	writeJSONL(t, filepath.Join(debugDir, "compilation-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"compilation_result","taskId":"CG-AL-E003","model":"claude","attempt":1,"success":false}`,
		`{"type":"compilation_result","taskId":"CG-AL-E003","model":"claude","attempt":2,"success":true}`,
	})
	writeJSONL(t, filepath.Join(debugDir, "tests-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"test_result","taskId":"CG-AL-E003","model":"claude","attempt":1,"success":false}`,
		`{"type":"test_result","taskId":"CG-AL-E003","model":"claude","attempt":2,"success":false}`,
	})

	failing, err := CollectFailures(debugDir, 1, repoRoot)
	require.NoError(t, err)
	require.Len(t, failing, 1)
	assert.Equal(t, FailureTest, failing[0].FailureType)
	assert.Equal(t, 2, failing[0].Attempt)
	assert.Equal(t, "claude", failing[0].Model)
	assert.Contains(t, failing[0].ProjectDir, "attempt_2")
	assert.Contains(t, failing[0].ProjectDir, "anthropic_claude")
}

func TestCollectFailuresSkipsWhenTaskYAMLMissing(t *testing.T) {
	debugDir := t.TempDir()
	repoRoot := t.TempDir() // no tasks/ directory at all

	writeJSONL(t, filepath.Join(debugDir, "compilation-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"compilation_result","taskId":"CG-AL-E099","model":"claude","attempt":1,"success":false}`,
	})

	failing, err := CollectFailures(debugDir, 1, repoRoot)
	require.NoError(t, err)
	assert.Empty(t, failing)
}

func TestCollectFailuresNoTestRecordsNeverEventuallySuccessful(t *testing.T) {
	debugDir := t.TempDir()
	repoRoot := t.TempDir()
	setupRepoForTask(t, repoRoot, "CG-AL-E004")

	writeJSONL(t, filepath.Join(debugDir, "compilation-anthropic-ts-session-1.jsonl"), []string{
		`{"type":"compilation_result","taskId":"CG-AL-E004","model":"claude","attempt":1,"success":true}`,
	})

	failing, err := CollectFailures(debugDir, 1, repoRoot)
	require.NoError(t, err)
	assert.Empty(t, failing, "a compile-only task whose latest compilation succeeded has no failure to report even without a test record")
}
