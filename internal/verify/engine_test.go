package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralgauge/centralgauge/internal/outcome"
)

type fakeCompiler struct {
	compileCalls []string
	compileErrs  map[string][]outcome.CompilationError
	publishCalls []string
	testsPassed  int
	testsTotal   int
	testFailures []outcome.TestFailureDetail
}

func (c *fakeCompiler) Compile(ctx context.Context, projectDir string) (string, []outcome.CompilationError, error) {
	c.compileCalls = append(c.compileCalls, projectDir)
	return filepath.Join(projectDir, "out.app"), c.compileErrs[projectDir], nil
}

func (c *fakeCompiler) Publish(ctx context.Context, appFilePath string) error {
	c.publishCalls = append(c.publishCalls, appFilePath)
	return nil
}

func (c *fakeCompiler) RunTests(ctx context.Context, appFilePath string, codeunitID *int) (int, int, []outcome.TestFailureDetail, error) {
	return c.testsPassed, c.testsTotal, c.testFailures, nil
}

func setupVerifyProject(t *testing.T) (projectDir, testFilePath, repoRoot string) {
	t.Helper()
	repoRoot = t.TempDir()
	projectDir = filepath.Join(repoRoot, "artifacts", "CG-AL-E008", "project")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "app.json"),
		[]byte(`{"id":"proj-1","name":"Task","publisher":"CentralGauge","version":"1.0.0.0"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "Codeunit.al"), []byte("codeunit 50100 X {}"), 0o644))

	testsDir := filepath.Join(repoRoot, "tests", "al", "easy")
	require.NoError(t, os.MkdirAll(testsDir, 0o755))
	testFilePath = filepath.Join(testsDir, "CG-AL-E008.Test.al")
	require.NoError(t, os.WriteFile(testFilePath, []byte("codeunit 80100 Test {}"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "tests", "al", "dependencies"), 0o755))
	return projectDir, testFilePath, repoRoot
}

func TestVerifySuccessStagesAndRunsTests(t *testing.T) {
	projectDir, testFilePath, repoRoot := setupVerifyProject(t)
	compiler := &fakeCompiler{testsPassed: 3, testsTotal: 3}
	engine := NewEngine(compiler)

	result, err := engine.Verify(context.Background(), Request{
		ProjectDir:   projectDir,
		TestFilePath: testFilePath,
		RepoRoot:     repoRoot,
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "CG-AL-E008", result.TaskID)
	assert.True(t, result.Success)
	require.NotNil(t, result.Tests)
	assert.Equal(t, 3, result.Tests.Passed)
	assert.Equal(t, 3, result.Tests.Total)
	require.Len(t, compiler.compileCalls, 1, "no prerequisites means exactly one combined-project compile")
	assert.NotEqual(t, "project", filepath.Base(compiler.compileCalls[0]))

	stagedAppJSONPath := filepath.Join(compiler.compileCalls[0], "app.json")
	staged, err := LoadAppJSON(stagedAppJSONPath)
	require.NoError(t, err)
	assert.True(t, hasDependency(staged.Dependencies, libraryAssertID))

	stagedSource := filepath.Join(compiler.compileCalls[0], "Codeunit.al")
	_, err = os.Stat(stagedSource)
	assert.NoError(t, err, "project *.al files must be copied into the verify directory")

	stagedTest := filepath.Join(compiler.compileCalls[0], "CG-AL-E008.Test.al")
	_, err = os.Stat(stagedTest)
	assert.NoError(t, err, "the test file must be copied into the verify directory")
}

func TestVerifyCombinedCompileFailureShortCircuitsTests(t *testing.T) {
	projectDir, testFilePath, repoRoot := setupVerifyProject(t)
	compiler := &fakeCompiler{}
	failing := &failAllCompiler{fakeCompiler: compiler}
	engine := NewEngine(failing)

	result, err := engine.Verify(context.Background(), Request{
		ProjectDir:   projectDir,
		TestFilePath: testFilePath,
		RepoRoot:     repoRoot,
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.NotNil(t, result.Compilation)
	assert.Len(t, result.Compilation.Errors, 1)
}

type failAllCompiler struct {
	*fakeCompiler
}

func (c *failAllCompiler) Compile(ctx context.Context, projectDir string) (string, []outcome.CompilationError, error) {
	c.compileCalls = append(c.compileCalls, projectDir)
	return filepath.Join(projectDir, "out.app"), []outcome.CompilationError{
		{File: "Codeunit.al", Line: 1, Column: 1, Code: "AL0001", Message: "forced failure"},
	}, nil
}

func TestVerifyWithPrerequisitesCompilesAndPublishesInOrder(t *testing.T) {
	projectDir, testFilePath, repoRoot := setupVerifyProject(t)

	depsDir := filepath.Join(repoRoot, "tests", "al", "dependencies")
	writeAppJSONFixture(t, filepath.Join(depsDir, "base"), AppJSON{
		ID: "id-base", Name: "Base", Publisher: "CentralGauge", Version: "1.0.0.0",
	})
	writeAppJSONFixture(t, filepath.Join(depsDir, "CG-AL-E008"), AppJSON{
		ID: "id-task", Dependencies: []Dependency{{ID: "id-base"}},
	})

	compiler := &fakeCompiler{testsPassed: 1, testsTotal: 1}
	engine := NewEngine(compiler)

	result, err := engine.Verify(context.Background(), Request{
		ProjectDir:   projectDir,
		TestFilePath: testFilePath,
		RepoRoot:     repoRoot,
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, compiler.compileCalls, 2, "one prerequisite compile plus the combined compile")
	assert.Equal(t, filepath.Join(depsDir, "base"), compiler.compileCalls[0])
	require.Len(t, compiler.publishCalls, 1)
	assert.Contains(t, compiler.publishCalls[0], "CentralGauge_Base_1.0.0.0.app")
}
