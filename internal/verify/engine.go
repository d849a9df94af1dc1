package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/centralgauge/centralgauge/internal/outcome"
)

// Compiler is the collaborator boundary to the provisioned Business Central
// container: compiling an AL project directory into an app file, publishing
// an already-compiled app, and running its tests. No production
// implementation ships here — the concrete driver depends on the external,
// Windows-only BC container tooling, which is out of scope; callers inject
// a real driver or a test fake.
type Compiler interface {
	Compile(ctx context.Context, projectDir string) (appFilePath string, errs []outcome.CompilationError, err error)
	Publish(ctx context.Context, appFilePath string) error
	RunTests(ctx context.Context, appFilePath string, codeunitID *int) (passed, total int, failures []outcome.TestFailureDetail, err error)
}

// Request describes one verification request: a generated project plus the
// hidden test file to run against it.
type Request struct {
	ProjectDir   string
	TestFilePath string
	RepoRoot     string
	CodeunitID   *int // optional restriction to a single test codeunit
}

// Result is the structured outcome of one verification run.
type Result struct {
	TaskID      string
	Success     bool
	Compilation *outcome.CompilationDetail
	Tests       *outcome.TestsDetail
}

// Engine runs the verification workflow of the harness against an injected
// Compiler.
type Engine struct {
	compiler Compiler
}

// NewEngine constructs an Engine against compiler.
func NewEngine(compiler Compiler) *Engine {
	return &Engine{compiler: compiler}
}

// Verify runs the full seven-step workflow: parse the task id, resolve and
// compile prerequisites in order, stage an isolated verify directory with
// a merged app.json, compile the combined project, publish prerequisites,
// and run tests.
func (e *Engine) Verify(ctx context.Context, req Request) (*Result, error) {
	taskID, err := ParseTaskID(req.TestFilePath)
	if err != nil {
		return nil, err
	}

	depsDir := filepath.Join(req.RepoRoot, "tests", "al", "dependencies")
	prereqDirs, err := ResolvePrerequisites(depsDir, taskID)
	if err != nil {
		return nil, err
	}

	for _, dir := range prereqDirs {
		_, errs, err := e.compiler.Compile(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("verify %s: compile prerequisite %s: %w", taskID, dir, err)
		}
		if len(errs) > 0 {
			return &Result{
				TaskID:      taskID,
				Success:     false,
				Compilation: &outcome.CompilationDetail{Errors: errs},
			}, nil
		}
	}

	var lastPrereqID string
	if len(prereqDirs) > 0 {
		lastApp, err := LoadAppJSON(filepath.Join(prereqDirs[len(prereqDirs)-1], "app.json"))
		if err != nil {
			return nil, err
		}
		lastPrereqID = lastApp.ID
	}

	verifyDir, err := e.stageVerifyDirectory(req.ProjectDir, req.TestFilePath, lastPrereqID)
	if err != nil {
		return nil, err
	}

	appFilePath, compileErrs, err := e.compiler.Compile(ctx, verifyDir)
	if err != nil {
		return nil, fmt.Errorf("verify %s: compile combined project: %w", taskID, err)
	}
	if len(compileErrs) > 0 {
		return &Result{
			TaskID:      taskID,
			Success:     false,
			Compilation: &outcome.CompilationDetail{Errors: compileErrs},
		}, nil
	}

	for _, dir := range prereqDirs {
		appJSON, err := LoadAppJSON(filepath.Join(dir, "app.json"))
		if err != nil {
			return nil, err
		}
		prereqApp := filepath.Join(dir, appFileName(appJSON))
		if err := e.compiler.Publish(ctx, prereqApp); err != nil {
			return nil, fmt.Errorf("verify %s: publish prerequisite %s: %w", taskID, prereqApp, err)
		}
	}

	passed, total, failures, err := e.compiler.RunTests(ctx, appFilePath, req.CodeunitID)
	if err != nil {
		return nil, fmt.Errorf("verify %s: run tests: %w", taskID, err)
	}

	return &Result{
		TaskID:  taskID,
		Success: len(failures) == 0 && passed == total,
		Tests:   &outcome.TestsDetail{Passed: passed, Total: total, Failures: failures},
	}, nil
}

// stageVerifyDirectory creates the isolated verify-<ts36>-<r36> directory
// next to projectDir, merges app.json into it, and copies every *.al file
// plus the test file.
func (e *Engine) stageVerifyDirectory(projectDir, testFilePath, lastPrereqID string) (string, error) {
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("verify: resolve project dir: %w", err)
	}

	dirName := fmt.Sprintf("verify-%s-%s", timestampBase36(), randomBase36())
	verifyDir := filepath.Join(filepath.Dir(absProject), dirName)
	if err := os.MkdirAll(verifyDir, 0o755); err != nil {
		return "", fmt.Errorf("verify: create verify directory: %w", err)
	}

	project, err := LoadAppJSON(filepath.Join(absProject, "app.json"))
	if err != nil {
		return "", err
	}
	merged := MergeForVerify(*project, lastPrereqID)
	if err := writeAppJSON(filepath.Join(verifyDir, "app.json"), merged); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(absProject)
	if err != nil {
		return "", fmt.Errorf("verify: read project dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".al") {
			continue
		}
		if err := copyFile(filepath.Join(absProject, entry.Name()), filepath.Join(verifyDir, entry.Name())); err != nil {
			return "", err
		}
	}

	testDest := filepath.Join(verifyDir, filepath.Base(testFilePath))
	if err := copyFile(testFilePath, testDest); err != nil {
		return "", fmt.Errorf("verify: copy test file: %w", err)
	}

	return verifyDir, nil
}

// timestampBase36 and randomBase36 produce the <ts36>/<r36> components of
// a verify directory name: the current Unix time in nanoseconds and a random suffix, both
// base36-encoded so the combination stays short and collision-resistant
// across concurrent verify runs.
func timestampBase36() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func randomBase36() string {
	return strconv.FormatInt(rand.Int63(), 36)
}

func appFileName(app *AppJSON) string {
	return fmt.Sprintf("%s_%s_%s.app", app.Publisher, app.Name, app.Version)
}

func writeAppJSON(path string, app AppJSON) error {
	data, err := json.MarshalIndent(app, "", "  ")
	if err != nil {
		return fmt.Errorf("verify: marshal app.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("verify: write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("verify: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("verify: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("verify: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}
