package debuglog

import (
	"fmt"
	"path/filepath"

	"github.com/centralgauge/centralgauge/internal/task"
)

// TaskYAMLPath resolves the by-convention path to taskID's manifest file:
// tasks/<difficulty>/<taskId>*.yml, globbed, first match wins. Returns ""
// if no file matches (the caller treats this as "task no longer exists").
func TaskYAMLPath(repoRoot, taskID string) (string, error) {
	difficulty := task.DifficultyOf(taskID)
	if difficulty == "" {
		return "", nil
	}
	pattern := filepath.Join(repoRoot, "tasks", string(difficulty), taskID+"*.yml")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("debuglog: glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	return matches[0], nil
}

// TestALPath resolves the by-convention path to taskID's hidden test file.
func TestALPath(repoRoot, taskID string) string {
	difficulty := task.DifficultyOf(taskID)
	return filepath.Join(repoRoot, "tests", "al", string(difficulty), taskID+".Test.al")
}

// ProjectDir resolves the by-convention path to one attempt's generated
// project directory, forward-slash normalized as the source convention
// requires regardless of host OS.
func ProjectDir(debugDir, taskID, model string, attempt int) string {
	p := filepath.Join(debugDir, "artifacts", taskID, "anthropic_"+model, fmt.Sprintf("attempt_%d", attempt), "project")
	return filepath.ToSlash(p)
}
