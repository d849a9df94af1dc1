package debuglog

import (
	"fmt"
	"sort"
)

// FailureType distinguishes why a task is still considered failing.
type FailureType string

const (
	FailureCompilation FailureType = "compilation"
	FailureTest        FailureType = "test"
)

// FailingTask is one (task, model) pair that did not eventually succeed,
// carrying everything the analysis prompt builder needs to load context
// for it.
type FailingTask struct {
	TaskID      string
	Model       string
	Attempt     int
	FailureType FailureType
	Record      Record
	TaskYAML    string
	TestAL      string
	ProjectDir  string
}

// CollectFailures runs the failure-collection algorithm against one
// session: it loads the session's records, excludes (taskId, model)
// pairs that eventually succeeded, keeps the latest-attempt failure for
// each remaining pair (compilation failures superseding test failures for
// the same pair), and skips any pair whose task YAML no longer exists.
func CollectFailures(debugDir string, sessionID int64, repoRoot string) ([]FailingTask, error) {
	records, err := LoadSessionRecords(debugDir, sessionID)
	if err != nil {
		return nil, err
	}

	compilations := make(map[pairKey][]Record)
	tests := make(map[pairKey][]Record)
	var order []pairKey
	seen := make(map[pairKey]bool)

	for _, r := range records {
		key := pairKey{taskID: r.TaskID, model: r.Model}
		if !seen[key] {
			seen[key] = true
			order = append(order, key)
		}
		switch r.Kind() {
		case RecordCompilation:
			compilations[key] = append(compilations[key], r)
		case RecordTest:
			tests[key] = append(tests[key], r)
		}
	}

	var out []FailingTask
	for _, key := range order {
		latestCompile := latestByAttempt(compilations[key])
		latestTest := latestByAttempt(tests[key])

		if latestCompile != nil && latestCompile.Success && latestTest != nil && latestTest.Success {
			continue // eventually successful
		}

		var compileFailureEmitted bool
		if latestCompile != nil && !latestCompile.Success {
			taskYAML, err := TaskYAMLPath(repoRoot, key.taskID)
			if err != nil {
				return nil, err
			}
			if taskYAML == "" {
				continue
			}
			out = append(out, FailingTask{
				TaskID:      key.taskID,
				Model:       key.model,
				Attempt:     latestCompile.Attempt,
				FailureType: FailureCompilation,
				Record:      *latestCompile,
				TaskYAML:    taskYAML,
				TestAL:      TestALPath(repoRoot, key.taskID),
				ProjectDir:  ProjectDir(debugDir, key.taskID, key.model, latestCompile.Attempt),
			})
			compileFailureEmitted = true
		}

		if latestTest != nil && !latestTest.Success && !compileFailureEmitted {
			taskYAML, err := TaskYAMLPath(repoRoot, key.taskID)
			if err != nil {
				return nil, err
			}
			if taskYAML == "" {
				continue
			}
			out = append(out, FailingTask{
				TaskID:      key.taskID,
				Model:       key.model,
				Attempt:     latestTest.Attempt,
				FailureType: FailureTest,
				Record:      *latestTest,
				TaskYAML:    taskYAML,
				TestAL:      TestALPath(repoRoot, key.taskID),
				ProjectDir:  ProjectDir(debugDir, key.taskID, key.model, latestTest.Attempt),
			})
		}
	}

	return out, nil
}

// latestByAttempt returns the record with the highest Attempt, or nil if
// records is empty.
func latestByAttempt(records []Record) *Record {
	if len(records) == 0 {
		return nil
	}
	sorted := append([]Record(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Attempt > sorted[j].Attempt })
	return &sorted[0]
}

// String formats a FailingTask for log/error messages.
func (f FailingTask) String() string {
	return fmt.Sprintf("%s/%s (attempt %d, %s)", f.TaskID, f.Model, f.Attempt, f.FailureType)
}
