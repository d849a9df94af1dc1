package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/centralgauge/centralgauge/internal/debuglog"
)

// maxOutputChars bounds how much raw container/agent output is quoted in
// the prompt: after the failing-test list for a test failure, and on its
// own for a failure of any other type.
const maxOutputChars = 2000

// maxCompilationErrors bounds how many compilation errors are listed.
const maxCompilationErrors = 10

const systemMessage = "You are an expert in Microsoft Dynamics 365 Business Central AL development reviewing why a generated solution failed verification. Respond with raw JSON only - no markdown fences - matching the schema you were given."

const instructionBlock = `Classify this failure as exactly one of two outcomes.

"fixable" - a small, mechanical defect correctable with an exact (codeBefore, codeAfter) pair. subCategory must be one of: id_conflict, syntax_error, test_logic_bug, task_definition_issue. Set affectedFile to "task_yaml" or "test_al" depending on which file the fix belongs in.

"model_shortcoming" - the failure reflects a genuine gap in the model's understanding of an AL concept, not a one-line slip. Provide concept, alConcept, description, an optional errorCode, and incorrect/correct code excerpts.

Respond with raw JSON only, matching this shape:
{"outcome": "fixable"|"model_shortcoming", "subCategory": "...", "affectedFile": "task_yaml"|"test_al", "fix": {"filePath": "...", "codeBefore": "...", "codeAfter": "..."}, "confidence": "low"|"medium"|"high", "concept": "...", "alConcept": "...", "description": "...", "errorCode": "...", "incorrectCode": "...", "correctCode": "..."}`

// recordPayload decodes the parts of a debuglog.Record's raw JSON line that
// the prompt needs beyond the common fields debuglog.Record already
// exposes: the compilation errors or test results array, and raw output.
type recordPayload struct {
	Errors  []compileErrorEntry `json:"errors"`
	Results []testResultEntry   `json:"results"`
	Output  string              `json:"output"`
}

type compileErrorEntry struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type testResultEntry struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BuildPrompt assembles the system/user message pair for one failing
// task's analysis request: task YAML, test AL, generated non-test code,
// a formatted error section, and the fixed classification instructions.
func BuildPrompt(failing debuglog.FailingTask, taskYAML, testAL, nonTestCode string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nModel: %s\nAttempt: %d\nFailure type: %s\n\n",
		failing.TaskID, failing.Model, failing.Attempt, failing.FailureType)

	b.WriteString("=== Task YAML ===\n")
	b.WriteString(taskYAML)
	b.WriteString("\n\n=== Test AL ===\n")
	b.WriteString(testAL)
	b.WriteString("\n\n=== Generated non-test code ===\n")
	b.WriteString(nonTestCode)
	b.WriteString("\n\n=== Error section ===\n")
	b.WriteString(formatErrorSection(failing))
	b.WriteString("\n\n")
	b.WriteString(instructionBlock)

	return systemMessage, b.String()
}

// formatErrorSection renders the failing task's recorded errors or test
// failures, truncated to the first 10 compilation errors, or the failing
// test list plus up to maxOutputChars of raw output.
func formatErrorSection(failing debuglog.FailingTask) string {
	var payload recordPayload
	_ = json.Unmarshal(failing.Record.Raw, &payload) // best-effort; fields may be absent

	var b strings.Builder
	switch failing.FailureType {
	case debuglog.FailureCompilation:
		errs := payload.Errors
		if len(errs) > maxCompilationErrors {
			errs = errs[:maxCompilationErrors]
		}
		b.WriteString("Compilation errors:\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- %s(%d,%d): error %s: %s\n", e.File, e.Line, e.Column, e.Code, e.Message)
		}
	case debuglog.FailureTest:
		b.WriteString("Failing tests:\n")
		for _, r := range payload.Results {
			if r.Success {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", r.Name, r.Message)
		}
		b.WriteString("\nOutput (truncated):\n")
		b.WriteString(truncate(payload.Output, maxOutputChars))
	default:
		b.WriteString(truncate(payload.Output, maxOutputChars))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
