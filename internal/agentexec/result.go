package agentexec

import (
	"fmt"
	"regexp"
	"time"

	"github.com/centralgauge/centralgauge/internal/outcome"
)

var testsLinePattern = regexp.MustCompile(`(?i)Tests:\s*(\d+)\s*/\s*(\d+)`)

// ResultSummary is a compact, human-stable parsed view of an execution's
// final output, independent of the termination bookkeeping.
type ResultSummary struct {
	CompileSuccess bool
	TestsPassed    *int
	TestsTotal     *int
	Result         string // "pass" | "fail"
	Formatted      string
}

// BuildResultSummary derives a ResultSummary from the aggregated tool output
// text, using the same detection rules as DetectSuccess plus a structured
// `Tests: N/M` line scrape that is purely cosmetic — it never influences the
// pass/fail decision.
func BuildResultSummary(output string, requiresTests bool) ResultSummary {
	compileSuccess, ok := outcome.DetectStructuredCompile(output)
	if !ok {
		compileSuccess = outcome.IsCompileSuccessText(output)
	}

	summary := ResultSummary{CompileSuccess: compileSuccess}

	if p, total, ok := scrapeTestsLine(output); ok {
		summary.TestsPassed = &p
		summary.TestsTotal = &total
	}

	det := DetectSuccess(output, requiresTests)
	if det.Success {
		summary.Result = "pass"
	} else {
		summary.Result = "fail"
	}

	lines := []string{fmt.Sprintf("Compile: %s", successWord(compileSuccess))}
	if summary.TestsPassed != nil {
		lines = append(lines, fmt.Sprintf("Tests: %d/%d", *summary.TestsPassed, *summary.TestsTotal))
	}
	lines = append(lines, fmt.Sprintf("Result: %s", resultWord(det.Success)))
	summary.Formatted = joinLines(lines)

	return summary
}

func scrapeTestsLine(output string) (passed, total int, ok bool) {
	m := testsLinePattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, false
	}
	p, t := atoiOrZero(m[1]), atoiOrZero(m[2])
	return p, t, true
}

func successWord(ok bool) string {
	if ok {
		return "Success"
	}
	return "Failed"
}

func resultWord(ok bool) string {
	if ok {
		return "Pass"
	}
	return "Fail"
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// AgentExecutionResult is the structured, always-returned outcome of one
// Execute call. Agent execution never fails by error propagation — every
// failure mode is encoded here.
type AgentExecutionResult struct {
	TaskID            string
	AgentID           string
	ExecutionID       string
	Success           bool
	FinalCode         string
	Turns             []TurnSummary
	Metrics           Metrics
	TerminationReason outcome.TerminationReason
	Duration          time.Duration
	ExecutedAt        time.Time
	TestResult        *TestResult
	ResultSummary     *ResultSummary
	FailureDetails    *outcome.DetailedFailureReason
}

// TurnSummary is the per-turn view surfaced on the result (distinct from
// internal/cost's bookkeeping record, which the engine also keeps).
type TurnSummary struct {
	Index     int
	ToolCalls []string
}

// Metrics mirrors the cost tracker's final totals at the moment the loop
// ended.
type Metrics struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Turns            int
	CompileAttempts  int
	TestRuns         int
}

// TestResult is the structured BC test outcome, when the task required
// tests and the agent reported one.
type TestResult struct {
	PassedTests int
	TotalTests  int
	Failures    []TestFailure
}

// TestFailure is one named failing test.
type TestFailure struct {
	Name    string
	Message string
}
