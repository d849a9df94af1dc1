// Package sandbox implements the out-of-process sandbox executor, the
// tool-server process manager it depends on, and the output analyzer that
// turns unstructured container/tool text into structured outcomes.
package sandbox

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/centralgauge/centralgauge/internal/outcome"
)

// OutputAnalysis is the structured view of an unstructured container or
// tool-output text blob.
type OutputAnalysis struct {
	Success           bool
	FailurePhase      outcome.Phase
	TerminationReason outcome.TerminationReason
	Compilation       *outcome.CompilationDetail
	Tests             *outcome.TestsDetail
	Summary           string
}

var (
	compilationErrorPattern = regexp.MustCompile(`([^(\r\n]+)\((\d+),(\d+)\):\s*error\s+(AL\d+):\s*(.+)`)
	genericErrorLinePattern = regexp.MustCompile(`(?m)^ERROR:\s*(.+)$`)
	appGenerationFailed     = regexp.MustCompile(`App generation failed`)

	testStatsPattern       = regexp.MustCompile(`(\d+)/(\d+)\s+(?:tests?\s+)?passed`)
	testFunctionFailure    = regexp.MustCompile(`Testfunction\s+(\S+)\s+Failure`)
	testFunctionErrorMerge = regexp.MustCompile(`Testfunction\s+(\S+)\s+(?:Error|Exception):\s*(.+)`)

	compileFailedTextPattern = regexp.MustCompile(`(?i)compile:\s*failed|compilation failed`)

	maxTurnsTextPattern  = regexp.MustCompile(`(?i)max turns`)
	containerTextPattern = regexp.MustCompile(`(?i)container`)
	failureKeywords      = regexp.MustCompile(`(?i)fail|error|crash`)
)

// extractCompilationErrors implements the compile-error extraction rules:
// the `file(line,col): error ALnnnn: message` pattern, plus any `ERROR: ...`
// line (deduplicated by message, tagged AL0000), plus a fallback entry if the
// literal "App generation failed" appears.
func extractCompilationErrors(output string) []outcome.CompilationError {
	var errs []outcome.CompilationError
	seen := make(map[string]bool)

	for _, m := range compilationErrorPattern.FindAllStringSubmatch(output, -1) {
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		e := outcome.CompilationError{
			File:    strings.TrimSpace(m[1]),
			Line:    line,
			Column:  col,
			Code:    m[4],
			Message: strings.TrimSpace(m[5]),
		}
		key := e.Code + "|" + e.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		errs = append(errs, e)
	}

	for _, m := range genericErrorLinePattern.FindAllStringSubmatch(output, -1) {
		msg := strings.TrimSpace(m[1])
		key := "AL0000|" + msg
		if seen[key] {
			continue
		}
		seen[key] = true
		errs = append(errs, outcome.CompilationError{Code: "AL0000", Message: msg})
	}

	if appGenerationFailed.MatchString(output) {
		key := "AL0000|App generation failed"
		if !seen[key] {
			errs = append(errs, outcome.CompilationError{Code: "AL0000", Message: "App generation failed"})
		}
	}

	return errs
}

// extractTestStats implements the `N/M passed` test-statistics extraction.
func extractTestStats(output string) (passed, total int, ok bool) {
	m := testStatsPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, false
	}
	p, _ := strconv.Atoi(m[1])
	t, _ := strconv.Atoi(m[2])
	return p, t, true
}

// extractTestFailures implements the named test-failure extraction: a first
// pass collects `Testfunction X Failure` names, a second pass merges
// `Testfunction X (Error|Exception): message` into the matching name,
// creating a new entry if none was found by the first pass. If the stats
// show failures but no test was named, one placeholder entry is synthesized
// per failed test; named entries are never padded up to the stats count.
func extractTestFailures(output string, passed, total int, statsOK bool) []outcome.TestFailureDetail {
	order := []string{}
	byName := make(map[string]*outcome.TestFailureDetail)

	for _, m := range testFunctionFailure.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if _, ok := byName[name]; !ok {
			byName[name] = &outcome.TestFailureDetail{Name: name}
			order = append(order, name)
		}
	}

	for _, m := range testFunctionErrorMerge.FindAllStringSubmatch(output, -1) {
		name, msg := m[1], strings.TrimSpace(m[2])
		entry, ok := byName[name]
		if !ok {
			entry = &outcome.TestFailureDetail{Name: name}
			byName[name] = entry
			order = append(order, name)
		}
		entry.Message = msg
	}

	failures := make([]outcome.TestFailureDetail, 0, len(order))
	for _, name := range order {
		failures = append(failures, *byName[name])
	}

	if statsOK && passed < total && len(failures) == 0 {
		for i := 0; i < total-passed; i++ {
			failures = append(failures, outcome.TestFailureDetail{
				Name:    "Test " + strconv.Itoa(i+1),
				Message: "test failed (no detail reported)",
			})
		}
	}

	return failures
}

// Analyze implements the decision flow of the harness's output analyzer:
// timeout first, then a structured Compile/Result pair when present,
// otherwise inference from compile-failure/test-stat text, classifying the
// non-success phase and termination reason.
func Analyze(output string, timedOut bool) OutputAnalysis {
	if timedOut {
		return OutputAnalysis{
			Success:           false,
			FailurePhase:      outcome.PhaseTimeout,
			TerminationReason: outcome.TerminationTimeout,
			Summary:           "execution exceeded its configured timeout",
		}
	}

	compileErrs := extractCompilationErrors(output)
	passed, total, statsOK := extractTestStats(output)
	testFailures := extractTestFailures(output, passed, total, statsOK)

	var compilation *outcome.CompilationDetail
	if len(compileErrs) > 0 {
		compilation = &outcome.CompilationDetail{Errors: compileErrs}
	}
	var tests *outcome.TestsDetail
	if statsOK || len(testFailures) > 0 {
		tests = &outcome.TestsDetail{Passed: passed, Total: total, Failures: testFailures}
	}

	compileSuccess, compileKnown := outcome.DetectStructuredCompile(output)
	resultPass, resultKnown := outcome.DetectStructuredResult(output)

	if !compileKnown {
		compileSuccess = len(compileErrs) == 0 && !compileFailedTextPattern.MatchString(output)
	}
	allTestsPassed := statsOK && passed == total

	var success bool
	switch {
	case resultKnown:
		success = compileSuccess && resultPass
	case allTestsPassed:
		success = compileSuccess
	case outcome.IsTestSuccessText(output):
		success = compileSuccess
	default:
		// No explicit pass signal and no test-success phrasing: this is
		// only a legitimate success for a compile-only run, which is
		// signaled by the complete absence of any test information.
		success = compileSuccess && !statsOK && len(testFailures) == 0 && outcome.IsCompileSuccessText(output)
	}

	if success {
		return OutputAnalysis{
			Success:           true,
			TerminationReason: outcome.TerminationSuccess,
			Compilation:       compilation,
			Tests:             tests,
			Summary:           "execution succeeded",
		}
	}

	phase, reason, summary := classifyFailure(output, compileSuccess, compileErrs, statsOK, passed, total)
	return OutputAnalysis{
		Success:           false,
		FailurePhase:      phase,
		TerminationReason: reason,
		Compilation:       compilation,
		Tests:             tests,
		Summary:           summary,
	}
}

func classifyFailure(output string, compileSuccess bool, compileErrs []outcome.CompilationError, statsOK bool, passed, total int) (outcome.Phase, outcome.TerminationReason, string) {
	if !compileSuccess || len(compileErrs) > 0 {
		return outcome.PhaseCompilation, outcome.TerminationError, "compilation failed"
	}
	if statsOK && passed < total {
		return outcome.PhaseTestExecution, outcome.TerminationTestFailure, "tests failed"
	}
	if maxTurnsTextPattern.MatchString(output) {
		return outcome.PhaseAgentExecution, outcome.TerminationMaxTurns, "agent exhausted its turn budget"
	}
	if containerTextPattern.MatchString(output) && failureKeywords.MatchString(output) {
		return outcome.PhaseContainerStartup, outcome.TerminationError, "container failed to start"
	}
	return outcome.PhaseUnknown, outcome.TerminationError, "unclassified failure"
}
