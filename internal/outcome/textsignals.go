package outcome

import (
	"regexp"
	"strings"
)

// These patterns are the single source of truth for the harness's textual
// success signals, shared by the agent execution engine's success detector
// and the sandbox output analyzer so the two layers never disagree about
// what "success" looks like in raw tool/container output.
var (
	structuredResultPattern = regexp.MustCompile(`(?i)Result:\s*(Pass|Fail)`)
	structuredCompilePattern = regexp.MustCompile(`(?i)Compile:\s*(Success|Failed)`)

	allTestsPassedLiteral  = regexp.MustCompile(`(?i)all tests passed`)
	nTestsPassedPattern    = regexp.MustCompile(`(?i)\d+\s+tests?\s+passed`)
	nOfNPassedPattern      = regexp.MustCompile(`(?i)(\d+)/(\d+)\s+(?:tests?\s+)?passed`)
	allNTestsPassedPattern = regexp.MustCompile(`(?i)all\s+\d+\s+(?:verification\s+)?tests?\s+passed`)
	taskCompletedPattern   = regexp.MustCompile(`(?i)task completed successfully|task is now complete`)
	ranSuccessfullyZero    = regexp.MustCompile(`(?i)ran successfully \(0 failures\)`)

	// FailedWordPattern is exported for callers that need the
	// compile-success-with-no-"failed" fallback guard directly.
	FailedWordPattern = regexp.MustCompile(`(?i)\bfailed\b`)

	compileSuccessPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)compilation successful`),
		regexp.MustCompile(`(?i)compilation:\s*(?:\*\*)?success(?:\*\*)?`),
		regexp.MustCompile(`(?i)✅\s*compilation`),
		regexp.MustCompile(`(?i)✅\s*success`),
		regexp.MustCompile(`(?i)"success"\s*:\s*true`),
		regexp.MustCompile(`(?i)success:\s*true`),
		regexp.MustCompile(`(?i)returning success:\s*true`),
	}
)

// DetectStructuredResult looks for the authoritative `Result: Pass|Fail`
// line. ok is false if no such line is present anywhere in output.
func DetectStructuredResult(output string) (value bool, ok bool) {
	m := structuredResultPattern.FindStringSubmatch(output)
	if m == nil {
		return false, false
	}
	return strings.EqualFold(m[1], "pass"), true
}

// DetectStructuredCompile looks for a `Compile: Success|Failed` line.
func DetectStructuredCompile(output string) (value bool, ok bool) {
	m := structuredCompilePattern.FindStringSubmatch(output)
	if m == nil {
		return false, false
	}
	return strings.EqualFold(m[1], "success"), true
}

// IsCompileSuccessText reports whether any compile-success textual pattern
// is present. Deliberately permissive — the `"success": true` and
// `success: true` variants can match unrelated tool output; this trade-off
// favors recall over precision per the source behavior.
func IsCompileSuccessText(output string) bool {
	for _, p := range compileSuccessPatterns {
		if p.MatchString(output) {
			return true
		}
	}
	return false
}

// IsTestSuccessText reports whether output matches one of the test-mode
// success phrasings (literal "all tests passed", "<N> tests passed",
// "<N>/<N> passed", "all <N> [verification] tests passed", the task-complete
// phrases, or "ran successfully (0 failures)"). It does not evaluate the
// compile-success+no-"failed" fallback — callers combine that separately.
func IsTestSuccessText(output string) bool {
	if allTestsPassedLiteral.MatchString(output) {
		return true
	}
	if nTestsPassedPattern.MatchString(output) {
		return true
	}
	if m := nOfNPassedPattern.FindStringSubmatch(output); m != nil && m[1] == m[2] {
		return true
	}
	if allNTestsPassedPattern.MatchString(output) {
		return true
	}
	if taskCompletedPattern.MatchString(output) {
		return true
	}
	if ranSuccessfullyZero.MatchString(output) {
		return true
	}
	return false
}

// TestStats extracts an "N/M passed" statistic pair, when present.
func TestStats(output string) (passed, total int, ok bool) {
	m := nOfNPassedPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, false
	}
	p, t := 0, 0
	for _, c := range m[1] {
		p = p*10 + int(c-'0')
	}
	for _, c := range m[2] {
		t = t*10 + int(c-'0')
	}
	return p, t, true
}
