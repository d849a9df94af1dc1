package agentexec

import "github.com/centralgauge/centralgauge/internal/outcome"

// Method names the rule that decided a Detection, for diagnostics and for
// the testable property that structured results dominate.
type Method string

const (
	MethodStructuredResult Method = "structured_result"
	MethodTestPatterns     Method = "test_patterns"
	MethodCompilePatterns  Method = "compile_patterns"
	MethodNone             Method = "none"
)

// Detection is the outcome of running the layered success rules over one
// aggregated output string.
type Detection struct {
	Success bool
	Method  Method
}

// DetectSuccess runs the strict layered success rules of the harness
// specification: a structured Result: Pass|Fail line is authoritative; else,
// for test-requiring tasks, the test-success phrasings (or a compile-success
// pattern combined with the absence of the word "failed"); else, for
// compile-only tasks, any compile-success pattern.
//
// These rules intentionally preserve two known imprecision trade-offs from
// the source behavior: the "<N> tests passed" phrasing can read a smaller
// N as success even when a larger total exists elsewhere in the text, and
// the `"success": true` compile pattern can match unrelated tool output.
// Both are kept as-is rather than tightened.
func DetectSuccess(output string, requiresTests bool) Detection {
	if v, ok := outcome.DetectStructuredResult(output); ok {
		return Detection{Success: v, Method: MethodStructuredResult}
	}

	if requiresTests {
		if outcome.IsTestSuccessText(output) {
			return Detection{Success: true, Method: MethodTestPatterns}
		}
		if outcome.IsCompileSuccessText(output) && !outcome.FailedWordPattern.MatchString(output) {
			return Detection{Success: true, Method: MethodTestPatterns}
		}
		return Detection{Success: false, Method: MethodNone}
	}

	if outcome.IsCompileSuccessText(output) {
		return Detection{Success: true, Method: MethodCompilePatterns}
	}
	return Detection{Success: false, Method: MethodNone}
}
