// Package fixapply applies a (codeBefore, codeAfter) pair to a file,
// trying progressively looser matching strategies: exact, then a
// normalized-whitespace gate before a fuzzy contiguous-line match.
package fixapply

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var collapseWhitespace = regexp.MustCompile(`\s+`)

// MatchType names which strategy located the replaced region.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchFuzzy     MatchType = "fuzzy"
	MatchMultiHunk MatchType = "multi-hunk"
)

// Result is the structured outcome of one Apply call.
type Result struct {
	Applied      bool
	MatchType    MatchType
	HunksApplied int
	HunksTotal   int
	Message      string
}

// Apply rewrites path, replacing codeBefore with codeAfter using the first
// matching strategy, in order: exact, whitespace-normalized, then fuzzy
// contiguous-run. It never returns a non-nil error
// for a logical non-match — that is reported via Result.Applied=false and
// Result.Message. A file that cannot be read is reported the same way; a
// non-nil error indicates only a failure to write the file.
func Apply(path, codeBefore, codeAfter string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Message: fmt.Sprintf("read %s: %v", path, err)}, nil
	}
	content := string(data)

	beforeHunks, afterHunks, isMulti := splitHunks(codeBefore, codeAfter)
	if isMulti {
		return applyMultiHunk(path, content, beforeHunks, afterHunks)
	}

	newContent, matchType, ok := applyOne(content, codeBefore, codeAfter)
	if !ok {
		return Result{Message: "codeBefore not found by exact, normalized, or fuzzy match"}, nil
	}
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return Result{}, fmt.Errorf("fixapply: write %s: %w", path, err)
	}
	return Result{Applied: true, MatchType: matchType, HunksApplied: 1, HunksTotal: 1}, nil
}

func applyMultiHunk(path, content string, beforeHunks, afterHunks []string) (Result, error) {
	if len(beforeHunks) != len(afterHunks) {
		return Result{
			HunksTotal: len(beforeHunks),
			Message:    fmt.Sprintf("hunk count mismatch: %d in codeBefore, %d in codeAfter", len(beforeHunks), len(afterHunks)),
		}, nil
	}

	applied := 0
	for i := range beforeHunks {
		newContent, _, ok := applyOne(content, beforeHunks[i], afterHunks[i])
		if !ok {
			continue
		}
		content = newContent
		applied++
	}

	total := len(beforeHunks)
	if applied == 0 {
		return Result{HunksTotal: total, Message: "no hunk matched"}, nil
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Result{}, fmt.Errorf("fixapply: write %s: %w", path, err)
	}

	msg := ""
	if applied < total {
		msg = fmt.Sprintf("applied %d/%d hunks, %d could not be located", applied, total, total-applied)
	}
	return Result{
		Applied:      true,
		MatchType:    MatchMultiHunk,
		HunksApplied: applied,
		HunksTotal:   total,
		Message:      msg,
	}, nil
}

// applyOne tries the exact, then normalized-gated fuzzy, strategy against
// one (before, after) pair against content.
func applyOne(content, before, after string) (newContent string, matchType MatchType, ok bool) {
	if idx := strings.Index(content, before); idx != -1 {
		return content[:idx] + after + content[idx+len(before):], MatchExact, true
	}

	if !strings.Contains(normalizeForCompare(content), normalizeForCompare(before)) {
		return content, "", false
	}

	newContent, ok = fuzzyReplace(content, before, after)
	if !ok {
		return content, "", false
	}
	return newContent, MatchFuzzy, true
}

// normalizeForCompare trims each line and collapses internal whitespace
// runs to a single space, used as the gate for the normalized-match strategy.
func normalizeForCompare(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = collapseWhitespace.ReplaceAllString(strings.TrimSpace(l), " ")
	}
	return strings.Join(lines, "\n")
}

// fuzzyReplace scans content for a contiguous run of lines whose
// TrimSpace values equal those of before's lines, then replaces that
// exact slice with after — reapplying the matched block's first line's
// leading indentation to every non-blank line of after.
func fuzzyReplace(content, before, after string) (string, bool) {
	contentLines := strings.Split(content, "\n")
	beforeLines := strings.Split(before, "\n")
	trimmedBefore := make([]string, len(beforeLines))
	for i, l := range beforeLines {
		trimmedBefore[i] = strings.TrimSpace(l)
	}
	n := len(trimmedBefore)

	for start := 0; start+n <= len(contentLines); start++ {
		matched := true
		for j := 0; j < n; j++ {
			if strings.TrimSpace(contentLines[start+j]) != trimmedBefore[j] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		indent := leadingWhitespace(contentLines[start])
		afterLines := strings.Split(after, "\n")
		replaced := make([]string, len(afterLines))
		for i, l := range afterLines {
			trimmed := strings.TrimSpace(l)
			if trimmed == "" {
				replaced[i] = l
				continue
			}
			replaced[i] = indent + trimmed
		}

		result := make([]string, 0, len(contentLines)-n+len(replaced))
		result = append(result, contentLines[:start]...)
		result = append(result, replaced...)
		result = append(result, contentLines[start+n:]...)
		return strings.Join(result, "\n"), true
	}
	return content, false
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

// isHunkSeparator reports whether line (already trimmed) marks a
// multi-hunk boundary: a bare "..." or a "// ..." comment line.
func isHunkSeparator(trimmedLine string) bool {
	return trimmedLine == "..." || trimmedLine == "// ..."
}

// splitHunks detects the multi-hunk separator in codeBefore and, if
// present, splits both codeBefore and codeAfter into ordered hunks on it.
// isMulti is false if no separator line appears in codeBefore, in which
// case before/after are returned as a single implicit hunk by the caller.
func splitHunks(codeBefore, codeAfter string) (beforeHunks, afterHunks []string, isMulti bool) {
	if !containsSeparator(codeBefore) {
		return nil, nil, false
	}
	return splitOnSeparator(codeBefore), splitOnSeparator(codeAfter), true
}

func containsSeparator(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if isHunkSeparator(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func splitOnSeparator(text string) []string {
	lines := strings.Split(text, "\n")
	var hunks []string
	var current []string
	flush := func() {
		hunk := strings.Trim(strings.Join(current, "\n"), "\n")
		if hunk != "" {
			hunks = append(hunks, hunk)
		}
		current = nil
	}
	for _, line := range lines {
		if isHunkSeparator(strings.TrimSpace(line)) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return hunks
}
