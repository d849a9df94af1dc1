// Package debuglog parses the JSONL session logs a benchmark run leaves
// behind in a debug directory, and collects the tasks that ultimately
// failed for each model — the input to the Failure-Analysis Orchestrator.
package debuglog

import (
	"encoding/json"
	"regexp"
	"strconv"
)

// sessionFilePattern matches the significant parts of a debug-log filename:
// the kind prefix (compilation-/tests-) and the trailing session id. Only
// these two parts of the name are part of the contract; everything between
// them (provider, timestamp) is free-form.
var sessionFilePattern = regexp.MustCompile(`^(compilation|tests)-.*-session-(\d+)\.jsonl$`)

// RecordKind distinguishes the two record types this package consumes.
// Any other "type" value encountered in a JSONL line is ignored.
type RecordKind string

const (
	RecordCompilation RecordKind = "compilation_result"
	RecordTest        RecordKind = "test_result"
)

// Record is one parsed JSONL line from a session log. Only the fields the
// failure-collection algorithm needs are decoded; the rest of the line's
// payload (errors/results/output) is preserved as raw JSON for later
// consumption by the analysis prompt builder.
type Record struct {
	Type    string          `json:"type"`
	TaskID  string          `json:"taskId"`
	Model   string          `json:"model"`
	Attempt int             `json:"attempt"`
	Success bool            `json:"success"`
	Output  string          `json:"output"`
	Raw     json.RawMessage `json:"-"`
}

// Kind reports which of the two significant record types this is, or ""
// if it is some other/unrecognized type value.
func (r Record) Kind() RecordKind {
	switch RecordKind(r.Type) {
	case RecordCompilation, RecordTest:
		return RecordKind(r.Type)
	default:
		return ""
	}
}

// pairKey identifies one (taskId, model) pair across records.
type pairKey struct {
	taskID string
	model  string
}

// sessionFileInfo is what parseSessionFilename extracts from one filename.
type sessionFileInfo struct {
	kind      RecordKind
	sessionID int64
}

// parseSessionFilename recognizes a debug-log filename and extracts its
// kind and session id. ok is false for any name not matching the
// {compilation|tests}-...-session-<id>.jsonl contract.
func parseSessionFilename(name string) (info sessionFileInfo, ok bool) {
	m := sessionFilePattern.FindStringSubmatch(name)
	if m == nil {
		return sessionFileInfo{}, false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return sessionFileInfo{}, false
	}
	kind := RecordCompilation
	if m[1] == "tests" {
		kind = RecordTest
	}
	return sessionFileInfo{kind: kind, sessionID: id}, true
}
