package debuglog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ListSessions returns every session id found among debugDir's session
// files, sorted ascending.
func ListSessions(debugDir string) ([]int64, error) {
	entries, err := os.ReadDir(debugDir)
	if err != nil {
		return nil, fmt.Errorf("debuglog: read debug dir %s: %w", debugDir, err)
	}
	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, ok := parseSessionFilename(e.Name())
		if !ok {
			continue
		}
		if !seen[info.sessionID] {
			seen[info.sessionID] = true
			ids = append(ids, info.sessionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SelectSession returns requested if non-nil, otherwise the latest
// (highest numeric) session id present in debugDir.
func SelectSession(debugDir string, requested *int64) (int64, error) {
	if requested != nil {
		return *requested, nil
	}
	ids, err := ListSessions(debugDir)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("debuglog: no session files found in %s", debugDir)
	}
	return ids[len(ids)-1], nil
}

// LoadSessionRecords reads every compilation_result/test_result record
// belonging to sessionID out of debugDir's session files. Lines that fail
// to parse as JSON, or whose "type" is not one of the two recognized
// kinds, are skipped silently per the debug-log format contract.
func LoadSessionRecords(debugDir string, sessionID int64) ([]Record, error) {
	entries, err := os.ReadDir(debugDir)
	if err != nil {
		return nil, fmt.Errorf("debuglog: read debug dir %s: %w", debugDir, err)
	}

	var records []Record
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, ok := parseSessionFilename(e.Name())
		if !ok || info.sessionID != sessionID {
			continue
		}
		fileRecords, err := loadRecordsFromFile(filepath.Join(debugDir, e.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

func loadRecordsFromFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("debuglog: open %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue // malformed lines are skipped silently
		}
		if r.Kind() == "" {
			continue
		}
		r.Raw = append(json.RawMessage(nil), line...)
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("debuglog: scan %s: %w", path, err)
	}
	return records, nil
}
