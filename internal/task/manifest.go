// Package task loads the TaskManifest that describes one benchmark task.
// Dataset file CRUD (listing, creating, editing tasks) is excluded per the
// harness's scope; only the read-one-file operation that every other
// component needs is implemented here.
package task

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Difficulty is the coarse bucket derived from a task id's embedded letter.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var idPattern = regexp.MustCompile(`^CG-AL-([EMH])\d+$`)

// Expected describes what a correct solution must satisfy.
type Expected struct {
	Compile bool   `yaml:"compile"`
	TestApp string `yaml:"testApp,omitempty"`
}

// Manifest is the immutable, once-loaded description of one task.
type Manifest struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Expected    Expected `yaml:"expected"`
}

// Load reads and parses a task manifest YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load task manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse task manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("load task manifest %s: missing id", path)
	}
	return &m, nil
}

// Difficulty derives the difficulty bucket from the id's embedded letter.
// Returns "" if the id does not match the expected CG-AL-<E|M|H><n> pattern.
func (m *Manifest) Difficulty() Difficulty {
	return DifficultyOf(m.ID)
}

// DifficultyOf derives a difficulty bucket from a bare task id, usable
// without a loaded Manifest (e.g. by the debug-log parser).
func DifficultyOf(taskID string) Difficulty {
	match := idPattern.FindStringSubmatch(taskID)
	if match == nil {
		return ""
	}
	switch match[1] {
	case "E":
		return DifficultyEasy
	case "M":
		return DifficultyMedium
	case "H":
		return DifficultyHard
	default:
		return ""
	}
}

// RequiresTests reports whether the task expects a test-app verification
// pass in addition to a successful compile.
func (m *Manifest) RequiresTests() bool {
	return m.Expected.TestApp != ""
}
