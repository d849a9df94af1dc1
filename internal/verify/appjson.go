// Package verify implements the Verification Engine: compiling an AL
// project, staging its dependencies, and running its tests against a
// provisioned Business Central container.
package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var taskIDPattern = regexp.MustCompile(`^(CG-AL-[A-Z]\d+)`)

// Fixed Test-Toolkit dependency ids injected into every verify project, per
// the combined test app.json's required dependency set.
const (
	libraryAssertID     = "dd0be2ea-f733-4d65-bb34-a28f4624fb14"
	anyID               = "e7320ebb-08b3-4406-b1ec-b4927d3e280b"
	testsTestLibraryID  = "5d86850b-0d76-4eca-bd7b-951ad998e997"
)

var testToolkitDependencies = []Dependency{
	{ID: libraryAssertID, Name: "Library Assert", Publisher: "Microsoft", Version: "27.0.0.0"},
	{ID: anyID, Name: "Any", Publisher: "Microsoft", Version: "27.0.0.0"},
	{ID: testsTestLibraryID, Name: "Tests-TestLibraries", Publisher: "Microsoft", Version: "27.0.0.0"},
}

// testCodeunitIDRange is extended into every verify project's idRanges so
// generated test codeunits have room to live without colliding with the
// project's own object ids.
var testCodeunitIDRange = IDRange{From: 80000, To: 89999}

// Dependency is one app.json dependency entry.
type Dependency struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
	Version   string `json:"version"`
}

// IDRange is one app.json idRanges entry.
type IDRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// AppJSON is the subset of a Business Central app.json manifest this
// package reads and rewrites.
type AppJSON struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Publisher    string       `json:"publisher"`
	Version      string       `json:"version"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	IDRanges     []IDRange    `json:"idRanges,omitempty"`
}

// ParseTaskID extracts the task id embedded in a test file name, e.g.
// "CG-AL-E008.Test.al" -> "CG-AL-E008".
func ParseTaskID(testFileName string) (string, error) {
	m := taskIDPattern.FindStringSubmatch(filepath.Base(testFileName))
	if m == nil {
		return "", fmt.Errorf("verify: %q does not contain a task id", testFileName)
	}
	return m[1], nil
}

// LoadAppJSON reads and parses one app.json file.
func LoadAppJSON(path string) (*AppJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("verify: read %s: %w", path, err)
	}
	var a AppJSON
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("verify: parse %s: %w", path, err)
	}
	return &a, nil
}

// ResolvePrerequisites walks tests/al/dependencies/<taskID>/app.json,
// following dependencies[].id to other prerequisite apps under depsDir by
// id match, and returns their directories in topological dependency-first
// order without repetition.
func ResolvePrerequisites(depsDir, taskID string) ([]string, error) {
	byID, dirByID, err := indexDependencyApps(depsDir)
	if err != nil {
		return nil, err
	}

	rootPath := filepath.Join(depsDir, taskID, "app.json")
	root, err := LoadAppJSON(rootPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var order []string
	visited := make(map[string]bool)
	var visit func(app *AppJSON) error
	visit = func(app *AppJSON) error {
		for _, dep := range app.Dependencies {
			if visited[dep.ID] {
				continue
			}
			depApp, ok := byID[dep.ID]
			if !ok {
				continue // dependency lives outside depsDir (e.g. the Test Toolkit)
			}
			visited[dep.ID] = true
			if err := visit(depApp); err != nil {
				return err
			}
			order = append(order, dirByID[dep.ID])
		}
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// indexDependencyApps loads every app.json directly under depsDir's
// immediate subdirectories, indexed by the app's own id.
func indexDependencyApps(depsDir string) (byID map[string]*AppJSON, dirByID map[string]string, err error) {
	entries, err := os.ReadDir(depsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("verify: read dependencies dir %s: %w", depsDir, err)
	}
	byID = make(map[string]*AppJSON)
	dirByID = make(map[string]string)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(depsDir, e.Name())
		app, err := LoadAppJSON(filepath.Join(dir, "app.json"))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, nil, err
		}
		byID[app.ID] = app
		dirByID[app.ID] = dir
	}
	return byID, dirByID, nil
}

// MergeForVerify returns project with the three fixed Test-Toolkit
// dependencies injected (if absent), lastPrereqID added as a direct
// dependency (if non-empty and absent — BC resolves the rest of that
// prereq's own chain transitively), and idRanges extended to cover the
// reserved test-codeunit range. The merge is idempotent: applying it twice
// produces the same result as once.
func MergeForVerify(project AppJSON, lastPrereqID string) AppJSON {
	merged := project
	merged.Dependencies = append([]Dependency(nil), project.Dependencies...)
	merged.IDRanges = append([]IDRange(nil), project.IDRanges...)

	for _, dep := range testToolkitDependencies {
		if !hasDependency(merged.Dependencies, dep.ID) {
			merged.Dependencies = append(merged.Dependencies, dep)
		}
	}

	if lastPrereqID != "" && !hasDependency(merged.Dependencies, lastPrereqID) {
		merged.Dependencies = append(merged.Dependencies, Dependency{ID: lastPrereqID})
	}

	if !coversRange(merged.IDRanges, testCodeunitIDRange) {
		merged.IDRanges = append(merged.IDRanges, testCodeunitIDRange)
	}

	return merged
}

func hasDependency(deps []Dependency, id string) bool {
	for _, d := range deps {
		if d.ID == id {
			return true
		}
	}
	return false
}

func findDependency(deps []Dependency, id string) (Dependency, bool) {
	for _, d := range deps {
		if d.ID == id {
			return d, true
		}
	}
	return Dependency{}, false
}

func coversRange(ranges []IDRange, want IDRange) bool {
	for _, r := range ranges {
		if r.From <= want.From && r.To >= want.To {
			return true
		}
	}
	return false
}
