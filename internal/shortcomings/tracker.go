// Package shortcomings implements the Shortcomings Tracker: a per-model
// JSON file of recurring AL concepts the agent under test consistently
// gets wrong, deduplicated by concept and kept crash-safe by flushing to
// disk on every mutation.
package shortcomings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

var reservedChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeModelName replaces filesystem-reserved characters in a model
// name with "_" so it is safe to use as a file name.
func SanitizeModelName(model string) string {
	return reservedChars.ReplaceAllString(model, "_")
}

// Shortcoming is one recurring AL concept the model gets wrong.
type Shortcoming struct {
	Concept          string    `json:"concept"`
	ALConcept        string    `json:"alConcept"`
	Description      string    `json:"description"`
	CorrectPattern   string    `json:"correctPattern"`
	IncorrectPattern string    `json:"incorrectPattern"`
	ErrorCodes       []string  `json:"errorCodes"`
	AffectedTasks    []string  `json:"affectedTasks"`
	FirstSeen        time.Time `json:"firstSeen"`
	Occurrences      int       `json:"occurrences"`
}

// ModelFile is the on-disk shape of one model's shortcomings file.
type ModelFile struct {
	Model        string        `json:"model"`
	LastUpdated  time.Time     `json:"lastUpdated"`
	Shortcomings []Shortcoming `json:"shortcomings"`
}

// AddInput is the information the orchestrator has available when it
// wants to record a shortcoming.
type AddInput struct {
	AffectedTask string
	ErrorCode    string // optional
}

type cacheEntry struct {
	file  *ModelFile
	dirty bool
}

// Tracker holds one in-memory cache of per-model shortcoming files,
// loading lazily and flushing only dirty models on Save.
type Tracker struct {
	dir string

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// NewTracker constructs a Tracker rooted at shortcomingsDir.
func NewTracker(shortcomingsDir string) *Tracker {
	return &Tracker{
		dir:   shortcomingsDir,
		cache: make(map[string]*cacheEntry),
	}
}

// Add merges one shortcoming observation into model's file: if an entry
// with the same ALConcept exists, affectedTask/errorCode are folded into
// it (occurrences only increments when the task id is new); otherwise a
// new entry is created. lastUpdated is refreshed either way.
func (t *Tracker) Add(model string, s Shortcoming, input AddInput) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, err := t.loadLocked(model)
	if err != nil {
		return err
	}

	found := false
	for i := range entry.file.Shortcomings {
		existing := &entry.file.Shortcomings[i]
		if existing.ALConcept != s.ALConcept {
			continue
		}
		found = true
		mergeInto(existing, input)
		break
	}

	if !found {
		seeded := s
		seeded.FirstSeen = time.Now()
		seeded.Occurrences = 1
		seeded.AffectedTasks = nil
		if input.AffectedTask != "" {
			seeded.AffectedTasks = []string{input.AffectedTask}
		}
		seeded.ErrorCodes = nil
		if input.ErrorCode != "" {
			seeded.ErrorCodes = []string{input.ErrorCode}
		}
		entry.file.Shortcomings = append(entry.file.Shortcomings, seeded)
	}

	entry.file.LastUpdated = time.Now()
	entry.dirty = true
	return t.saveModelLocked(model, entry)
}

func mergeInto(existing *Shortcoming, input AddInput) {
	if input.AffectedTask != "" && !containsString(existing.AffectedTasks, input.AffectedTask) {
		existing.AffectedTasks = append(existing.AffectedTasks, input.AffectedTask)
		existing.Occurrences++
	}
	if input.ErrorCode != "" && !containsString(existing.ErrorCodes, input.ErrorCode) {
		existing.ErrorCodes = append(existing.ErrorCodes, input.ErrorCode)
	}
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// Load returns model's current shortcomings, loading from disk on first
// access and caching thereafter.
func (t *Tracker) Load(model string) (*ModelFile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, err := t.loadLocked(model)
	if err != nil {
		return nil, err
	}
	return entry.file, nil
}

// loadLocked must be called with t.mu held.
func (t *Tracker) loadLocked(model string) (*cacheEntry, error) {
	if entry, ok := t.cache[model]; ok {
		return entry, nil
	}

	path := t.modelPath(model)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var file ModelFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("shortcomings: parse %s: %w", path, err)
		}
		entry := &cacheEntry{file: &file}
		t.cache[model] = entry
		return entry, nil
	case os.IsNotExist(err):
		entry := &cacheEntry{file: &ModelFile{Model: model, Shortcomings: []Shortcoming{}}}
		t.cache[model] = entry
		return entry, nil
	default:
		return nil, fmt.Errorf("shortcomings: read %s: %w", path, err)
	}
}

// Save flushes every dirty model's file to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for model, entry := range t.cache {
		if !entry.dirty {
			continue
		}
		if err := t.saveModelLocked(model, entry); err != nil {
			return err
		}
	}
	return nil
}

// SaveModel flushes one model's file immediately. Add already flushes the
// model it changes on its own.
func (t *Tracker) SaveModel(model string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, err := t.loadLocked(model)
	if err != nil {
		return err
	}
	return t.saveModelLocked(model, entry)
}

// saveModelLocked must be called with t.mu held.
func (t *Tracker) saveModelLocked(model string, entry *cacheEntry) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("shortcomings: create dir %s: %w", t.dir, err)
	}
	data, err := json.MarshalIndent(entry.file, "", "  ")
	if err != nil {
		return fmt.Errorf("shortcomings: marshal %s: %w", model, err)
	}
	path := t.modelPath(model)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("shortcomings: write %s: %w", path, err)
	}
	entry.dirty = false
	return nil
}

func (t *Tracker) modelPath(model string) string {
	return filepath.Join(t.dir, SanitizeModelName(model)+".json")
}
