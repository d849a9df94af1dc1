package agentconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader holds the raw (unresolved) configs discovered so far, keyed by id,
// so that `extends` references can be resolved across files loaded in any
// order.
type Loader struct {
	raw map[string]*Config
}

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{raw: make(map[string]*Config)}
}

// LoadFile reads one agent YAML file and registers it by its declared id.
// Apart from requiring an id, it does not validate required fields — a
// config loaded here may be a partial parent completed by a child's
// `extends`.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidYAML, path, err)
	}
	if cfg.ID == "" {
		return fmt.Errorf("%s: %w: id", path, ErrMissingRequiredField)
	}
	l.raw[cfg.ID] = &cfg
	return nil
}

// Resolve walks the `extends` chain for id, merging from root ancestor down
// to the leaf (last writer wins for scalars; nested objects merge;
// `allowedTools` replaces rather than extends), then validates the result.
func (l *Loader) Resolve(id string) (*Config, error) {
	resolved, err := l.resolveChain(id, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	if err := validate(resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (l *Loader) resolveChain(id string, visited map[string]bool) (*Config, error) {
	if visited[id] {
		return nil, fmt.Errorf("%w: %s", ErrCycleDetected, id)
	}
	visited[id] = true

	raw, ok := l.raw[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	if raw.Extends == "" {
		leaf := *raw
		return &leaf, nil
	}

	parent, err := l.resolveChain(raw.Extends, visited)
	if err != nil {
		return nil, err
	}
	return mergeConfig(parent, raw)
}

func validate(c *Config) error {
	if c.ID == "" {
		return newValidationError(c.ID, "id", ErrMissingRequiredField)
	}
	if c.Name == "" {
		return newValidationError(c.ID, "name", ErrMissingRequiredField)
	}
	if c.Model == "" {
		return newValidationError(c.ID, "model", ErrMissingRequiredField)
	}
	if c.MaxTurns <= 0 {
		return newValidationError(c.ID, "maxTurns", fmt.Errorf("must be > 0, got %d", c.MaxTurns))
	}
	if len(c.AllowedTools) == 0 {
		return newValidationError(c.ID, "allowedTools", ErrMissingRequiredField)
	}
	return nil
}
