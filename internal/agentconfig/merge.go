package agentconfig

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeConfig applies child on top of parent: scalars use last-writer-wins,
// nested objects (limits, sandbox, systemPrompt, mcpServers) merge field by
// field / key by key, and `allowedTools` replaces outright rather than
// extending — this asymmetry is intentional (see the open-question note in
// the design ledger) and must be preserved.
func mergeConfig(parent, child *Config) (*Config, error) {
	merged := *parent

	// mergo.WithOverride makes non-zero fields on child win over merged;
	// maps are merged key-by-key regardless, and slices are replaced
	// wholesale when the child sets one — exactly the allowedTools
	// replace-not-merge semantics required here.
	if err := mergo.Merge(&merged, *child, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge agent config %q into %q: %w", child.ID, parent.ID, err)
	}

	// extends is no longer meaningful once the chain is flattened.
	merged.Extends = ""

	return &merged, nil
}
