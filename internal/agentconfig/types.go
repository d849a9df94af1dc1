// Package agentconfig loads and resolves AgentConfig YAML: the fully
// specified behavior of one agent "variant" used as a leaderboard row.
package agentconfig

// PromptTemplate selects which prompt-construction strategy the agent
// execution engine uses.
type PromptTemplate string

const (
	PromptTemplateUniversal PromptTemplate = "universal"
	PromptTemplateLegacy    PromptTemplate = "legacy"
)

// ToolNaming selects the tool-name vocabulary the agent is told about.
type ToolNaming string

const (
	ToolNamingGeneric ToolNaming = "generic"
	ToolNamingMCP     ToolNaming = "mcp"
)

// SystemPrompt is either a verbatim string or a reference to a built-in
// preset with an optional append suffix.
type SystemPrompt struct {
	Verbatim string `yaml:"verbatim,omitempty"`
	Preset   string `yaml:"preset,omitempty"` // e.g. "claude_code"
	Append   string `yaml:"append,omitempty"`
}

// IsZero reports whether no system prompt was configured at all.
func (p SystemPrompt) IsZero() bool {
	return p.Verbatim == "" && p.Preset == ""
}

// MCPServer is a declared out-of-process tool-server the agent may use.
type MCPServer struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Limits bounds one execution's resource consumption.
type Limits struct {
	MaxCompileAttempts int `yaml:"maxCompileAttempts,omitempty"`
	TimeoutMs          int `yaml:"timeoutMs,omitempty"`
}

// Sandbox controls whether the execution runs inside an isolated container.
type Sandbox struct {
	Enabled bool   `yaml:"enabled"`
	Image   string `yaml:"image,omitempty"`
}

// Config is the fully specified behavior of one agent variant. Fields use
// pointers where "unset" must be distinguishable from the zero value, since
// inheritance resolution needs that distinction to decide whether a child
// overrides a parent.
type Config struct {
	ID             string           `yaml:"id"`
	Name           string           `yaml:"name"`
	Model          string           `yaml:"model"`
	MaxTurns       int              `yaml:"maxTurns,omitempty"`
	MaxTotalTokens *int             `yaml:"maxTotalTokens,omitempty"`
	AllowedTools   []string         `yaml:"allowedTools,omitempty"`
	MCPServers     map[string]MCPServer `yaml:"mcpServers,omitempty"`
	SystemPrompt   *SystemPrompt    `yaml:"systemPrompt,omitempty"`
	PromptTemplate PromptTemplate   `yaml:"promptTemplate,omitempty"`
	ToolNaming     ToolNaming       `yaml:"toolNaming,omitempty"`
	Limits         *Limits          `yaml:"limits,omitempty"`
	Sandbox        *Sandbox         `yaml:"sandbox,omitempty"`
	Extends        string           `yaml:"extends,omitempty"`
	Tags           []string         `yaml:"tags,omitempty"`
}

// EffectivePromptTemplate returns the configured template or the default.
func (c *Config) EffectivePromptTemplate() PromptTemplate {
	if c.PromptTemplate == "" {
		return PromptTemplateUniversal
	}
	return c.PromptTemplate
}

// EffectiveToolNaming returns the configured tool-naming style or the default.
func (c *Config) EffectiveToolNaming() ToolNaming {
	if c.ToolNaming == "" {
		return ToolNamingGeneric
	}
	return c.ToolNaming
}

// SandboxEnabled reports whether this config requests sandbox execution.
func (c *Config) SandboxEnabled() bool {
	return c.Sandbox != nil && c.Sandbox.Enabled
}
