package agentexec

import (
	"time"

	"github.com/centralgauge/centralgauge/internal/agentconfig"
	"github.com/centralgauge/centralgauge/internal/cost"
	"github.com/centralgauge/centralgauge/internal/task"
)

// ExecutionContext carries all dependencies and state needed for one agent
// execution. Built by the caller (the orchestrator or a CLI command) and
// handed to Execute; Execute never constructs its own dependencies.
type ExecutionContext struct {
	// Identity
	TaskID      string
	AgentID     string
	ExecutionID string

	// Task and resolved agent behavior.
	Manifest *task.Manifest
	Config   *agentconfig.Config

	// WorkDir is the per-execution workspace directory the agent writes AL
	// source into. For sandboxed executions this is the host side of the
	// bind mount; for local executions it is used directly.
	WorkDir string

	// Driver performs the actual turn-by-turn exchange with the coding
	// agent SDK (or, in sandboxed mode, is backed by the sandbox executor).
	Driver Driver

	// Cost is the tracker the engine reports token usage, turns, and tool
	// calls into. Callers own its lifetime so a cost report can be read
	// after Execute returns even if Execute itself never returns an error.
	Cost *cost.Tracker

	// StartedAt records when the execution began, used to stamp the result.
	StartedAt time.Time
}

// maxTurnsOf resolves the turn budget, defaulting to a conservative bound
// when the agent config leaves MaxTurns unset.
func (c *ExecutionContext) maxTurnsOf() int {
	if c.Config.MaxTurns > 0 {
		return c.Config.MaxTurns
	}
	return 20
}
