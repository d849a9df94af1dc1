package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/centralgauge/centralgauge/internal/container"
	"github.com/centralgauge/centralgauge/internal/outcome"
)

const promptFileName = ".agent-prompt.txt"

// ExecuteOptions describes one sandboxed execution request.
type ExecuteOptions struct {
	// ExecutionID uniquely names this run; used to derive the container name
	// and to detect/prune leftovers from interrupted prior runs.
	ExecutionID string

	// TaskDir is the isolated host-side task directory, already prepared the
	// same way the local (non-sandboxed) executor prepares it.
	TaskDir string

	// Prompt is the fully assembled prompt text, written to
	// <TaskDir>/.agent-prompt.txt rather than passed as an environment
	// variable or argument (avoids length limits and quoting issues).
	Prompt string

	Image                  string
	ContainerWorkspacePath string // e.g. `C:\workspace`

	ToolServerBinaryPath string
	ToolServerPort       int

	ModelAPIKey string
	MaxTurns    int
	Timeout     time.Duration
	ExtraEnv    map[string]string
}

// ToolServer is the subset of *ToolServerManager the executor depends on,
// extracted so tests can substitute a fake instead of spawning a real
// process.
type ToolServer interface {
	Start(ctx context.Context, port int, workspaceMapping string) error
	Stop()
}

// Executor runs the sandboxed-execution protocol of the harness: one
// tool-server process plus one container per task, streamed and
// timeout-enforced, always torn down on every exit path.
type Executor struct {
	provider   container.Provider
	toolServer ToolServer
	logger     *slog.Logger
}

// NewExecutor constructs an Executor. provider is the concrete
// container.Provider to drive (a real Windows-container provider in
// production, a test fake in tests); toolServerBinaryPath is the path to the
// tool-server executable this executor spawns per task.
func NewExecutor(provider container.Provider, toolServerBinaryPath string) *Executor {
	return NewExecutorWithToolServer(provider, NewToolServerManager(toolServerBinaryPath))
}

// NewExecutorWithToolServer constructs an Executor against an already-built
// ToolServer collaborator (production code uses NewExecutor; tests inject a
// fake here instead of spawning a real binary).
func NewExecutorWithToolServer(provider container.Provider, toolServer ToolServer) *Executor {
	return &Executor{
		provider:   provider,
		toolServer: toolServer,
		logger:     slog.Default().With("component", "sandbox_executor"),
	}
}

// Execute runs the nine-step sandboxed protocol of the harness and returns
// the analyzed outcome. It never returns a transport-level error once the
// container has actually started: every post-start failure mode is encoded
// in the returned OutputAnalysis. An error is returned only for conditions
// that prevent any attempt at all (unwritable prompt file, tool server never
// came up, platform unavailable) — those are also mirrored into the
// OutputAnalysis so callers have one place to look.
func (e *Executor) Execute(ctx context.Context, opts ExecuteOptions) (OutputAnalysis, error) {
	workspaceMapping := fmt.Sprintf("%s=%s", opts.ContainerWorkspacePath, opts.TaskDir)

	if err := e.toolServer.Start(ctx, opts.ToolServerPort, workspaceMapping); err != nil {
		e.toolServer.Stop()
		analysis := failureAnalysis(outcome.PhaseContainerStartup, outcome.TerminationError,
			fmt.Sprintf("tool server did not become healthy: %v", err))
		return analysis, err
	}
	defer e.toolServer.Stop()

	if !e.provider.Available(ctx) {
		err := fmt.Errorf("sandbox executor: %w", container.ErrNoPlatform)
		return failureAnalysis(outcome.PhaseContainerStartup, outcome.TerminationError, err.Error()), err
	}

	if err := e.provider.PruneStale(ctx, "centralgauge-"); err != nil {
		e.logger.Warn("prune stale containers failed, continuing", "error", err)
	}

	promptPath := filepath.Join(opts.TaskDir, promptFileName)
	if err := os.WriteFile(promptPath, []byte(opts.Prompt), 0o600); err != nil {
		err = fmt.Errorf("sandbox executor: write prompt file: %w", err)
		return failureAnalysis(outcome.PhaseContainerStartup, outcome.TerminationError, err.Error()), err
	}

	spec := container.Spec{
		Name:                   "centralgauge-" + opts.ExecutionID,
		Image:                  opts.Image,
		WorkspaceHostPath:      opts.TaskDir,
		WorkspaceContainerPath: opts.ContainerWorkspacePath,
		Env:                    e.buildEnv(opts),
	}

	c, err := e.provider.Create(ctx, spec)
	if err != nil {
		err = fmt.Errorf("sandbox executor: create container: %w", err)
		return failureAnalysis(outcome.PhaseContainerStartup, outcome.TerminationError, err.Error()), err
	}
	defer func() {
		destroyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if derr := c.Destroy(destroyCtx); derr != nil {
			e.logger.Warn("destroy container failed", "error", derr, "container", spec.Name)
		}
	}()

	if err := c.Start(ctx); err != nil {
		err = fmt.Errorf("sandbox executor: start container: %w", err)
		return failureAnalysis(outcome.PhaseContainerStartup, outcome.TerminationError, err.Error()), err
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var combined bytes.Buffer
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	go streamInto(&wg, &mu, &combined, c.Stdout())
	go streamInto(&wg, &mu, &combined, c.Stderr())

	_, waitErr := c.Wait(runCtx)
	wg.Wait()

	timedOut := runCtx.Err() == context.DeadlineExceeded
	if waitErr != nil && !timedOut {
		e.logger.Warn("container wait returned an error", "error", waitErr, "container", spec.Name)
	}

	return Analyze(combined.String(), timedOut), nil
}

func streamInto(wg *sync.WaitGroup, mu *sync.Mutex, dst *bytes.Buffer, src io.Reader) {
	defer wg.Done()
	if src == nil {
		return
	}
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			mu.Lock()
			dst.Write(buf[:n])
			mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (e *Executor) buildEnv(opts ExecuteOptions) map[string]string {
	env := map[string]string{
		"CENTRALGAUGE_MODEL_API_KEY": opts.ModelAPIKey,
		"CENTRALGAUGE_PROMPT_PATH":   filepath.Join(opts.ContainerWorkspacePath, promptFileName),
		"CENTRALGAUGE_MAX_TURNS":     fmt.Sprintf("%d", opts.MaxTurns),
		"CENTRALGAUGE_TIMEOUT_MS":    fmt.Sprintf("%d", opts.Timeout.Milliseconds()),
		"CENTRALGAUGE_TOOL_SERVER_URL": fmt.Sprintf("http://host.docker.internal:%d", opts.ToolServerPort),
	}
	for k, v := range opts.ExtraEnv {
		env[k] = v
	}
	return env
}

func failureAnalysis(phase outcome.Phase, reason outcome.TerminationReason, summary string) OutputAnalysis {
	return OutputAnalysis{
		Success:           false,
		FailurePhase:      phase,
		TerminationReason: reason,
		Summary:           summary,
	}
}
