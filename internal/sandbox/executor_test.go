package sandbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralgauge/centralgauge/internal/container"
	"github.com/centralgauge/centralgauge/internal/outcome"
)

type fakeToolServer struct {
	startErr error
	stopped  bool
}

func (f *fakeToolServer) Start(ctx context.Context, port int, workspaceMapping string) error {
	return f.startErr
}

func (f *fakeToolServer) Stop() { f.stopped = true }

type fakeProvider struct {
	available   bool
	pruneErr    error
	createErr   error
	container   *fakeContainer
}

func (p *fakeProvider) Available(ctx context.Context) bool { return p.available }

func (p *fakeProvider) Create(ctx context.Context, spec container.Spec) (container.Container, error) {
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.container, nil
}

func (p *fakeProvider) PruneStale(ctx context.Context, namePrefix string) error { return p.pruneErr }

type fakeContainer struct {
	startErr   error
	exitCode   int
	waitErr    error
	waitBlocks bool
	stdout     string
	stderr     string
	destroyed  bool
}

func (c *fakeContainer) Start(ctx context.Context) error { return c.startErr }

func (c *fakeContainer) Wait(ctx context.Context) (int, error) {
	if c.waitBlocks {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return c.exitCode, c.waitErr
}

func (c *fakeContainer) Stdout() io.Reader {
	return strings.NewReader(c.stdout)
}

func (c *fakeContainer) Stderr() io.Reader {
	return strings.NewReader(c.stderr)
}

func (c *fakeContainer) Destroy(ctx context.Context) error {
	c.destroyed = true
	return nil
}

func TestExecuteToolServerStartFailureShortCircuits(t *testing.T) {
	provider := &fakeProvider{available: true}
	ts := &fakeToolServer{startErr: errors.New("boom")}
	exec := NewExecutorWithToolServer(provider, ts)

	analysis, err := exec.Execute(context.Background(), ExecuteOptions{
		TaskDir: t.TempDir(), Timeout: time.Second,
	})

	require.Error(t, err)
	assert.False(t, analysis.Success)
	assert.Equal(t, outcome.PhaseContainerStartup, analysis.FailurePhase)
	assert.True(t, ts.stopped)
}

func TestExecutePlatformUnavailable(t *testing.T) {
	provider := &fakeProvider{available: false}
	ts := &fakeToolServer{}
	exec := NewExecutorWithToolServer(provider, ts)

	analysis, err := exec.Execute(context.Background(), ExecuteOptions{
		TaskDir: t.TempDir(), Timeout: time.Second,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, container.ErrNoPlatform))
	assert.Equal(t, outcome.PhaseContainerStartup, analysis.FailurePhase)
	assert.True(t, ts.stopped, "tool server must be stopped on every exit path")
}

func TestExecuteSuccessAnalyzesOutput(t *testing.T) {
	fc := &fakeContainer{exitCode: 0, stdout: "Compile: Success\nResult: Pass\n"}
	provider := &fakeProvider{available: true, container: fc}
	ts := &fakeToolServer{}
	exec := NewExecutorWithToolServer(provider, ts)

	analysis, err := exec.Execute(context.Background(), ExecuteOptions{
		TaskDir:                t.TempDir(),
		Prompt:                 "do the task",
		Image:                  "centralgauge/al-agent:latest",
		ContainerWorkspacePath: `C:\workspace`,
		Timeout:                5 * time.Second,
		ExecutionID:            "exec-1",
	})

	require.NoError(t, err)
	assert.True(t, analysis.Success)
	assert.True(t, fc.destroyed)
	assert.True(t, ts.stopped)
}

func TestExecuteTimeoutClassifiesTimeoutPhase(t *testing.T) {
	fc := &fakeContainer{waitBlocks: true}
	provider := &fakeProvider{available: true, container: fc}
	ts := &fakeToolServer{}
	exec := NewExecutorWithToolServer(provider, ts)

	analysis, err := exec.Execute(context.Background(), ExecuteOptions{
		TaskDir: t.TempDir(), Timeout: 20 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.False(t, analysis.Success)
	assert.Equal(t, outcome.PhaseTimeout, analysis.FailurePhase)
	assert.Equal(t, outcome.TerminationTimeout, analysis.TerminationReason)
	assert.True(t, fc.destroyed)
}
