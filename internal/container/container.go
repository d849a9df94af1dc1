// Package container defines the collaborator boundary between the sandbox
// executor and whatever concretely starts an OS-level container. No
// production driver ships from this package; a caller wires in a concrete
// ContainerProvider (Windows-container, Docker, or a test fake).
package container

import (
	"context"
	"errors"
	"io"
)

// ErrNoPlatform is returned by a ContainerProvider when the host cannot run
// the requested container mode (e.g. the Windows-container runtime is
// unavailable).
var ErrNoPlatform = errors.New("container platform unavailable")

// Spec describes the container a ContainerProvider should create.
type Spec struct {
	// Name uniquely identifies this container; callers derive it from the
	// execution id so stale containers from interrupted runs are detectable.
	Name string

	// Image is the configured sandbox image (AgentConfig.Sandbox.Image).
	Image string

	// WorkspaceHostPath is the per-execution task directory bind-mounted
	// into the container.
	WorkspaceHostPath string

	// WorkspaceContainerPath is the in-container mount point, e.g. `C:\workspace`.
	WorkspaceContainerPath string

	// Env is the full set of environment variables forwarded into the
	// container (model API key, prompt file path, max turns, timeout,
	// tool-server URL, language-runtime path quirks).
	Env map[string]string
}

// Container is a single running (or exited) container instance.
type Container interface {
	// Start launches the entrypoint.
	Start(ctx context.Context) error

	// Wait blocks until the container's entrypoint exits, returning its
	// exit code. It must respect ctx cancellation/timeout.
	Wait(ctx context.Context) (exitCode int, err error)

	// Stdout and Stderr stream the entrypoint's standard streams. They may
	// be read concurrently with Wait.
	Stdout() io.Reader
	Stderr() io.Reader

	// Destroy tears the container down. It must be safe to call more than
	// once and safe to call even if Start was never called.
	Destroy(ctx context.Context) error
}

// Provider creates and manages containers for one sandbox run.
type Provider interface {
	// Available reports whether this host can run the configured sandbox
	// mode right now (e.g. the Windows-container daemon is reachable).
	Available(ctx context.Context) bool

	// Create allocates (but does not start) a container matching spec.
	Create(ctx context.Context, spec Spec) (Container, error)

	// PruneStale best-effort removes leftover containers from prior
	// interrupted runs whose name carries namePrefix.
	PruneStale(ctx context.Context, namePrefix string) error
}
