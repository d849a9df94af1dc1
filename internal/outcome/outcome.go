// Package outcome defines the structured failure/termination vocabulary
// shared by the agent execution engine, the sandbox executor's output
// analyzer, and the verification engine — so all three report compile
// errors, test failures, and termination reasons in one common shape.
package outcome

// TerminationReason is why an agent execution's message loop stopped.
type TerminationReason string

const (
	TerminationSuccess            TerminationReason = "success"
	TerminationMaxTurns           TerminationReason = "max_turns"
	TerminationMaxTokens          TerminationReason = "max_tokens"
	TerminationMaxCompileAttempts TerminationReason = "max_compile_attempts"
	TerminationTestFailure        TerminationReason = "test_failure"
	TerminationTimeout            TerminationReason = "timeout"
	TerminationError              TerminationReason = "error"
)

// Phase locates where in the pipeline a non-success outcome occurred.
type Phase string

const (
	PhaseContainerStartup Phase = "container_startup"
	PhaseMCPConnection    Phase = "mcp_connection"
	PhaseAgentExecution   Phase = "agent_execution"
	PhaseCompilation      Phase = "compilation"
	PhaseTestExecution    Phase = "test_execution"
	PhaseTimeout          Phase = "timeout"
	PhaseUnknown          Phase = "unknown"
)

// CompilationError is one AL compiler diagnostic.
type CompilationError struct {
	File    string
	Line    int
	Column  int
	Code    string
	Message string
}

// CompilationDetail aggregates every compile error found in one output.
type CompilationDetail struct {
	Errors []CompilationError
}

// TestFailureDetail is one named failing test.
type TestFailureDetail struct {
	Name    string
	Message string
}

// TestsDetail aggregates test statistics and any named failures.
type TestsDetail struct {
	Passed   int
	Total    int
	Failures []TestFailureDetail
}

// TimeoutDetail records how long an execution ran before being cut off.
type TimeoutDetail struct {
	TimeoutMs int
}

// ContainerDetail records the container identity involved in a failure.
type ContainerDetail struct {
	Name     string
	ExitCode int
}

// DetailedFailureReason is the structured non-success outcome attached to an
// AgentExecutionResult whenever success is false.
type DetailedFailureReason struct {
	TerminationReason TerminationReason
	Phase             Phase
	Summary           string
	Compilation       *CompilationDetail
	Tests             *TestsDetail
	Timeout           *TimeoutDetail
	Container         *ContainerDetail
	FailedAt          string // RFC3339 timestamp; string to stay storage-format agnostic
}
