package agentexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/centralgauge/centralgauge/internal/outcome"
	"github.com/centralgauge/centralgauge/internal/sandbox"
)

// Driver runs one turn-by-turn exchange with the coding agent SDK (or, for
// sandboxed executions, proxies to the sandbox executor) and streams back
// the tagged-union messages defined in messages.go. Run must close the
// channel once the terminal result message has been sent or ctx is done.
type Driver interface {
	Run(ctx context.Context, prompt string, maxTurns int) (<-chan Message, error)
}

// toolCallTiming pairs an in-flight tool_use block with when it was issued,
// so the matching tool_result can report an elapsed duration.
type toolCallTiming struct {
	name      string
	issuedAt  time.Time
}

// Execute drives one complete agent execution: builds the prompt, runs the
// message loop against driver, accounts cost turn-by-turn, and classifies
// the terminal outcome. It never returns a non-nil error for an agent
// failure — every failure mode is encoded in the returned result. A prompt
// that fails to build and a driver that fails to start (e.g. process spawn
// failure) end the execution early; both are reported as a TerminationError
// result rather than propagated, so callers never need a second
// failure-handling path.
func Execute(ctx context.Context, execCtx *ExecutionContext) *AgentExecutionResult {
	requiresTests := execCtx.Manifest.RequiresTests()

	prompt, err := BuildPrompt(execCtx.Config, execCtx.Manifest, execCtx.WorkDir)
	if err != nil {
		return failedResult(execCtx, outcome.TerminationError, fmt.Sprintf("build prompt: %v", err))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := execCtx.Driver.Run(ctx, prompt, execCtx.maxTurnsOf())
	if err != nil {
		return failedResult(execCtx, outcome.TerminationError, fmt.Sprintf("start agent driver: %v", err))
	}

	var (
		aggregated    strings.Builder
		turnSummaries []TurnSummary
		currentTools  []string
		pending       = map[string]toolCallTiming{}
		resultSeen    *ResultMessage
		forced        outcome.TerminationReason
		forcedSummary string
	)

loop:
	for msg := range messages {
		switch msg.Kind {
		case KindSystemInit:
			// Logged by the caller if it wants to; the engine does not act
			// on tool-server health here — the sandbox executor already
			// refused to start the driver if the tool server never came up.

		case KindAssistant:
			execCtx.Cost.StartTurn()
			currentTools = nil
			if msg.Assistant != nil {
				execCtx.Cost.RecordTokenUsage(msg.Assistant.InputTokens, msg.Assistant.OutputTokens)
				for _, block := range msg.Assistant.Content {
					switch block.Kind {
					case BlockText:
						aggregated.WriteString(block.Text)
						aggregated.WriteString("\n")
					case BlockToolUse:
						pending[block.ToolUseID] = toolCallTiming{name: block.ToolName, issuedAt: time.Now()}
						currentTools = append(currentTools, block.ToolName)
					}
				}
			}

		case KindUser:
			if msg.User != nil {
				for _, block := range msg.User.Content {
					if block.Kind != BlockToolResult {
						continue
					}
					aggregated.WriteString(block.Text)
					aggregated.WriteString("\n")
					if t, ok := pending[block.ToolUseID]; ok {
						execCtx.Cost.RecordToolCall(t.name, time.Since(t.issuedAt))
						delete(pending, block.ToolUseID)
					}
				}
			}
			execCtx.Cost.EndTurn()
			turnSummaries = append(turnSummaries, TurnSummary{
				Index:     len(turnSummaries),
				ToolCalls: currentTools,
			})

		case KindResult:
			resultSeen = msg.Result
		}

		// Termination checks, run between messages regardless of kind. A
		// success signal already observed in the aggregated output (by
		// DetectSuccess's layered rules) ends the loop first; after it, the
		// token and compile-attempt bounds are checked. The turn bound is
		// not checked here: maxTurns goes to the driver, and its
		// error_max_turns result is classified in buildResult.
		if DetectSuccess(aggregated.String(), requiresTests).Success {
			break loop
		}
		if execCtx.Config.MaxTotalTokens != nil && execCtx.Cost.TotalTokens() >= *execCtx.Config.MaxTotalTokens {
			forced = outcome.TerminationMaxTokens
			forcedSummary = "agent exceeded the configured max total tokens before reporting success"
			cancel()
			break loop
		}
		if execCtx.Config.Limits != nil && execCtx.Config.Limits.MaxCompileAttempts > 0 &&
			execCtx.Cost.CompileAttempts() >= execCtx.Config.Limits.MaxCompileAttempts {
			forced = outcome.TerminationMaxCompileAttempts
			forcedSummary = "agent exceeded the configured max compile attempts before reporting success"
			cancel()
			break loop
		}
	}
	execCtx.Cost.EndTurn()

	output := aggregated.String()
	return buildResult(execCtx, output, requiresTests, resultSeen, turnSummaries, forced, forcedSummary)
}

func buildResult(execCtx *ExecutionContext, output string, requiresTests bool, result *ResultMessage, turns []TurnSummary, forced outcome.TerminationReason, forcedSummary string) *AgentExecutionResult {
	detection := DetectSuccess(output, requiresTests)
	summary := BuildResultSummary(output, requiresTests)

	termination := outcome.TerminationSuccess
	var failureDetails *outcome.DetailedFailureReason

	switch {
	case detection.Success:
		termination = outcome.TerminationSuccess
	case forced != "":
		termination = forced
		failureDetails = &outcome.DetailedFailureReason{
			TerminationReason: termination,
			Phase:             outcome.PhaseAgentExecution,
			Summary:           forcedSummary,
		}
	case result != nil && result.Subtype == ResultErrorMaxTurns:
		termination = outcome.TerminationMaxTurns
		failureDetails = &outcome.DetailedFailureReason{
			TerminationReason: termination,
			Phase:             outcome.PhaseAgentExecution,
			Summary:           "agent exhausted its turn budget before reporting success",
		}
	default:
		analysis := sandbox.Analyze(output, false)
		termination = analysis.TerminationReason
		failureDetails = &outcome.DetailedFailureReason{
			TerminationReason: analysis.TerminationReason,
			Phase:             analysis.FailurePhase,
			Summary:           analysis.Summary,
			Compilation:       analysis.Compilation,
			Tests:             analysis.Tests,
		}
	}

	var testResult *TestResult
	switch {
	case summary.TestsPassed != nil && summary.TestsTotal != nil:
		testResult = &TestResult{PassedTests: *summary.TestsPassed, TotalTests: *summary.TestsTotal}
	case failureDetails != nil && failureDetails.Tests != nil:
		testResult = &TestResult{PassedTests: failureDetails.Tests.Passed, TotalTests: failureDetails.Tests.Total}
	}
	if testResult != nil && failureDetails != nil && failureDetails.Tests != nil {
		for _, f := range failureDetails.Tests.Failures {
			testResult.Failures = append(testResult.Failures, TestFailure{Name: f.Name, Message: f.Message})
		}
	}

	return &AgentExecutionResult{
		TaskID:            execCtx.TaskID,
		AgentID:           execCtx.AgentID,
		ExecutionID:       execCtx.ExecutionID,
		Success:           detection.Success,
		Turns:             turns,
		Metrics:           metricsOf(execCtx),
		TerminationReason: termination,
		Duration:          execCtx.Cost.Duration(),
		ExecutedAt:        execCtx.StartedAt,
		TestResult:        testResult,
		ResultSummary:      &summary,
		FailureDetails:    failureDetails,
	}
}

func failedResult(execCtx *ExecutionContext, reason outcome.TerminationReason, summary string) *AgentExecutionResult {
	return &AgentExecutionResult{
		TaskID:            execCtx.TaskID,
		AgentID:           execCtx.AgentID,
		ExecutionID:       execCtx.ExecutionID,
		Success:           false,
		Metrics:           metricsOf(execCtx),
		TerminationReason: reason,
		Duration:          execCtx.Cost.Duration(),
		ExecutedAt:        execCtx.StartedAt,
		FailureDetails: &outcome.DetailedFailureReason{
			TerminationReason: reason,
			Phase:             outcome.PhaseAgentExecution,
			Summary:           summary,
		},
	}
}

func metricsOf(execCtx *ExecutionContext) Metrics {
	return Metrics{
		PromptTokens:     execCtx.Cost.PromptTokens(),
		CompletionTokens: execCtx.Cost.CompletionTokens(),
		TotalTokens:      execCtx.Cost.TotalTokens(),
		Turns:            execCtx.Cost.Turns(),
		CompileAttempts:  execCtx.Cost.CompileAttempts(),
		TestRuns:         execCtx.Cost.TestRuns(),
	}
}
