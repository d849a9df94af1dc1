package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/centralgauge/centralgauge/internal/debuglog"
	"github.com/centralgauge/centralgauge/internal/fixapply"
	"github.com/centralgauge/centralgauge/internal/llmadapter"
	"github.com/centralgauge/centralgauge/internal/shortcomings"
)

// Mode selects which outcomes the orchestrator acts on.
type Mode string

const (
	ModeAll              Mode = "all"
	ModeFixesOnly        Mode = "fixes-only"
	ModeShortcomingsOnly Mode = "shortcomings-only"
)

// Decision is the caller's verdict on a proposed fix, returned by Prompter.
type Decision string

const (
	DecisionApply Decision = "apply"
	DecisionSkip  Decision = "skip"
	DecisionQuit  Decision = "quit"
)

// Prompter asks the operator what to do about one proposed fix. The
// orchestrator itself has no terminal I/O; callers inject a real
// interactive prompt, and tests inject a canned sequence.
type Prompter func(failing debuglog.FailingTask, fixable *Fixable, diff string) Decision

// Options configures one orchestrator run.
type Options struct {
	DebugDir    string
	RepoRoot    string
	SessionID   *int64
	Mode        Mode
	MaxParallel int
	Model       string // analysis LLM model name
}

// Summary is the per-run outcome report: an errors[] list of taskId:message
// strings alongside simple counters.
type Summary struct {
	SessionID          int64
	TotalFailures      int
	FixesApplied       int
	FixesSkipped       int
	ShortcomingsLogged int
	Errors             []string
}

// Orchestrator is the Verify Orchestrator / Failure-Analysis Pipeline:
// collect failing tasks from a debug-log session, classify each with the
// configured LLM, and act on the verdict.
type Orchestrator struct {
	llm         llmadapter.Adapter
	shortcoming *shortcomings.Tracker
	bus         *Bus
	prompt      Prompter
}

// NewOrchestrator constructs an Orchestrator. prompt may be nil: in
// shortcomings-only mode it is never called, and in the other modes a
// proposed fix is then counted as skipped.
func NewOrchestrator(llm llmadapter.Adapter, shortcomingsDir string, bus *Bus, prompt Prompter) *Orchestrator {
	return &Orchestrator{
		llm:         llm,
		shortcoming: shortcomings.NewTracker(shortcomingsDir),
		bus:         bus,
		prompt:      prompt,
	}
}

// Run executes one full pass: session selection, failure collection, and
// the bounded-concurrency per-task pipeline.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	sessionID, err := debuglog.SelectSession(opts.DebugDir, opts.SessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("analysis: select session: %w", err)
	}

	failing, err := debuglog.CollectFailures(opts.DebugDir, sessionID, opts.RepoRoot)
	if err != nil {
		return Summary{}, fmt.Errorf("analysis: collect failures: %w", err)
	}

	summary := Summary{SessionID: sessionID, TotalFailures: len(failing)}
	quit := make(chan struct{})
	var quitOnce sync.Once
	var mu sync.Mutex

	o.bus.Publish(Event{Type: EventStarted, Message: fmt.Sprintf("session %d: %d failing task(s)", sessionID, len(failing))})

	RunPool(ctx, failing, maxParallelOrDefault(opts.MaxParallel), quit, func(ctx context.Context, ft debuglog.FailingTask) {
		outcome, applyErr := o.processOne(ctx, opts, ft)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case applyErr != nil:
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", ft.TaskID, applyErr))
			o.bus.Publish(Event{Type: EventError, TaskID: ft.TaskID, Model: ft.Model, Err: applyErr})
		case outcome == outcomeFixApplied:
			summary.FixesApplied++
		case outcome == outcomeFixSkipped:
			summary.FixesSkipped++
		case outcome == outcomeQuit:
			quitOnce.Do(func() { close(quit) })
		case outcome == outcomeShortcomingLogged:
			summary.ShortcomingsLogged++
		}
	})

	o.bus.Publish(Event{Type: EventComplete, Message: fmt.Sprintf("%d fix(es) applied, %d skipped, %d shortcoming(s) logged",
		summary.FixesApplied, summary.FixesSkipped, summary.ShortcomingsLogged)})

	return summary, nil
}

type taskOutcome int

const (
	outcomeNone taskOutcome = iota
	outcomeFixApplied
	outcomeFixSkipped
	outcomeQuit
	outcomeShortcomingLogged
)

// processOne runs the per-task pipeline: load context, build the prompt,
// call the LLM, parse the response, and act on the verdict according to
// opts.Mode.
func (o *Orchestrator) processOne(ctx context.Context, opts Options, ft debuglog.FailingTask) (taskOutcome, error) {
	o.bus.Publish(Event{Type: EventAnalyzing, TaskID: ft.TaskID, Model: ft.Model})

	taskYAML, testAL, nonTestCode, err := loadContext(ft)
	if err != nil {
		return outcomeNone, err
	}

	system, user := BuildPrompt(ft, taskYAML, testAL, nonTestCode)
	resp, err := o.llm.Complete(ctx, llmadapter.CompletionRequest{
		Model: opts.Model,
		Messages: []llmadapter.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
		MaxTokens:   4000,
	})
	if err != nil {
		return outcomeNone, fmt.Errorf("analysis LLM call: %w", err)
	}

	result := ParseAnalysisResponse(resp.Text, ft)
	o.bus.Publish(Event{Type: EventAnalysisComplete, TaskID: ft.TaskID, Model: ft.Model, Message: string(result.Outcome)})

	switch result.Outcome {
	case OutcomeFixable:
		if opts.Mode == ModeShortcomingsOnly {
			o.bus.Publish(Event{Type: EventFixSkipped, TaskID: ft.TaskID, Model: ft.Model, Message: "mode=shortcomings-only"})
			return outcomeFixSkipped, nil
		}
		return o.handleFixable(ft, result.Fixable)
	case OutcomeModelShortcoming:
		if opts.Mode == ModeFixesOnly {
			return outcomeNone, nil
		}
		return o.handleShortcoming(ft, result.Shortcoming)
	default:
		return outcomeNone, nil
	}
}

func (o *Orchestrator) handleFixable(ft debuglog.FailingTask, fx *Fixable) (taskOutcome, error) {
	diff, err := fixapply.GenerateDiffPreview(fx.Fix.CodeBefore, fx.Fix.CodeAfter)
	if err != nil {
		return outcomeNone, fmt.Errorf("generate diff preview: %w", err)
	}
	o.bus.Publish(Event{Type: EventFixProposed, TaskID: ft.TaskID, Model: ft.Model, Message: diff})

	if o.prompt == nil {
		return outcomeFixSkipped, nil
	}

	switch o.prompt(ft, fx, diff) {
	case DecisionApply:
		res, err := fixapply.Apply(fx.Fix.FilePath, fx.Fix.CodeBefore, fx.Fix.CodeAfter)
		if err != nil {
			return outcomeNone, fmt.Errorf("apply fix: %w", err)
		}
		if !res.Applied {
			o.bus.Publish(Event{Type: EventFixSkipped, TaskID: ft.TaskID, Model: ft.Model, Message: res.Message})
			return outcomeFixSkipped, nil
		}
		o.bus.Publish(Event{Type: EventFixApplied, TaskID: ft.TaskID, Model: ft.Model, Message: string(res.MatchType)})
		return outcomeFixApplied, nil
	case DecisionQuit:
		return outcomeQuit, nil
	default:
		o.bus.Publish(Event{Type: EventFixSkipped, TaskID: ft.TaskID, Model: ft.Model, Message: "operator skipped"})
		return outcomeFixSkipped, nil
	}
}

func (o *Orchestrator) handleShortcoming(ft debuglog.FailingTask, sc *ModelShortcoming) (taskOutcome, error) {
	s := shortcomings.Shortcoming{
		Concept:     sc.Concept,
		ALConcept:   sc.ALConcept,
		Description: sc.Description,
	}
	if err := o.shortcoming.Add(ft.Model, s, shortcomings.AddInput{AffectedTask: ft.TaskID, ErrorCode: sc.ErrorCode}); err != nil {
		return outcomeNone, fmt.Errorf("record shortcoming: %w", err)
	}
	o.bus.Publish(Event{Type: EventShortcomingLogged, TaskID: ft.TaskID, Model: ft.Model, Message: sc.ALConcept})
	return outcomeShortcomingLogged, nil
}

// loadContext reads the task YAML, the test AL file, and the concatenation
// of the generated project's non-test *.al files.
func loadContext(ft debuglog.FailingTask) (taskYAML, testAL, nonTestCode string, err error) {
	yamlBytes, err := os.ReadFile(ft.TaskYAML)
	if err != nil {
		return "", "", "", fmt.Errorf("read task yaml %s: %w", ft.TaskYAML, err)
	}

	testALBytes, err := os.ReadFile(ft.TestAL)
	if err != nil {
		// Test AL may legitimately be absent for a compile-only task.
		testALBytes = nil
	}

	code, err := concatNonTestAL(ft.ProjectDir)
	if err != nil {
		return "", "", "", err
	}

	return string(yamlBytes), string(testALBytes), code, nil
}

// concatNonTestAL concatenates every *.al file under dir that is not a
// *.Test.al test-codeunit file, each preceded by a "// path" header.
func concatNonTestAL(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read project dir %s: %w", dir, err)
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".al") || strings.HasSuffix(name, ".Test.al") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		fmt.Fprintf(&b, "// %s\n%s\n\n", name, string(data))
	}
	return b.String(), nil
}

func maxParallelOrDefault(n int) int {
	if n <= 0 {
		return 1 // interactive prompts require serialization by default
	}
	return n
}
