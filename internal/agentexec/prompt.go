package agentexec

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/centralgauge/centralgauge/internal/agentconfig"
	"github.com/centralgauge/centralgauge/internal/task"
)

const (
	compileToolBase = "al_compile"
	verifyToolBase  = "al_verify_task"
)

// ToolName resolves a base tool name to the vocabulary the agent is told
// about, per the configured naming style.
func ToolName(base string, naming agentconfig.ToolNaming) string {
	if naming == agentconfig.ToolNamingMCP {
		return "mcp__al-tools__" + base
	}
	return base
}

var universalTemplate = template.Must(template.New("universal").Parse(
	`You are working on Business Central AL task {{.TaskID}}.

{{.Description}}

Your workspace is at {{.WorkspacePath}}. Write your AL source files there.

The task is not complete until you have invoked the {{.CompileTool}} tool and
it has returned a success signal.
{{if .RequiresTests}}
This task also requires passing tests. After a successful compile, invoke
the {{.VerifyTool}} tool and wait for it to report that tests passed before
considering the task done.
{{end}}`))

// promptData is the placeholder set the universal template renders.
type promptData struct {
	TaskID        string
	Description   string
	WorkspacePath string
	RequiresTests bool
	CompileTool   string
	VerifyTool    string
}

// BuildPrompt constructs the prompt for one execution, using whichever
// template the resolved agent config selects.
func BuildPrompt(cfg *agentconfig.Config, m *task.Manifest, workspacePath string) (string, error) {
	switch cfg.EffectivePromptTemplate() {
	case agentconfig.PromptTemplateLegacy:
		return buildLegacyPrompt(cfg, m, workspacePath), nil
	default:
		return buildUniversalPrompt(cfg, m, workspacePath)
	}
}

func buildUniversalPrompt(cfg *agentconfig.Config, m *task.Manifest, workspacePath string) (string, error) {
	data := promptData{
		TaskID:        m.ID,
		Description:   m.Description,
		WorkspacePath: workspacePath,
		RequiresTests: m.RequiresTests(),
		CompileTool:   ToolName(compileToolBase, cfg.EffectiveToolNaming()),
		VerifyTool:    ToolName(verifyToolBase, cfg.EffectiveToolNaming()),
	}
	var sb strings.Builder
	if err := universalTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("build universal prompt for %s: %w", m.ID, err)
	}
	return sb.String(), nil
}

// buildLegacyPrompt assembles the same directive as a hand-built string
// rather than a loaded template, matching the legacy style this prompt
// template predates.
func buildLegacyPrompt(cfg *agentconfig.Config, m *task.Manifest, workspacePath string) string {
	compileTool := ToolName(compileToolBase, cfg.EffectiveToolNaming())
	verifyTool := ToolName(verifyToolBase, cfg.EffectiveToolNaming())

	var sb strings.Builder
	fmt.Fprintf(&sb, "TASK: %s\n\n", m.ID)
	fmt.Fprintf(&sb, "%s\n\n", m.Description)
	fmt.Fprintf(&sb, "WORKSPACE: %s\n\n", workspacePath)
	fmt.Fprintf(&sb, "INSTRUCTIONS:\n")
	fmt.Fprintf(&sb, "1. Write the AL source needed to satisfy the task directly into the workspace.\n")
	fmt.Fprintf(&sb, "2. Invoke %s to compile your changes.\n", compileTool)
	fmt.Fprintf(&sb, "3. This task is NOT complete until %s reports a success signal.\n", compileTool)
	if m.RequiresTests() {
		fmt.Fprintf(&sb, "4. Once compilation succeeds, invoke %s and wait for it to report that tests passed.\n", verifyTool)
		fmt.Fprintf(&sb, "5. Do not report completion until the verify step has passed.\n")
	}
	return sb.String()
}
