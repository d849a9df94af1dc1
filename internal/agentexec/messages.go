package agentexec

// Kind discriminates the four message shapes the agent execution engine
// recognizes from the coding agent's asynchronous SDK message stream. Rather
// than a class hierarchy, SDK messages are modeled as a tagged union with
// exhaustive dispatch in the engine's reader loop.
type Kind string

const (
	KindSystemInit Kind = "system.init"
	KindAssistant  Kind = "assistant"
	KindUser       Kind = "user"
	KindResult     Kind = "result"
)

// ResultSubtype is the terminal subtype carried by a KindResult message.
// The SDK's own "success" subtype is recorded here but never trusted as the
// outcome; see DetectSuccess.
type ResultSubtype string

const (
	ResultSuccess              ResultSubtype = "success"
	ResultErrorMaxTurns        ResultSubtype = "error_max_turns"
	ResultErrorDuringExecution ResultSubtype = "error_during_execution"
	ResultErrorMaxBudgetUSD    ResultSubtype = "error_max_budget_usd"
)

// BlockKind discriminates one content block inside an assistant or user
// message.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is one element of an assistant/user message's content list.
// ToolUseID correlates a tool_use block (in an assistant message) with its
// matching tool_result block (in a later user message) — by id, never by
// position.
type ContentBlock struct {
	Kind      BlockKind
	ToolUseID string
	ToolName  string // set for BlockToolUse
	Text      string // set for BlockText and BlockToolResult
	IsError   bool   // set for BlockToolResult
}

// SystemInitMessage enumerates the tools and tool-server health the agent
// starts with. It is logged only — it never drives behavior.
type SystemInitMessage struct {
	Tools             []string
	ToolServerHealthy bool
}

// AssistantMessage may carry usage counters and a list of content blocks.
// Every assistant message ends the current turn and starts a new one.
type AssistantMessage struct {
	InputTokens  int
	OutputTokens int
	Content      []ContentBlock
}

// UserMessage may carry tool_result blocks whose textual payload feeds
// result extraction and success detection.
type UserMessage struct {
	Content []ContentBlock
}

// ResultMessage is the terminal message of an execution.
type ResultMessage struct {
	Subtype ResultSubtype
}

// Message is the tagged union consumed by the engine's single-reader loop.
// Exactly one of the typed fields matching Kind is populated.
type Message struct {
	Kind       Kind
	SystemInit *SystemInitMessage
	Assistant  *AssistantMessage
	User       *UserMessage
	Result     *ResultMessage
}
