package ai

import "context"

// Tool declares a capability the model may request during a completion.
// Parameters is a JSON Schema object describing the tool's input.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a request from the model to invoke a tool. ID correlates the
// call with its result within one turn.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult carries the outcome of one tool call back to the model.
// IsError marks results produced from an execution fault.
type ToolResult struct {
	ID      string `json:"id"`
	Payload any    `json:"payload"`
	IsError bool   `json:"is_error"`
}

// TurnRole identifies who produced a turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleTool      TurnRole = "tool"
)

// Turn is one unit of conversation content in the ordered history exchanged
// with the model: user text, assistant text and tool requests, or a batch of
// tool results.
type Turn struct {
	Role        TurnRole
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult

	// Raw holds the provider-native form of an assistant turn so the adapter
	// that produced it can replay it verbatim on the next request. Opaque to
	// everything outside that adapter.
	Raw any
}

// StopReason is the signal a completion ended with.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
	StopOther   StopReason = "other"
)

// CompletionRequest is one round-trip to the model: system instructions, the
// full ordered turn history, and the declared tool set.
type CompletionRequest struct {
	SystemPrompts []string
	Turns         []Turn
	Tools         []Tool
}

// Completion is the model's response to one request. Texts holds every text
// fragment in order; ToolCalls is non-empty only when Stop is StopToolUse.
type Completion struct {
	Texts     []string
	ToolCalls []ToolCall
	Stop      StopReason

	// Raw is the provider-native assistant message, suitable for Turn.Raw.
	Raw any
}

// GenerateOptions holds configuration for model requests.
type GenerateOptions struct {
	Model         string
	SystemPrompts []string
	Temperature   float64
	Thinking      string
}

// GenerateOption is a functional option for configuring model requests.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model to use for the request.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system prompts prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature. Lower values make output
// more deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithThinking enables extended reasoning mode where the backing model
// supports it.
func WithThinking(thinking string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Thinking = thinking
	}
}

// ModelMetrics accumulates usage metrics across model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// CompletionClient is the completion-service boundary. Complete performs one
// model round-trip over a turn history with tools declared; the caller owns
// the conversation loop and tool execution.
//
// GenerateCompletionWithFormat is the single-shot variant used by the wiki
// pipeline: the response is constrained by a JSON schema derived from out,
// and the raw reply text is returned so the caller can run its own repair
// steps before decoding. out must be a non-nil pointer to the target struct.
type CompletionClient interface {
	Complete(
		ctx context.Context,
		req CompletionRequest,
		opts ...GenerateOption,
	) (*Completion, error)

	GenerateCompletionWithFormat(
		ctx context.Context,
		name string,
		description string,
		prompt string,
		out any,
		opts ...GenerateOption,
	) (string, error)

	ResetMetrics()
	GetMetrics() ModelMetrics
}
