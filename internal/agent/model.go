package agent

import "context"

// Model is a chat model that can call tools.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single model invocation.
type Request struct {
	System   string
	Messages []Turn
	Tools    []ToolSpec
}

// Turn roles.
const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

// Turn is one entry of the conversation sent to the model. An assistant turn
// may carry tool calls, and the user turn that follows carries their results.
type Turn struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolSpec describes a tool to the model. Parameters are strings.
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}

type ToolParam struct {
	Name        string
	Description string
	Required    bool
}

// ToolCall is a model request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the output of a tool call, returned to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
}

// Response is the model output: final text, tool calls, or both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// StringArg reads a string argument from a tool call.
func (c ToolCall) StringArg(key string) string {
	v, _ := c.Args[key].(string)
	return v
}
