package claude

// Role identifies the author of a transcript message.
type Role string

// Valid message roles. The provider rejects anything else.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one normalized transcript entry. Exactly one content shape is
// populated per conventional use:
//   - plain text turn: Content
//   - assistant turn that requested tools: Content (may be empty) + ToolCalls
//   - user turn feeding results back: ToolResults
//
// Components above the adapter only ever see this shape, never raw
// provider payloads.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a structured request from the model to execute a tool.
// ID correlates the call to its result within one model round-trip.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult is the outcome of executing a tool call, fed back to the
// model tagged with the originating call ID.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Usage holds the provider-reported token counts for a single call.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

// Add accumulates another call's usage into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ChatResponse is the normalized result of one synchronous model round-trip.
type ChatResponse struct {
	Content    string
	StopReason string
	ToolCalls  []ToolCall // empty when the model finished without tool use
	Usage      Usage      // this call only, never accumulated
}

// ToolSchema is a JSON-schema object description for a tool's input.
type ToolSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// Tool declares a callable tool to the provider.
type Tool struct {
	Name        string
	Description string
	InputSchema ToolSchema
}

// ChatOptions carries the per-call parameters for Chat and ChatStream.
type ChatOptions struct {
	System      string
	Tools       []Tool
	Temperature float64 // 0 means provider default
	MaxTokens   int     // 0 means client default
}

// StreamEventType tags the variants of StreamEvent.
type StreamEventType string

// Stream event types. A stream carries any number of text/tool events and
// is closed by exactly one terminal event: done or error.
const (
	StreamText         StreamEventType = "text"
	StreamToolUseStart StreamEventType = "tool_use_start"
	StreamToolUseDelta StreamEventType = "tool_use_delta"
	StreamDone         StreamEventType = "done"
	StreamError        StreamEventType = "error"
)

// StreamEvent is one discrete event on the streaming path. Only the fields
// for the tagged type are set:
//   - text: Text
//   - tool_use_start: ID, Name
//   - tool_use_delta: Content (a partial JSON fragment; the consumer
//     reassembles if it needs structured input mid-stream)
//   - done: Usage
//   - error: Error
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Text    string          `json:"text,omitempty"`
	ID      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Content string          `json:"content,omitempty"`
	Usage   *Usage          `json:"usage,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Terminal reports whether the event closes its stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == StreamDone || e.Type == StreamError
}
