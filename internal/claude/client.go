// Package claude adapts the Anthropic Messages API to the normalized
// request/response and streaming shapes used by the rest of the service.
//
// The adapter owns all raw provider payloads: polymorphic content blocks
// (text, tool_use, tool_result) are converted to the tagged Message /
// ChatResponse / StreamEvent types at this boundary, with exhaustive case
// handling. Nothing above this package imports the SDK.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/akgolf/aicoach/internal/log"
)

// ErrUnavailable indicates the client has no API credential and cannot
// reach the provider. Callers must check Available before assuming the
// provider can be reached; operations fail fast with this sentinel.
var ErrUnavailable = errors.New("claude: client not available (missing API key)")

// Config carries the construction parameters for Client.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int // default response budget when ChatOptions.MaxTokens is 0
}

// Client is the provider adapter. It is safe for concurrent use.
//
// The zero value is not useful; use New. A Client constructed without an
// API key is inert: Available reports false and every call returns
// ErrUnavailable.
type Client struct {
	api       anthropic.Client
	available bool
	model     string
	maxTokens int
	logger    log.Logger
}

// New creates a Client. A missing API key is not an error: the client is
// returned in unavailable state so the service can degrade gracefully.
func New(cfg Config, logger log.Logger) *Client {
	c := &Client{
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 4096
	}

	if cfg.APIKey == "" {
		logger.Warn("no Anthropic API key configured, AI coach disabled")
		return c
	}

	c.api = anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	c.available = true
	return c
}

// Available reports whether the client holds a credential and can issue
// provider calls.
func (c *Client) Available() bool {
	return c.available
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat performs a single synchronous round-trip.
//
// All text blocks of the response are concatenated (newline-joined) into
// Content; all tool_use blocks are collected into ToolCalls. Usage reflects
// exactly this one call. Transport and provider errors are returned to the
// caller; recovery is the caller's responsibility.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) (ChatResponse, error) {
	if !c.available {
		return ChatResponse{}, ErrUnavailable
	}

	params, err := c.buildParams(messages, opts)
	if err != nil {
		return ChatResponse{}, err
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("claude: message request: %w", err)
	}

	return normalizeMessage(msg)
}

// Complete is a convenience wrapper: a single user prompt, returning only
// the response text.
func (c *Client) Complete(ctx context.Context, prompt string, opts ChatOptions) (string, error) {
	resp, err := c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// buildParams converts normalized messages and options into an SDK request.
func (c *Client) buildParams(messages []Message, opts ChatOptions) (anthropic.MessageNewParams, error) {
	msgs, err := toMessageParams(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}
	if len(opts.Tools) > 0 {
		params.Tools = toToolParams(opts.Tools)
	}
	return params, nil
}

// toMessageParams maps the normalized transcript onto SDK message params.
func toMessageParams(messages []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for i, m := range messages {
		switch m.Role {
		case RoleUser:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolResults))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tr := range m.ToolResults {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: tr.ToolCallID,
						IsError:   anthropic.Bool(tr.IsError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: tr.Content}},
						},
					},
				})
			}
			if len(blocks) == 0 {
				return nil, fmt.Errorf("claude: user message %d has no content", i)
			}
			out = append(out, anthropic.NewUserMessage(blocks...))

		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				input := tc.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(blocks) == 0 {
				return nil, fmt.Errorf("claude: assistant message %d has no content", i)
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		default:
			return nil, fmt.Errorf("claude: message %d has unsupported role %q", i, m.Role)
		}
	}
	return out, nil
}

// toToolParams converts tool declarations verbatim into SDK tool params.
func toToolParams(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema.Properties,
					Required:   t.InputSchema.Required,
				},
			},
		})
	}
	return out
}

// normalizeMessage flattens the provider's polymorphic content blocks into
// a ChatResponse. Unknown block kinds are skipped deliberately: future
// provider block types must not break the loop above us.
func normalizeMessage(msg *anthropic.Message) (ChatResponse, error) {
	var texts []string
	var calls []ToolCall

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			input := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return ChatResponse{}, fmt.Errorf("claude: decoding tool input for %s: %w", block.Name, err)
				}
			}
			calls = append(calls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}

	return ChatResponse{
		Content:    strings.Join(texts, "\n"),
		StopReason: string(msg.StopReason),
		ToolCalls:  calls,
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
