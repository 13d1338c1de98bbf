package claude

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

// ChatStream performs one streaming round-trip and returns a channel of
// normalized events.
//
// The stream is one-directional, single-pass and not restartable. Text
// deltas arrive as StreamText events; a new tool call opens with
// StreamToolUseStart and its arguments follow as StreamToolUseDelta
// fragments. Exactly one terminal event (StreamDone with usage, or
// StreamError) is emitted before the channel closes — never both, never
// neither.
//
// Cancellation is consumer-driven: when ctx is canceled the producer stops
// reading from the provider, releases the upstream stream and closes the
// channel. The upstream is never left running unconsumed.
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) <-chan StreamEvent {
	ch := make(chan StreamEvent)

	go func() {
		defer close(ch)

		emit := func(ev StreamEvent) bool {
			select {
			case ch <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !c.available {
			emit(StreamEvent{Type: StreamError, Error: ErrUnavailable.Error()})
			return
		}

		params, err := c.buildParams(messages, opts)
		if err != nil {
			emit(StreamEvent{Type: StreamError, Error: err.Error()})
			return
		}

		stream := c.api.Messages.NewStreaming(ctx, params)
		defer func() {
			if err := stream.Close(); err != nil {
				c.logger.Debug("closing provider stream", "error", err)
			}
		}()

		var usage Usage
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				usage.InputTokens += int(ev.Message.Usage.InputTokens)
				usage.OutputTokens += int(ev.Message.Usage.OutputTokens)

			case anthropic.ContentBlockStartEvent:
				if tu, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					if !emit(StreamEvent{Type: StreamToolUseStart, ID: tu.ID, Name: tu.Name}) {
						return
					}
				}

			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" && !emit(StreamEvent{Type: StreamText, Text: delta.Text}) {
						return
					}
				case anthropic.InputJSONDelta:
					if delta.PartialJSON != "" && !emit(StreamEvent{Type: StreamToolUseDelta, Content: delta.PartialJSON}) {
						return
					}
				}

			case anthropic.MessageDeltaEvent:
				// message_delta usage carries the cumulative output count.
				if ev.Usage.OutputTokens > 0 {
					usage.OutputTokens = int(ev.Usage.OutputTokens)
				}
			}
		}

		if err := stream.Err(); err != nil {
			c.logger.Error("provider stream failed", "error", err)
			emit(StreamEvent{Type: StreamError, Error: err.Error()})
			return
		}

		emit(StreamEvent{Type: StreamDone, Usage: &usage})
	}()

	return ch
}
