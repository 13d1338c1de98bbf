package claude

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestChatStream_Unavailable(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := testClient("")
	ch := c.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "hei"}}, ChatOptions{})

	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Type != StreamError {
		t.Errorf("expected error event, got %s", events[0].Type)
	}
	if !events[0].Terminal() {
		t.Error("error event must be terminal")
	}
}

func TestChatStream_ConsumerCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := testClient("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // consumer gone before the first event

	ch := c.ChatStream(ctx, []Message{{Role: RoleUser, Content: "hei"}}, ChatOptions{})

	// The producer must close the channel without blocking on the send.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // closed, producer exited
			}
		case <-deadline:
			t.Fatal("stream channel was not closed after cancellation")
		}
	}
}

func TestStreamEvent_JSONShape(t *testing.T) {
	tests := []struct {
		name  string
		event StreamEvent
		want  string
	}{
		{
			name:  "text",
			event: StreamEvent{Type: StreamText, Text: "Hei"},
			want:  `{"type":"text","text":"Hei"}`,
		},
		{
			name:  "tool_use_start",
			event: StreamEvent{Type: StreamToolUseStart, ID: "t1", Name: "get_player_goals"},
			want:  `{"type":"tool_use_start","id":"t1","name":"get_player_goals"}`,
		},
		{
			name:  "tool_use_delta",
			event: StreamEvent{Type: StreamToolUseDelta, Content: `{"player_`},
			want:  `{"type":"tool_use_delta","content":"{\"player_"}`,
		},
		{
			name:  "done",
			event: StreamEvent{Type: StreamDone, Usage: &Usage{InputTokens: 10, OutputTokens: 3}},
			want:  `{"type":"done","usage":{"input":10,"output":3}}`,
		},
		{
			name:  "error",
			event: StreamEvent{Type: StreamError, Error: "boom"},
			want:  `{"type":"error","error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestStreamEvent_Terminal(t *testing.T) {
	if (StreamEvent{Type: StreamText}).Terminal() {
		t.Error("text must not be terminal")
	}
	if !(StreamEvent{Type: StreamDone}).Terminal() {
		t.Error("done must be terminal")
	}
	if !(StreamEvent{Type: StreamError}).Terminal() {
		t.Error("error must be terminal")
	}
}
