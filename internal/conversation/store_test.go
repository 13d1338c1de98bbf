package conversation

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{
			name:     "no messages",
			messages: nil,
			want:     "",
		},
		{
			name: "first user message wins",
			messages: []Message{
				{Role: RoleUser, Content: "Hvordan er min putting?"},
				{Role: RoleAssistant, Content: "Din putting er god"},
				{Role: RoleUser, Content: "Og driving?"},
			},
			want: "Hvordan er min putting?",
		},
		{
			name: "assistant-only transcript yields no title",
			messages: []Message{
				{Role: RoleAssistant, Content: "Hei!"},
			},
			want: "",
		},
		{
			name: "whitespace is trimmed",
			messages: []Message{
				{Role: RoleUser, Content: "  Hva bør jeg trene?  "},
			},
			want: "Hva bør jeg trene?",
		},
		{
			name: "long message is truncated",
			messages: []Message{
				{Role: RoleUser, Content: strings.Repeat("a", 200)},
			},
			want: strings.Repeat("a", 57) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveTitle(tt.messages); got != tt.want {
				t.Errorf("deriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "Første spørsmål"},
		{Role: RoleAssistant, Content: "Svar"},
		{Role: RoleUser, Content: "Siste spørsmål"},
		{Role: RoleAssistant, Content: "Siste svar"},
	}

	if got := preview(messages); got != "Siste spørsmål" {
		t.Errorf("preview() = %q, want most recent user message", got)
	}
	if got := preview(nil); got != "" {
		t.Errorf("preview(nil) = %q, want empty", got)
	}

	long := []Message{{Role: RoleUser, Content: strings.Repeat("b", 150)}}
	got := preview(long)
	if len([]rune(got)) != maxPreviewLen {
		t.Errorf("preview length = %d runes, want %d", len([]rune(got)), maxPreviewLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated preview must end with ellipsis, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"kort", 60, "kort"},
		{strings.Repeat("x", 60), 60, strings.Repeat("x", 60)},
		{strings.Repeat("x", 61), 60, strings.Repeat("x", 57) + "..."},
		{"æøå æøå æøå", 8, "æøå æ..."}, // rune-based, not byte-based
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestUnionTools(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		added    []string
		want     []string
	}{
		{"both empty", nil, nil, []string{}},
		{"fresh names appended", []string{"a"}, []string{"b"}, []string{"a", "b"}},
		{"duplicates dropped", []string{"a", "b"}, []string{"b", "a"}, []string{"a", "b"}},
		{"order preserved", []string{"c"}, []string{"a", "c", "b"}, []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unionTools(tt.existing, tt.added)
			if len(got) != len(tt.want) {
				t.Fatalf("unionTools() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("unionTools() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
