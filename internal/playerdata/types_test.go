package playerdata

import "testing"

func TestNextCategory(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
		wantNil bool
	}{
		{"bottom of ladder", "K", "J", false},
		{"middle of ladder", "G", "F", false},
		{"one below top", "B", "A", false},
		{"top of ladder", "A", "", true},
		{"unknown category", "X", "", true},
		{"empty category", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextCategory(tt.current)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("NextCategory(%q) = %q, want nil", tt.current, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("NextCategory(%q) = nil, want %q", tt.current, tt.want)
			}
			if *got != tt.want {
				t.Errorf("NextCategory(%q) = %q, want %q", tt.current, *got, tt.want)
			}
		})
	}
}
