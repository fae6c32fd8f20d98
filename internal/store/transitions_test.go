package store

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"accept", "pending", true},
		{"accept", "accepted", false},
		{"accept", "completed", false},
		{"complete", "accepted", true},
		{"complete", "pending", false},
		{"complete", "completed", false},
		{"unknown", "pending", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}
