package delivery

import "testing"

func TestIsTerminalError(t *testing.T) {
	tests := []struct {
		name     string
		errText  string
		terminal bool
	}{
		{"empty", "", false},
		{"invalid email", "550 Invalid email address", true},
		{"blocked", "recipient address is BLOCKED by policy", true},
		{"unsubscribed", "user unsubscribed from this list", true},
		{"bounce", "hard bounce recorded for recipient", true},
		{"spam", "message flagged as spam", true},
		{"auth failure", "401 authentication failed: bad API key", true},
		{"server error", "server error 500", false},
		{"timeout", "context deadline exceeded", false},
		{"rate limited", "429 too many requests", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTerminalError(tt.errText); got != tt.terminal {
				t.Errorf("IsTerminalError(%q) = %v, want %v", tt.errText, got, tt.terminal)
			}
		})
	}
}
