package delivery

import "strings"

// terminalErrorMarkers are substrings that identify failures unlikely to
// succeed on retry against the same provider: bad recipients, list policy
// rejections, and credential problems. This is a heuristic over the
// provider's error text, not a structured error code; it is kept in this
// one place so it can be replaced with provider-specific codes without
// touching the orchestrator's control flow.
var terminalErrorMarkers = []string{
	"invalid email",
	"blocked",
	"unsubscribed",
	"bounce",
	"spam",
	"authentication failed",
}

// IsTerminalError reports whether the error text matches a known
// non-retryable failure. Matching is a case-insensitive substring check.
// A terminal failure stops retries on the current provider only; failover
// to the next provider still proceeds, since one provider's rejection is
// not always authoritative for another.
func IsTerminalError(errText string) bool {
	if errText == "" {
		return false
	}
	lower := strings.ToLower(errText)
	for _, marker := range terminalErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
