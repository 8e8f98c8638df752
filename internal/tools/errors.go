package tools

import (
	"fmt"
	"strings"
)

// toolErrorHints maps low-level error fragments to actionable advice
// surfaced alongside the raw error.
var toolErrorHints = map[string]string{
	"context deadline exceeded": "The page took too long to respond. Retry, or raise queue.call_timeout_ms.",
	"timed out":                 "The operation exceeded its lane timeout. The page may be busy; retry once it settles.",
	"connection refused":        "No browser is listening. Start Chrome with --remote-debugging-port or check browser.cdp_url.",
	"no such target":            "The tab is gone. List targets again and re-attach.",
	"target detached":           "The tab closed mid-call. Re-attach before retrying.",
	"session detached":          "The page session ended. Attach a new session first.",
	"no longer matches":         "The page changed since the hints were shown. Re-run show_hints and use a fresh index.",
	"websocket":                 "The CDP connection dropped. Check that the browser is still running.",
}

// wrapToolError attaches a hint when the failure matches a known
// pattern.
func wrapToolError(err error, tool string) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	for pattern, hint := range toolErrorHints {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("%s failed: %w\n\nHint: %s", tool, err, hint)
		}
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}
