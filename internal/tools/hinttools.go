package tools

import (
	"context"
	"encoding/json"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/hints"
)

// HostDialer opens a page host for a hint session. The production
// implementation drives playwright; tests supply fakes.
type HostDialer func(ctx context.Context, url, cdpURL string) (hints.Host, error)

// PlaywrightDialer connects to a running browser when cdpURL is set,
// otherwise launches one and navigates it to url.
func PlaywrightDialer(cfg config.BrowserConfig) HostDialer {
	return func(ctx context.Context, url, cdpURL string) (hints.Host, error) {
		if cdpURL != "" {
			return hints.ConnectPage(cdpURL)
		}
		return hints.LaunchPage(url, cfg.Headless)
	}
}

type sessionInput struct {
	SessionID string `json:"session_id"`
	Index     *int   `json:"index,omitempty"`
}

// AttachPageTool opens a page session for hint detection.
type AttachPageTool struct {
	sessions *hints.Registry
	dial     HostDialer
}

func NewAttachPageTool(sessions *hints.Registry, dial HostDialer) *AttachPageTool {
	return &AttachPageTool{sessions: sessions, dial: dial}
}

func (t *AttachPageTool) Name() string { return "attach_page" }

func (t *AttachPageTool) Description() string {
	return "Attach a hint-detection session to a page. Provide cdp_url to join a running browser's active page, or url to launch one. Returns a session_id for the other hint tools."
}

func (t *AttachPageTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string", "description": "Page URL to open in a fresh browser"},
			"cdp_url": {"type": "string", "description": "DevTools URL of a running browser to join"}
		}
	}`)
}

func (t *AttachPageTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var params struct {
		URL    string `json:"url"`
		CDPURL string `json:"cdp_url"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return errorResult("invalid input: %v", err)
	}
	if params.URL == "" && params.CDPURL == "" {
		return errorResult("url or cdp_url is required")
	}
	host, err := t.dial(ctx, params.URL, params.CDPURL)
	if err != nil {
		return nil, err
	}
	// the session outlives this call
	id, _ := t.sessions.Attach(context.Background(), host)
	return jsonResult(map[string]interface{}{"session_id": id})
}

// DetachPageTool closes a hint session.
type DetachPageTool struct {
	sessions *hints.Registry
}

func NewDetachPageTool(sessions *hints.Registry) *DetachPageTool {
	return &DetachPageTool{sessions: sessions}
}

func (t *DetachPageTool) Name() string { return "detach_page" }

func (t *DetachPageTool) Description() string {
	return "Detach a hint-detection session and release its page."
}

func (t *DetachPageTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {"type": "string"}
		},
		"required": ["session_id"]
	}`)
}

func (t *DetachPageTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var params sessionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return errorResult("invalid input: %v", err)
	}
	if err := t.sessions.Detach(params.SessionID); err != nil {
		return errorResult("%v", err)
	}
	return jsonResult(map[string]interface{}{"session_id": params.SessionID, "detached": true})
}

// DetectHintsTool classifies the page without rendering anything.
type DetectHintsTool struct {
	sessions *hints.Registry
}

func NewDetectHintsTool(sessions *hints.Registry) *DetectHintsTool {
	return &DetectHintsTool{sessions: sessions}
}

func (t *DetectHintsTool) Name() string { return "detect_hints" }

func (t *DetectHintsTool) Description() string {
	return "Detect interactable elements on the session's page and return them as hints, unlabeled."
}

func (t *DetectHintsTool) Schema() json.RawMessage {
	return sessionOnlySchema
}

func (t *DetectHintsTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	s, params, res := resolveSession(t.sessions, input)
	if res != nil {
		return res, nil
	}
	hs, err := s.DetectHints(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"session_id": params.SessionID,
		"count":      len(hs),
		"hints":      hs,
	})
}

// ShowHintsTool detects and renders labeled markers.
type ShowHintsTool struct {
	sessions *hints.Registry
}

func NewShowHintsTool(sessions *hints.Registry) *ShowHintsTool {
	return &ShowHintsTool{sessions: sessions}
}

func (t *ShowHintsTool) Name() string { return "show_hints" }

func (t *ShowHintsTool) Description() string {
	return "Detect interactable elements and render labeled markers (A, B, ... AA) on the page. Returns the labeled hints."
}

func (t *ShowHintsTool) Schema() json.RawMessage {
	return sessionOnlySchema
}

func (t *ShowHintsTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	s, params, res := resolveSession(t.sessions, input)
	if res != nil {
		return res, nil
	}
	hs, err := s.ShowHints(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"session_id": params.SessionID,
		"count":      len(hs),
		"hints":      hs,
	})
}

// HideHintsTool removes all markers.
type HideHintsTool struct {
	sessions *hints.Registry
}

func NewHideHintsTool(sessions *hints.Registry) *HideHintsTool {
	return &HideHintsTool{sessions: sessions}
}

func (t *HideHintsTool) Name() string { return "hide_hints" }

func (t *HideHintsTool) Description() string {
	return "Remove all hint markers from the session's page."
}

func (t *HideHintsTool) Schema() json.RawMessage {
	return sessionOnlySchema
}

func (t *HideHintsTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	s, params, res := resolveSession(t.sessions, input)
	if res != nil {
		return res, nil
	}
	if err := s.HideHints(ctx); err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{"session_id": params.SessionID, "hidden": true})
}

// ClickHintTool activates a hint by its index from the last show.
type ClickHintTool struct {
	sessions *hints.Registry
}

func NewClickHintTool(sessions *hints.Registry) *ClickHintTool {
	return &ClickHintTool{sessions: sessions}
}

func (t *ClickHintTool) Name() string { return "click_hint" }

func (t *ClickHintTool) Description() string {
	return "Activate a hint by its zero-based index from the last show_hints call. Fails if the element moved or vanished since."
}

func (t *ClickHintTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {"type": "string"},
			"index": {"type": "integer", "description": "Zero-based hint index"}
		},
		"required": ["session_id", "index"]
	}`)
}

func (t *ClickHintTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	s, params, res := resolveSession(t.sessions, input)
	if res != nil {
		return res, nil
	}
	if params.Index == nil {
		return errorResult("index is required")
	}
	if err := s.ClickHint(ctx, *params.Index); err != nil {
		return errorResult("%v", err)
	}
	return jsonResult(map[string]interface{}{"session_id": params.SessionID, "clicked": *params.Index})
}

var sessionOnlySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"session_id": {"type": "string"}
	},
	"required": ["session_id"]
}`)

// resolveSession parses the common session_id input and looks the
// session up. A non-nil ToolResult short-circuits the caller.
func resolveSession(r *hints.Registry, input json.RawMessage) (*hints.Session, sessionInput, *ToolResult) {
	var params sessionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, params, &ToolResult{Content: "invalid input: " + err.Error(), IsError: true}
	}
	if params.SessionID == "" {
		return nil, params, &ToolResult{Content: "session_id is required", IsError: true}
	}
	s, ok := r.Get(params.SessionID)
	if !ok {
		return nil, params, &ToolResult{Content: "no session " + params.SessionID, IsError: true}
	}
	return s, params, nil
}
