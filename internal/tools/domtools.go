package tools

import (
	"context"
	"encoding/json"
)

type tabInput struct {
	TabID string `json:"tab_id"`
}

// DomTreeTool rebuilds a tab's fused tree and reports what changed.
type DomTreeTool struct {
	tabs TabSource
}

func NewDomTreeTool(tabs TabSource) *DomTreeTool { return &DomTreeTool{tabs: tabs} }

func (t *DomTreeTool) Name() string { return "dom_tree" }

func (t *DomTreeTool) Description() string {
	return "Rebuild the DOM tree for a browser tab by fusing the DOM, accessibility and layout snapshots. Returns counts of new and changed nodes."
}

func (t *DomTreeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"tab_id": {"type": "string", "description": "Target id of the tab"}
		},
		"required": ["tab_id"]
	}`)
}

func (t *DomTreeTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var params tabInput
	if err := json.Unmarshal(input, &params); err != nil {
		return errorResult("invalid input: %v", err)
	}
	if params.TabID == "" {
		return errorResult("tab_id is required")
	}
	svc, err := t.tabs.Service(ctx, params.TabID)
	if err != nil {
		return errorResult("no DOM tree service for tab %s: %v", params.TabID, err)
	}
	stats, err := svc.BuildDOMTree(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"tab_id":                   params.TabID,
		"new_nodes_count":          stats.NewNodesCount,
		"total_nodes_count_change": stats.SimplifiedNodesCountChange,
	})
}

// FlattenDomTool returns the serialized text form of a tab's tree,
// rebuilding first when stale.
type FlattenDomTool struct {
	tabs TabSource
}

func NewFlattenDomTool(tabs TabSource) *FlattenDomTool { return &FlattenDomTool{tabs: tabs} }

func (t *FlattenDomTool) Name() string { return "flatten_dom" }

func (t *FlattenDomTool) Description() string {
	return "Flatten a tab's DOM tree into the compact indexed text representation. Interactive elements carry [N] indices usable with the selector map."
}

func (t *FlattenDomTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"tab_id": {"type": "string", "description": "Target id of the tab"}
		},
		"required": ["tab_id"]
	}`)
}

func (t *FlattenDomTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var params tabInput
	if err := json.Unmarshal(input, &params); err != nil {
		return errorResult("invalid input: %v", err)
	}
	if params.TabID == "" {
		return errorResult("tab_id is required")
	}
	svc, err := t.tabs.Service(ctx, params.TabID)
	if err != nil {
		return errorResult("no DOM tree service for tab %s: %v", params.TabID, err)
	}
	repr, err := svc.FlattenDOM(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"tab_id":         params.TabID,
		"representation": repr,
	})
}

// ListTabsTool reports the browser's open tabs.
type ListTabsTool struct {
	tabs TabSource
}

func NewListTabsTool(tabs TabSource) *ListTabsTool { return &ListTabsTool{tabs: tabs} }

func (t *ListTabsTool) Name() string { return "list_tabs" }

func (t *ListTabsTool) Description() string {
	return "List the browser's open tabs with their target ids."
}

func (t *ListTabsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ListTabsTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	infos, err := t.tabs.Tabs(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{"tabs": infos})
}
