// Package tools defines the engine's tool surface: small named
// operations with JSON schemas, executed identically by the CLI, the
// HTTP server and the MCP server.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/domlens/domlens/internal/logging"
)

// ToolResult is the uniform result shape. Domain failures (unknown tab,
// stale hint) travel in Content with IsError set; transports never turn
// them into protocol errors.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool is one named operation.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

// ToolDefinition is the transport-facing description of a tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Registry manages available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	if _, ok := r.tools[tool.Name()]; ok {
		logging.Warnf("Registry", "tool %q already registered, overwriting", tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns tool definitions sorted by name.
func (r *Registry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Execute runs a tool by name. Unknown names come back as error results
// listing what is available.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) *ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		available := make([]string, 0, len(r.tools))
		r.mu.RLock()
		for n := range r.tools {
			available = append(available, n)
		}
		r.mu.RUnlock()
		sort.Strings(available)
		return &ToolResult{
			Content: fmt.Sprintf("unknown tool %q. Available tools: %s", name, strings.Join(available, ", ")),
			IsError: true,
		}
	}

	logging.Infof("Registry", "executing tool %s", name)
	res, err := tool.Execute(ctx, input)
	if err != nil {
		return &ToolResult{Content: wrapToolError(err, name).Error(), IsError: true}
	}
	return res
}

// errorResult formats a domain failure into the normal result shape.
func errorResult(format string, args ...interface{}) (*ToolResult, error) {
	return &ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}, nil
}

// jsonResult marshals a payload into the result content.
func jsonResult(v interface{}) (*ToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &ToolResult{Content: string(b)}, nil
}
