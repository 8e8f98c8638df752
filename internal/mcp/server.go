// Package mcp exposes the tool registry over the Model Context Protocol
// so MCP clients can drive DOM inspection directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/domlens/domlens/internal/logging"
	"github.com/domlens/domlens/internal/tools"
)

const serverVersion = "1.0.0"

// NewServer builds an MCP server with every registry tool mounted.
// Each tool keeps its own input schema; domain failures surface as
// IsError results, never protocol errors.
func NewServer(registry *tools.Registry) (*mcpsdk.Server, error) {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "domlens",
		Version: serverVersion,
	}, nil)

	for _, def := range registry.List() {
		schema := new(jsonschema.Schema)
		if err := json.Unmarshal(def.InputSchema, schema); err != nil {
			return nil, fmt.Errorf("parse schema for %s: %w", def.Name, err)
		}
		mcpsdk.AddTool(server, &mcpsdk.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		}, toolHandler(registry, def.Name))
	}
	return server, nil
}

func toolHandler(registry *tools.Registry, name string) func(context.Context, *mcpsdk.CallToolRequest, map[string]any) (*mcpsdk.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]any) (*mcpsdk.CallToolResult, any, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s input: %w", name, err)
		}

		res := registry.Execute(ctx, name, raw)
		if res.IsError {
			logging.Warnf("MCP", "tool %s returned error: %s", name, res.Content)
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: res.Content}},
			IsError: res.IsError,
		}, nil, nil
	}
}

// ServeStdio runs the server over stdin/stdout until the client hangs up
// or ctx is cancelled.
func ServeStdio(ctx context.Context, registry *tools.Registry) error {
	server, err := NewServer(registry)
	if err != nil {
		return err
	}
	logging.Infof("MCP", "serving over stdio")
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
