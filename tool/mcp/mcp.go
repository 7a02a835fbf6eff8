// Package mcp adapts MCP (Model Context Protocol) servers into the tool
// connector contract, so agents can use tools exposed by subprocess or HTTP
// based MCP servers without knowing the protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/colloquy/tool"
)

// RemoteConnector provides access to capabilities served by an MCP server.
// The tool list is fetched once at connection time, fixing the capability
// set for subsequent runs; Refresh re-reads it when a server's tools change.
//
// Invocations are plain request/response calls and hold no per-run state, so
// one connector can serve many sequential runs.
type RemoteConnector struct {
	client *client.Client
	defs   map[string]tool.Definition
	order  []string
}

// NewStdioConnector launches an MCP server subprocess and connects over
// stdio. The command is the path to the server executable; env entries are
// appended to the subprocess environment.
func NewStdioConnector(ctx context.Context, command string, env []string, args ...string) (*RemoteConnector, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return newFromClient(ctx, c)
}

// NewSSEConnector connects to an MCP server over SSE.
func NewSSEConnector(ctx context.Context, baseURL string) (*RemoteConnector, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE MCP client: %w", err)
	}
	return newFromClient(ctx, c)
}

// NewFromClient creates a RemoteConnector from an existing MCP client. The
// connector initializes the session and fetches the tool list.
func NewFromClient(ctx context.Context, c *client.Client) (*RemoteConnector, error) {
	return newFromClient(ctx, c)
}

func newFromClient(ctx context.Context, c *client.Client) (*RemoteConnector, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "colloquy-mcp-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	r := &RemoteConnector{
		client: c,
		defs:   make(map[string]tool.Definition),
	}

	if err := r.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	return r, nil
}

// Close closes the connection to the MCP server.
func (r *RemoteConnector) Close() error {
	return r.client.Close()
}

// Refresh fetches the current list of tools from the MCP server.
func (r *RemoteConnector) Refresh(ctx context.Context) error {
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	r.defs = make(map[string]tool.Definition, len(result.Tools))
	r.order = r.order[:0]
	for _, t := range result.Tools {
		r.defs[t.Name] = DefinitionFromMCPTool(t)
		r.order = append(r.order, t.Name)
	}

	return nil
}

// Definitions implements tool.Connector.
func (r *RemoteConnector) Definitions() []tool.Definition {
	out := make([]tool.Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Has implements tool.Connector.
func (r *RemoteConnector) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Invoke implements tool.Connector. Transport failures map to the
// unreachable error kind; server-side tool errors map to rejected.
func (r *RemoteConnector) Invoke(ctx context.Context, name string, args map[string]any) (*tool.Output, error) {
	if !r.Has(name) {
		return nil, tool.NewUnknownCapability(name)
	}

	result, err := r.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, tool.NewUnreachable(name, err)
	}

	content := contentText(result)
	if result.IsError {
		return nil, tool.NewRejected(name, content)
	}
	return &tool.Output{Content: content}, nil
}

// DefinitionFromMCPTool converts an MCP tool descriptor to a connector
// definition, extracting the JSON schema from either RawInputSchema or the
// structured InputSchema.
func DefinitionFromMCPTool(t mcp.Tool) tool.Definition {
	def := tool.Definition{
		Name:        t.Name,
		Description: t.Description,
	}

	var raw json.RawMessage
	if len(t.RawInputSchema) > 0 {
		raw = t.RawInputSchema
	} else if data, err := json.Marshal(t.InputSchema); err == nil {
		raw = data
	}
	if len(raw) > 0 {
		var params map[string]any
		if err := json.Unmarshal(raw, &params); err == nil {
			def.Parameters = params
		}
	}

	return def
}

// contentText flattens an MCP call result into text, concatenating text
// blocks and JSON-encoding anything structured.
func contentText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		default:
			if data, err := json.Marshal(content); err == nil {
				parts = append(parts, string(data))
			}
		}
	}

	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}

	return strings.Join(parts, "\n")
}
