package mcp

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionFromMCPToolRawSchema(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"quote_id": {"type": "string"}
		}
	}`)
	mcpTool := mcp.NewToolWithRawSchema("get_lotr_quote", "Fetch a movie quote", schema)

	def := DefinitionFromMCPTool(mcpTool)

	assert.Equal(t, "get_lotr_quote", def.Name)
	assert.Equal(t, "Fetch a movie quote", def.Description)
	require.NotNil(t, def.Parameters)
	assert.Equal(t, "object", def.Parameters["type"])

	props, ok := def.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "quote_id")
}

func TestDefinitionFromMCPToolStructuredSchema(t *testing.T) {
	mcpTool := mcp.NewTool("describe_lotr_quote",
		mcp.WithDescription("Describe a quote"),
		mcp.WithString("quote", mcp.Required(), mcp.Description("The quote text")),
	)

	def := DefinitionFromMCPTool(mcpTool)

	assert.Equal(t, "describe_lotr_quote", def.Name)
	require.NotNil(t, def.Parameters)
	assert.Equal(t, "object", def.Parameters["type"])
}

func TestContentTextFlattensBlocks(t *testing.T) {
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent("first block"),
			mcp.NewTextContent("second block"),
		},
	}

	assert.Equal(t, "first block\nsecond block", contentText(result))
	assert.Equal(t, "", contentText(nil))
}
