package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer exposes every registered function as an MCP tool, so other
// agents can use the catalog over stdio.
func NewMCPServer(r *Registry, name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version)
	for _, def := range r.AllTools() {
		s.AddTool(mcpTool(def.Name, def.Description, def.Parameters), r.mcpHandler(def.Name))
	}
	return s
}

func mcpTool(name, description string, params map[string]any) mcp.Tool {
	schema := mcp.ToolInputSchema{Type: "object"}
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = props
	}
	schema.Required = requiredFields(params["required"])
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}
}

// mcpHandler runs a function and joins its chunks into one text result.
// Failures become error results rather than protocol errors.
func (r *Registry) mcpHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		var b strings.Builder
		err := r.CallTool(ctx, name, args, func(chunk string) { b.WriteString(chunk) })
		if err != nil {
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				return errorResult(fmt.Sprintf("error: invalid arguments: %v", verr)), nil
			default:
				return errorResult(fmt.Sprintf("error: %v", err)), nil
			}
		}
		return textResult(strings.TrimSpace(b.String())), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
