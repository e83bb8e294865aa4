package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

// TreeTool handles the anno_tree MCP tool.
type TreeTool struct {
	a *Annotator
}

// NewTreeTool creates a TreeTool.
func NewTreeTool(a *Annotator) *TreeTool {
	return &TreeTool{a: a}
}

// Definition returns the MCP tool definition for anno_tree.
func (t *TreeTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_tree",
		mcp.WithDescription("Show the annotations a table accepts: its class hierarchy, or its list of tags."),
		mcp.WithString("table",
			mcp.Description("Table to show (default: the default table)"),
		),
	)
}

// Handle processes the anno_tree tool call.
func (t *TreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := t.a.table(req.GetString("table", ""))
	if err != nil {
		return result("", err)
	}
	text, err := renderTable(table)
	if err != nil {
		return nil, err
	}
	return result(text, nil)
}

func renderTable(table *rules.Table) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Table `%s` (%s)\n", table.Name, table.Kind)
	if table.Kind == rules.KindList {
		for _, term := range table.Terms {
			fmt.Fprintf(&b, "- %s\n", term)
		}
		return b.String(), nil
	}
	if err := table.Tree.Render(&b); err != nil {
		return "", fmt.Errorf("rendering %s: %w", table.Name, err)
	}
	return b.String(), nil
}
