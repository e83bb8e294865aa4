package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// maxListedIDs caps how many segment IDs a search prints.
const maxListedIDs = 300

// FindTool handles the anno_find MCP tool.
type FindTool struct {
	a *Annotator
}

// NewFindTool creates a FindTool.
func NewFindTool(a *Annotator) *FindTool {
	return &FindTool{a: a}
}

// Definition returns the MCP tool definition for anno_find.
func (t *FindTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_find",
		mcp.WithDescription(
			"Find segments carrying an annotation. A bare value matches it under any class; 'class: value' matches exactly. "+
				"Join several annotations with 'and' to find segments carrying all of them.",
		),
		mcp.WithString("annotation",
			mcp.Required(),
			mcp.Description("The annotation to search for"),
		),
		mcp.WithString("table",
			mcp.Description("Table to search (default: the default table)"),
		),
		mcp.WithBoolean("count_only",
			mcp.Description("Return only the number of matching segments"),
		),
	)
}

// Handle processes the anno_find tool call.
func (t *FindTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := requiredString(req, "annotation")
	if err != nil {
		return result("", err)
	}
	ids, err := t.a.Find(ctx, raw, req.GetString("table", ""))
	if err != nil {
		return result("", err)
	}
	return result(formatFind(ids, req.GetBool("count_only", false)), nil)
}

func formatFind(ids []int64, countOnly bool) string {
	switch {
	case countOnly:
		return fmt.Sprintf("Your search matched %d segments.", len(ids))
	case len(ids) == 0:
		return "No segments matched that search."
	case len(ids) > maxListedIDs:
		return fmt.Sprintf("%d segments matched that search! Ask for the count only, or narrow it down "+
			"by searching for several annotations at once, e.g. `X and Y`.", len(ids))
	}
	return "Search successful:\n" + formatIDs(ids)
}
