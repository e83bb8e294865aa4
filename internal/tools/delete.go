package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// DeleteTool handles the anno_delete MCP tool.
type DeleteTool struct {
	a *Annotator
}

// NewDeleteTool creates a DeleteTool.
func NewDeleteTool(a *Annotator) *DeleteTool {
	return &DeleteTool{a: a}
}

// Definition returns the MCP tool definition for anno_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_delete",
		mcp.WithDescription(
			"Delete an annotation from a segment. A bare value matches it under any class; 'class: value' matches exactly. "+
				"Annotations that other annotations on the segment use as their class must be deleted last.",
		),
		mcp.WithString("segment_id",
			mcp.Required(),
			mcp.Description("Segment ID, as a string"),
		),
		mcp.WithString("annotation",
			mcp.Required(),
			mcp.Description("The annotation to delete"),
		),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("Who is deleting; checked against the permissions file"),
		),
		mcp.WithString("table",
			mcp.Description("Table to delete from (default: every configured table the user may edit)"),
		),
	)
}

// Handle processes the anno_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	segment, err := segmentArg(req, "segment_id")
	if err != nil {
		return result("", err)
	}
	raw, err := requiredString(req, "annotation")
	if err != nil {
		return result("", err)
	}
	user, err := requiredString(req, "user")
	if err != nil {
		return result("", err)
	}

	res, err := t.a.Delete(ctx, DeleteRequest{Segment: segment, Annotation: raw, User: user, Table: req.GetString("table", "")})
	if err != nil {
		return result("", err)
	}
	return result(formatDelete(res), nil)
}

func formatDelete(res DeleteResult) string {
	if res.DryRun {
		return fmt.Sprintf("DRY RUN: would delete annotation with ID %s from table `%s`.", res.Record.ID, res.Record.Table)
	}
	return fmt.Sprintf("Successfully deleted annotation with ID %s from table `%s`.", res.Record.ID, res.Record.Table)
}
