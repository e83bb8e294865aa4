package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the anno_stats MCP tool.
type StatsTool struct {
	a *Annotator
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(a *Annotator) *StatsTool {
	return &StatsTool{a: a}
}

// Definition returns the MCP tool definition for anno_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_stats",
		mcp.WithDescription("Show how many annotations and annotated segments each table has."),
	)
}

// Handle processes the anno_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.a.Stats(ctx)
	if err != nil {
		return result("", err)
	}
	var b strings.Builder
	b.WriteString("Annotation stats:")
	for _, s := range stats {
		fmt.Fprintf(&b, "\n- %s: %d annotations on %d segments", s.Table, s.Annotations, s.Entities)
	}
	if t.a.DryRun() {
		b.WriteString("\n(dry-run mode: posts and deletes are not written)")
	}
	return result(b.String(), nil)
}
