package tools

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the anno_list MCP tool.
type ListTool struct {
	a *Annotator
}

// NewListTool creates a ListTool.
func NewListTool(a *Annotator) *ListTool {
	return &ListTool{a: a}
}

// Definition returns the MCP tool definition for anno_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_list",
		mcp.WithDescription("List a segment's annotations, oldest first."),
		mcp.WithString("segment_id",
			mcp.Required(),
			mcp.Description("Segment ID, as a string"),
		),
		mcp.WithString("table",
			mcp.Description("Only this table (default: every configured table)"),
		),
		mcp.WithBoolean("details",
			mcp.Description("Include table, author and date for each annotation"),
		),
	)
}

// Handle processes the anno_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	segment, err := segmentArg(req, "segment_id")
	if err != nil {
		return result("", err)
	}
	recs, err := t.a.List(ctx, segment, req.GetString("table", ""))
	if err != nil {
		return result("", err)
	}
	return result(formatList(recs, req.GetBool("details", false)), nil)
}

func formatList(recs []annotations.Record, details bool) string {
	if len(recs) == 0 {
		return "No annotations found."
	}
	var b strings.Builder
	if !details {
		for i, r := range recs {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(r.Pair().String())
		}
		return b.String()
	}

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "table\tannotation_class\tannotation\tauthor\tcreated")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Table, r.Class, r.Value, r.Author, r.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
