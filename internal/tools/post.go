package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"
	"github.com/mark3labs/mcp-go/mcp"
)

// PostTool handles the anno_post MCP tool.
type PostTool struct {
	a *Annotator
}

// NewPostTool creates a PostTool.
func NewPostTool(a *Annotator) *PostTool {
	return &PostTool{a: a}
}

// Definition returns the MCP tool definition for anno_post.
func (t *PostTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_post",
		mcp.WithDescription(
			"Post an annotation to a segment. Without a table, the annotation goes to the first configured table it is valid for. "+
				"Annotations are built from the top down: post the top-level class first (e.g. 'afferent'), "+
				"then its subclasses (e.g. 'sensory neuron'). Most classes take one value per segment.",
		),
		mcp.WithString("segment_id",
			mcp.Required(),
			mcp.Description("Segment ID, as a string (IDs exceed JSON number precision)"),
		),
		mcp.WithString("annotation",
			mcp.Required(),
			mcp.Description("The annotation, e.g. 'sensory neuron' or 'afferent > sensory neuron'"),
		),
		mcp.WithString("user",
			mcp.Required(),
			mcp.Description("Who is posting; checked against the permissions file"),
		),
		mcp.WithString("table",
			mcp.Description("Table to post to (default: try each configured table in order)"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Also post any parent annotations the segment is missing, top-level class first (default: server setting)"),
		),
	)
}

// Handle processes the anno_post tool call.
func (t *PostTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	recursive := t.a.Recursive()
	if _, ok := req.GetArguments()["recursive"]; ok {
		recursive = req.GetBool("recursive", recursive)
	}

	res, err := t.a.Post(ctx, PostRequest{
		Segment:    segment,
		Annotation: raw,
		User:       user,
		Table:      req.GetString("table", ""),
		Recursive:  recursive,
	})
	if err != nil {
		return result("", err)
	}
	return result(formatPost(segment, res), nil)
}

func formatPost(segment int64, res PostResult) string {
	if res.DryRun {
		msg := fmt.Sprintf("DRY RUN: would post %s to segment %d in table `%s`.", describePair(res.Pair), segment, res.Table)
		if len(res.Parents) > 0 {
			msg += "\nParents that would be posted first: " + describePairs(res.Parents)
		}
		return msg
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Upload to `%s` succeeded:\n", res.Table)
	fmt.Fprintf(&b, "- Segment %d\n", segment)
	fmt.Fprintf(&b, "- Annotation ID: %s\n", res.Record.ID)
	fmt.Fprintf(&b, "- Annotation: `%s`", res.Pair.Value)
	if res.Pair.Class != "" {
		fmt.Fprintf(&b, "\n- Annotation class: `%s`", res.Pair.Class)
	}
	if len(res.Parents) > 0 {
		fmt.Fprintf(&b, "\nMissing parents posted first: %s", describePairs(res.Parents))
	}
	return b.String()
}

func describePair(p annotations.Pair) string {
	if p.Class == "" {
		return fmt.Sprintf("`%s`", p.Value)
	}
	return fmt.Sprintf("`%s` (class `%s`)", p.Value, p.Class)
}

func describePairs(pairs []annotations.Pair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = describePair(p)
	}
	return strings.Join(parts, ", ")
}
