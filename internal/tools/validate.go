package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ValidateTool handles the anno_validate MCP tool.
type ValidateTool struct {
	a *Annotator
}

// NewValidateTool creates a ValidateTool.
func NewValidateTool(a *Annotator) *ValidateTool {
	return &ValidateTool{a: a}
}

// Definition returns the MCP tool definition for anno_validate.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_validate",
		mcp.WithDescription(
			"Check whether an annotation is valid for a table, without posting it. "+
				"Accepts 'value', 'class: value', 'class > value' or 'class, value'. "+
				"Give segment_id to also check the posting rules against that segment's current annotations.",
		),
		mcp.WithString("annotation",
			mcp.Required(),
			mcp.Description("The annotation, e.g. 'sensory neuron' or 'primary class: afferent'"),
		),
		mcp.WithString("table",
			mcp.Description("Table to validate against (default: the default table)"),
		),
		mcp.WithString("segment_id",
			mcp.Description("Optional segment ID, as a string"),
		),
	)
}

// Handle processes the anno_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := requiredString(req, "annotation")
	if err != nil {
		return result("", err)
	}
	var segment int64
	if _, ok := req.GetArguments()["segment_id"]; ok {
		if segment, err = segmentArg(req, "segment_id"); err != nil {
			return result("", err)
		}
	}

	v, err := t.a.Validate(ctx, raw, req.GetString("table", ""), segment)
	if err != nil {
		return result("", err)
	}
	msg := fmt.Sprintf("Valid for `%s`: %s", v.Table, describePair(v.Pair))
	if v.Checked {
		msg += fmt.Sprintf("\nSegment %d may be annotated with it.", segment)
	}
	return result(msg, nil)
}

// GuessClassTool handles the anno_guess_class MCP tool.
type GuessClassTool struct {
	a *Annotator
}

// NewGuessClassTool creates a GuessClassTool.
func NewGuessClassTool(a *Annotator) *GuessClassTool {
	return &GuessClassTool{a: a}
}

// Definition returns the MCP tool definition for anno_guess_class.
func (t *GuessClassTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_guess_class",
		mcp.WithDescription(
			"Return the class a bare annotation would be posted under. "+
				"Fails if the label is unknown, is a top-level class, or occurs under several classes.",
		),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("The annotation label, e.g. 'sensory neuron'"),
		),
		mcp.WithString("table",
			mcp.Description("Table whose taxonomy to use (default: the default table)"),
		),
	)
}

// Handle processes the anno_guess_class tool call.
func (t *GuessClassTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := requiredString(req, "label")
	if err != nil {
		return result("", err)
	}
	class, err := t.a.GuessClass(label, req.GetString("table", ""))
	if err != nil {
		return result("", err)
	}
	return result(fmt.Sprintf("%q has class %q", label, class), nil)
}
