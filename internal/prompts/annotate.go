// Package prompts implements MCP prompt handlers for annotating segments.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AnnotatePrompt handles the annotate-segment MCP prompt.
// It walks the AI through labeling one segment from the top of the
// hierarchy down.
type AnnotatePrompt struct{}

// NewAnnotatePrompt creates an AnnotatePrompt.
func NewAnnotatePrompt() *AnnotatePrompt {
	return &AnnotatePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AnnotatePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("annotate-segment",
		mcp.WithPromptDescription(
			"Annotate a segment step by step. Shows what it already has, "+
				"then posts new annotations from the top-level class down.",
		),
		mcp.WithArgument("segment_id",
			mcp.ArgumentDescription("The segment to annotate"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the annotate-segment prompt request.
func (p *AnnotatePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	segment := req.Params.Arguments["segment_id"]
	if segment == "" {
		return nil, fmt.Errorf("segment_id is required")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Annotate segment %s", segment),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to annotate segment %[1]s.\n\n"+
						"Please:\n"+
						"1. Run `anno_list` with segment_id='%[1]s' to see what it already has\n"+
						"2. Run `anno_tree` so we both know which annotations exist\n"+
						"3. Ask me what I know about the cell\n"+
						"4. Check each annotation with `anno_validate` and segment_id='%[1]s' before posting it\n"+
						"5. Post with `anno_post`, top-level class first. If a post is rejected, follow the suggestion in the error\n\n"+
						"Pass the segment ID as a string, never as a number.",
					segment,
				)),
			},
		},
	}, nil
}
