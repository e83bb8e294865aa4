package tools

import (
	"context"
	"errors"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/command"
	"github.com/mark3labs/mcp-go/mcp"
)

// HelpText answers "help" messages.
const HelpText = `Send me one of:
- <segment ID>?  to list a segment's annotations (?? for details)
- <segment ID>!<annotation>  to post an annotation, e.g. 720575941535411994!sensory neuron
- <segment ID>-<annotation>  to delete an annotation
- findids <annotation>  to list segments with an annotation (join several with "and")
- findnum <annotation>  to count them

Annotations are posted from the top down: a class has to be on the segment before its subclasses can be.
The list of available annotations is at ` + annotations.HelpURL

// MessageTool handles the anno_message MCP tool: a chat message in the
// bot's short syntax, dispatched to the matching operation.
type MessageTool struct {
	a *Annotator
}

// NewMessageTool creates a MessageTool.
func NewMessageTool(a *Annotator) *MessageTool {
	return &MessageTool{a: a}
}

// Definition returns the MCP tool definition for anno_message.
func (t *MessageTool) Definition() mcp.Tool {
	return mcp.NewTool("anno_message",
		mcp.WithDescription(
			"Run a chat-style annotation command, e.g. '720575941535411994?', '720575941535411994!sensory neuron', "+
				"'720575941535411994-sensory neuron', 'findids sensory neuron', 'findnum sensory neuron' or 'help'.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message text"),
		),
		mcp.WithString("user",
			mcp.Description("Who sent the message; required to post or delete"),
		),
	)
}

// Handle processes the anno_message tool call.
func (t *MessageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := requiredString(req, "message")
	if err != nil {
		return result("", err)
	}
	return result(t.a.Message(ctx, msg, req.GetString("user", "")))
}

// Message parses a chat message and carries it out.
func (a *Annotator) Message(ctx context.Context, msg, user string) (string, error) {
	cmd, err := command.Parse(msg)
	if err != nil {
		var pe *command.ParseError
		if errors.As(err, &pe) {
			return "", userErrorf("%s", pe.Reason)
		}
		return "", err
	}

	if (cmd.Op == command.OpPost || cmd.Op == command.OpDelete) && user == "" {
		return "", userErrorf("'user' is required to %s annotations", cmd.Op)
	}

	switch cmd.Op {
	case command.OpHelp:
		return HelpText, nil
	case command.OpQuery:
		recs, err := a.List(ctx, cmd.Segment, "")
		if err != nil {
			return "", err
		}
		return formatList(recs, cmd.Details), nil
	case command.OpPost:
		res, err := a.Post(ctx, PostRequest{Segment: cmd.Segment, Annotation: cmd.Annotation, User: user, Recursive: a.recursive})
		if err != nil {
			return "", err
		}
		return formatPost(cmd.Segment, res), nil
	case command.OpDelete:
		res, err := a.Delete(ctx, DeleteRequest{Segment: cmd.Segment, Annotation: cmd.Annotation, User: user})
		if err != nil {
			return "", err
		}
		return formatDelete(res), nil
	case command.OpFindIDs, command.OpFindCount:
		ids, err := a.Find(ctx, cmd.Annotation, "")
		if err != nil {
			return "", err
		}
		return formatFind(ids, cmd.Op == command.OpFindCount), nil
	default:
		return "", userErrorf("unsupported command %s", cmd.Op)
	}
}
