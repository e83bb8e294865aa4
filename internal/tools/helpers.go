// Package tools implements the MCP tool handlers for annotating segments.
//
// Each tool is a struct that receives its dependencies at construction
// and exposes Definition (for registration) and Handle (the mcp-go
// handler). The tools are thin: parsing arguments and formatting text.
// The work happens in the shared Annotator.
//
// Rule violations, permission problems and unknown annotations are the
// caller's to fix, so they come back as tool errors. Anything else is
// returned as a Go error.
package tools

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

// userError is a failure the caller can fix.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

func userErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// userMessage renders err for the caller if it is one they can act on.
func userMessage(err error) (string, bool) {
	var (
		ue      *userError
		noTable *NoValidTableError
	)
	switch {
	case errors.As(err, &noTable):
		return "ERROR: " + noTable.Error(), true
	case annotations.IsRuleError(err):
		msg := "ERROR: " + err.Error()
		if s := annotations.Suggest(err); s != "" {
			msg += "\nSuggestion: " + s
		}
		return msg, true
	case errors.As(err, &ue):
		return "ERROR: " + ue.msg, true
	case errors.Is(err, store.ErrNotFound):
		return "ERROR: " + err.Error(), true
	}
	return "", false
}

// result converts an outcome into what mcp-go expects.
func result(text string, err error) (*mcp.CallToolResult, error) {
	if err == nil {
		return mcp.NewToolResultText(text), nil
	}
	if msg, ok := userMessage(err); ok {
		return mcp.NewToolResultError(msg), nil
	}
	return nil, err
}

// maxExactFloat is the largest integer a JSON number (float64) holds exactly.
const maxExactFloat = 1 << 53

// segmentArg reads a segment ID. Segment IDs exceed float64 precision, so
// they should arrive as strings; small numeric values are accepted too.
func segmentArg(req mcp.CallToolRequest, key string) (int64, error) {
	switch v := req.GetArguments()[key].(type) {
	case nil:
		return 0, userErrorf("'%s' is required", key)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			return 0, userErrorf("could not parse %q as a segment ID", v)
		}
		return id, nil
	case float64:
		if v <= 0 || v != math.Trunc(v) {
			return 0, userErrorf("could not parse %v as a segment ID", v)
		}
		if v > maxExactFloat {
			return 0, userErrorf("'%s' is too large to pass as a number; pass it as a string", key)
		}
		return int64(v), nil
	default:
		return 0, userErrorf("'%s' must be a string", key)
	}
}

// requiredString reads a non-blank string argument.
func requiredString(req mcp.CallToolRequest, key string) (string, error) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", userErrorf("'%s' is required", key)
	}
	return v, nil
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
