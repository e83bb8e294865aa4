// Package resources implements MCP resource handlers for the annotation
// tables.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (annobot://tables/...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
)

const tablePrefix = "annobot://tables/"

// TableInfo summarizes a table for hosts deciding what to post.
type TableInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Default     bool     `json:"default"`
	RootClasses []string `json:"root_classes,omitempty"`
	Labels      int      `json:"labels,omitempty"`
	Terms       []string `json:"terms,omitempty"`
}

// Handler serves the table resources.
type Handler struct {
	reg *rules.Registry
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(reg *rules.Registry) *Handler {
	return &Handler{reg: reg}
}

// TableURI returns the resource URI of a table.
func TableURI(name string) string { return tablePrefix + name }

// TableResources returns one resource definition per registered table.
func (h *Handler) TableResources() []mcp.Resource {
	names := h.reg.Names()
	out := make([]mcp.Resource, 0, len(names))
	for _, name := range names {
		out = append(out, mcp.NewResource(
			TableURI(name),
			fmt.Sprintf("Annotation table %s", name),
			mcp.WithResourceDescription("Kind, root classes and size of the "+name+" taxonomy"),
			mcp.WithMIMEType("application/json"),
		))
	}
	return out
}

// HandleTable returns a table summary as JSON.
func (h *Handler) HandleTable(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, ok := strings.CutPrefix(req.Params.URI, tablePrefix)
	if !ok {
		return errorResource(req.Params.URI, "not a table resource"), nil
	}
	table, err := h.reg.Table(name)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(h.describe(table), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling table %s: %w", name, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *Handler) describe(t *rules.Table) TableInfo {
	info := TableInfo{Name: t.Name, Kind: string(t.Kind), Default: t.Name == h.reg.DefaultTable()}
	if t.Kind == rules.KindList {
		info.Terms = t.Terms
		return info
	}
	info.RootClasses = t.Tree.RootClasses()
	info.Labels = len(t.Tree.Labels())
	return info
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
