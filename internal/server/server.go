// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the concrete rules registry,
// store, permissions and metrics and injects them into the tools, prompts
// and resources that depend on them. No annotation logic lives here.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/config"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/metrics"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/prompts"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/resources"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/store"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// tool is what every handler in the tools package provides.
type tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the annotation database and stops
// the metrics endpoint, and must be called on shutdown (typically via
// defer). It is always non-nil.
func New(cfg config.Config, logger *zap.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := metrics.New()
	annotator, closeStore, err := OpenAnnotator(cfg, m, logger)
	if err != nil {
		return nil, noop, err
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"annobot",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register annotation tools ---

	for _, t := range []tool{
		tools.NewValidateTool(annotator),
		tools.NewGuessClassTool(annotator),
		tools.NewPostTool(annotator),
		tools.NewDeleteTool(annotator),
		tools.NewListTool(annotator),
		tools.NewFindTool(annotator),
		tools.NewTreeTool(annotator),
		tools.NewStatsTool(annotator),
		tools.NewMessageTool(annotator),
	} {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Register prompts ---

	annotatePrompt := prompts.NewAnnotatePrompt()
	s.AddPrompt(annotatePrompt.Definition(), annotatePrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(annotator.Registry())
	for _, r := range resourceHandler.TableResources() {
		s.AddResource(r, resourceHandler.HandleTable)
	}

	// --- Metrics endpoint ---

	stopMetrics := noop
	if cfg.MetricsAddr != "" {
		stopMetrics = serveMetrics(m.NewServer(cfg.MetricsAddr), logger)
	}

	logger.Info("annotation server ready",
		zap.String("data_dir", cfg.DataDir),
		zap.Strings("tables", annotator.Tables()),
		zap.Bool("dry_run", cfg.DryRun),
	)

	cleanup := func() {
		stopMetrics()
		closeStore()
	}
	return s, cleanup, nil
}

// OpenAnnotator loads the rules, permissions and store named by cfg and
// returns an Annotator over them. The returned function closes the store.
// m may be nil.
func OpenAnnotator(cfg config.Config, m *metrics.Metrics, logger *zap.Logger) (*tools.Annotator, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg, err := rules.Default()
	if err != nil {
		return nil, noop, fmt.Errorf("loading annotation rules: %w", err)
	}

	perms, err := config.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return nil, noop, err
	}
	if perms == nil {
		logger.Warn("no permissions file configured; every user may post to every table")
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("opening annotation store: %w", err)
	}

	annotator, err := tools.NewAnnotator(reg, st, perms, tools.Options{
		Tables:       cfg.Tables,
		DefaultTable: cfg.DefaultTable,
		DryRun:       cfg.DryRun,
		Recursive:    cfg.RecursivePosts,
	}, m, logger)
	if err != nil {
		_ = st.Close()
		return nil, noop, fmt.Errorf("configuring annotator: %w", err)
	}

	closeStore := func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing annotation store", zap.Error(err))
		}
	}
	return annotator, closeStore, nil
}

// serveMetrics runs srv in the background and returns a function that
// shuts it down.
func serveMetrics(srv *http.Server, logger *zap.Logger) func() {
	go func() {
		logger.Info("serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("stopping metrics endpoint", zap.Error(err))
		}
	}
}

// noop is the cleanup returned when New fails.
func noop() {}

func serverInstructions() string {
	return `You have access to annobot, which validates and posts cell annotations
for segments of the BANC fly connectome.

## HOW ANNOTATIONS WORK

Each table accepts annotations from a fixed taxonomy. Hierarchy tables take
(class, value) pairs; list tables take single tags. Write a pair as
"class: value", "class > value" or "class, value", or give just the value
and let the class be guessed (anno_guess_class shows the guess).

Annotations are built from the top down. A segment must carry a class
before that class's subclasses can be posted:
1. "afferent" (class "primary class") first
2. then "sensory neuron" (class "afferent")
3. then its subtypes

Most classes allow one value per segment. Posting the same pair twice is
rejected.

## TOOLS

- anno_validate: check an annotation (and optionally a segment) without posting
- anno_guess_class: show which class a bare label belongs to
- anno_post: post an annotation; without a table it goes to the first table it is valid for
- anno_delete: delete an annotation; delete subclasses before their class
- anno_list: a segment's annotations
- anno_find: segments carrying an annotation
- anno_tree: the taxonomy of a table
- anno_stats: how much each table holds
- anno_message: run a chat-style command such as "720575941535411994!sensory neuron"

## RULES FOR YOU

- Pass segment IDs as strings. They are too large for JSON numbers.
- When a post is rejected, read the Suggestion line and act on it instead
  of retrying the same annotation.
- Use anno_validate with segment_id before posting when unsure.
- Never invent annotation labels; use anno_tree or the annobot://tables
  resources to find the right one.`
}
