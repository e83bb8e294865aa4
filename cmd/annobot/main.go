// annobot: annotation validation server for the BANC fly connectome.
//
// It checks cell annotations against the community taxonomy, enforces the
// top-down posting rules and records accepted annotations. Hosts talk to
// it over MCP; the remaining commands are for checking annotations from a
// shell.
//
// Usage:
//
//	annobot serve                      # Start MCP server (stdio transport)
//	annobot validate "sensory neuron"  # Check an annotation
//	annobot guess "motor neuron"       # Show the class of a bare label
//	annobot tree cell_info             # Print a table's taxonomy
//	annobot message "123?"             # Run a chat-style command
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jasper-tms/the-BANC-fly-connectome/internal/config"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/rules"
	annoserver "github.com/jasper-tms/the-BANC-fly-connectome/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configPath string
	tableName  string
	segmentID  string
	userName   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "annobot",
	Short: "Validate and post BANC cell annotations",
	Long: `annobot validates cell annotations against the BANC annotation taxonomy
and posts the ones that follow the rules.

Annotations are built from the top down: a segment must carry a class
before that class's subclasses can be posted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newLogger builds a JSON logger on stderr. Stdout carries the MCP stdio
// transport and must stay clean.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := annoserver.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stdio := server.NewStdioServer(s)
		return stdio.Listen(ctx, os.Stdin, os.Stdout)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <annotation>",
	Short: "Check an annotation without posting it",
	Long: `Check an annotation against a table's taxonomy. With --segment the posting
rules are also checked against that segment's current annotations.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := annoserver.OpenAnnotator(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		var segment int64
		if segmentID != "" {
			if segment, err = strconv.ParseInt(segmentID, 10, 64); err != nil || segment <= 0 {
				return fmt.Errorf("could not parse %q as a segment ID", segmentID)
			}
		}
		v, err := a.Validate(cmd.Context(), args[0], tableName, segment)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "valid for %s: %s\n", v.Table, v.Pair)
		return nil
	},
}

var guessCmd = &cobra.Command{
	Use:   "guess <label>",
	Short: "Show the class a bare annotation would be posted under",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := annoserver.OpenAnnotator(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		class, err := a.GuessClass(args[0], tableName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), class)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree [table]",
	Short: "Print the annotations a table accepts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := rules.Default()
		if err != nil {
			return err
		}
		name := reg.DefaultTable()
		if len(args) == 1 {
			name = args[0]
		}
		table, err := reg.Table(name)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if table.Kind == rules.KindList {
			for _, term := range table.Terms {
				fmt.Fprintln(out, term)
			}
			return nil
		}
		return table.Tree.Render(out)
	},
}

var messageCmd = &cobra.Command{
	Use:   "message <text>",
	Short: "Run a chat-style command, e.g. \"720575941535411994!sensory neuron\"",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := annoserver.OpenAnnotator(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		reply, err := a.Message(cmd.Context(), strings.Join(args, " "), userName)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "annobot v%s\n", annoserver.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.annobot/config.yaml)")

	validateCmd.Flags().StringVarP(&tableName, "table", "t", "", "Table to check against (default: the default table)")
	validateCmd.Flags().StringVarP(&segmentID, "segment", "s", "", "Also check the posting rules for this segment")
	guessCmd.Flags().StringVarP(&tableName, "table", "t", "", "Table whose taxonomy to use")
	messageCmd.Flags().StringVarP(&userName, "user", "u", os.Getenv("USER"), "Who is sending the message")

	rootCmd.AddCommand(serveCmd, validateCmd, guessCmd, treeCmd, messageCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
