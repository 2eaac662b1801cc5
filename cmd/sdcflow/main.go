package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/sdcflow/internal/planfile"
	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
	"github.com/ravi-parthasarathy/sdcflow/pkg/sdc"
	"github.com/ravi-parthasarathy/sdcflow/pkg/workflow"
	"github.com/ravi-parthasarathy/sdcflow/pkg/workflow/builders"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "sdcflow",
		Short: "sdcflow — susceptibility-distortion-correction planner",
		Long: `sdcflow picks a susceptibility-distortion-correction strategy for a
functional run and assembles the matching workflow graph.

Field maps found in the plan are ranked pepolar > fieldmap > phasediff > syn;
the --use-syn / --force-syn equivalents live in the plan file. The assembled
graph exposes the same outer ports whichever strategy wins.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initLogger(logLevel, logFormat)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.AddCommand(planCmd())
	root.AddCommand(lintCmd())
	root.AddCommand(graphCmd())
	return root
}

// initLogger installs the process-wide slog handler.
func initLogger(level, format string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// assemble runs the full selection + assembly path for one plan file.
func assemble(path string) (*planfile.Plan, fieldmap.Decision, *workflow.Graph, error) {
	plan, err := planfile.Load(path)
	if err != nil {
		return nil, fieldmap.Decision{}, nil, err
	}

	descs, skipped, err := plan.Descriptors()
	if err != nil {
		return nil, fieldmap.Decision{}, nil, err
	}
	for _, typ := range skipped {
		slog.Warn("ignoring fieldmap of unrecognized type", "type", typ)
	}

	tie, err := plan.TieBreak()
	if err != nil {
		return nil, fieldmap.Decision{}, nil, err
	}

	dec, err := fieldmap.Select(descs, plan.UseSyn, plan.ForceSyn, tie)
	if err != nil {
		return nil, fieldmap.Decision{}, nil, fmt.Errorf("select strategy: %w", err)
	}

	g, err := sdc.Build(plan.BuildInputs(), dec, builders.New(), slog.Default())
	if err != nil {
		return nil, fieldmap.Decision{}, nil, fmt.Errorf("assemble graph: %w", err)
	}
	return plan, dec, g, nil
}

// ─── plan ─────────────────────────────────────────────────────────────────────

func planCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plan <plan.hcl>",
		Short: "Select a correction strategy and print the assembled graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			plan, dec, g, err := assemble(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "dot":
				fmt.Print(workflow.RenderDOT(g))
			case "text", "":
				fmt.Print(renderDecision(plan, dec))
				fmt.Print(renderText(g))
			default:
				return fmt.Errorf("unknown format %q: use text or dot", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or dot")
	return cmd
}

// ─── lint ─────────────────────────────────────────────────────────────────────

func lintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint <plan.hcl>",
		Short: "Validate a plan file and its assembled graph without printing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, _, g, err := assemble(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("OK: graph %q is valid (%d subworkflows, %d edges)\n",
				g.Name, len(g.Subworkflows), len(g.Edges))
			return nil
		},
	}
	return cmd
}

// ─── graph ────────────────────────────────────────────────────────────────────

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <plan.hcl>",
		Short: "Emit the assembled graph as canonical DOT",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			_, _, g, err := assemble(args[0])
			if err != nil {
				return err
			}
			dot := workflow.RenderDOT(g)
			// Round-trip through the parser so malformed output never ships.
			if _, err := workflow.ParseDOT(dot); err != nil {
				return fmt.Errorf("rendered DOT failed to re-parse: %w", err)
			}
			fmt.Print(dot)
			return nil
		},
	}
	return cmd
}
