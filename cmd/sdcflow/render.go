package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ravi-parthasarathy/sdcflow/internal/planfile"
	"github.com/ravi-parthasarathy/sdcflow/pkg/fieldmap"
	"github.com/ravi-parthasarathy/sdcflow/pkg/workflow"
)

// renderDecision summarises what the policy chose for a plan.
func renderDecision(plan *planfile.Plan, dec fieldmap.Decision) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Plan: %s\n", plan.Name)
	switch {
	case dec.Bypass:
		fmt.Fprintf(&sb, "Strategy: none (no field maps; inputs forwarded untouched)\n")
	case dec.PrimaryType == fieldmap.TypeSyn:
		fmt.Fprintf(&sb, "Strategy: %s (fieldmap-less)\n", dec.PrimaryType)
	default:
		fmt.Fprintf(&sb, "Strategy: %s (%d descriptor(s))\n", dec.PrimaryType, len(dec.Primary))
	}
	if dec.SupplementarySyn {
		fmt.Fprintf(&sb, "Supplementary SyN: yes (report only)\n")
	}
	return sb.String()
}

// renderText produces the human-readable graph summary.
func renderText(g *workflow.Graph) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\nGraph: %s  (%d subworkflows, %d edges)\n",
		g.Name, len(g.Subworkflows), len(g.Edges))
	if g.StrategyLabel != "" {
		fmt.Fprintf(&sb, "Method: %s\n", g.StrategyLabel)
	}

	if len(g.Subworkflows) > 0 {
		// Calculate column widths.
		maxNameLen := 4 // minimum "node"
		for _, sw := range g.Subworkflows {
			if len(sw.Name) > maxNameLen {
				maxNameLen = len(sw.Name)
			}
		}

		fmt.Fprintf(&sb, "\nSubworkflows:\n")
		for _, sw := range g.Subworkflows {
			// Sort param keys for determinism.
			keys := make([]string, 0, len(sw.Params))
			for k := range sw.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var parts []string
			for _, k := range keys {
				parts = append(parts, k+"="+truncate(sw.Params[k], 60))
			}
			fmt.Fprintf(&sb, "  %-*s  %-16s  %s\n",
				maxNameLen, sw.Name, sw.Strategy, strings.Join(parts, " "))
		}
	}

	fmt.Fprintf(&sb, "\nEdges:\n")
	maxFromLen := 4
	for _, e := range g.Edges {
		if len(e.From.String()) > maxFromLen {
			maxFromLen = len(e.From.String())
		}
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %-*s  →  %s\n", maxFromLen, e.From.String(), e.To.String())
	}

	return sb.String()
}

// truncate shortens s to maxLen chars, appending "…" if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
