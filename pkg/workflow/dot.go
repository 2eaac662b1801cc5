package workflow

import (
	"fmt"
	"sort"
	"strings"

	gographviz "github.com/awalterschulze/gographviz"
)

// Graphs are exchanged with other tooling as Graphviz DOT: RenderDOT emits a
// canonical digraph with one node per sub-workflow plus the two boundary
// pseudo-nodes, and ParseDOT reads such a digraph back into a flat summary.

const (
	// boundaryInputs and boundaryOutputs are the pseudo-node names that
	// stand in for the graph's outer boundary in DOT output.
	boundaryInputs  = "inputs"
	boundaryOutputs = "outputs"
)

// RenderDOT produces a canonical DOT digraph string for a composed graph.
// Output is deterministic: sub-workflows in attach order, attributes sorted.
func RenderDOT(g *Graph) string {
	var sb strings.Builder

	name := g.Name
	if name == "" {
		name = "workflow"
	}
	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(name))
	if g.StrategyLabel != "" {
		fmt.Fprintf(&sb, "    graph [strategy_label=%s]\n", dotQuote(g.StrategyLabel))
	}

	fmt.Fprintf(&sb, "    %s [type=boundary ports=%s]\n",
		boundaryInputs, dotQuote(portNames(g.Inputs)))
	for _, sw := range g.Subworkflows {
		var parts []string
		parts = append(parts, "type="+dotQuote(sw.Strategy))

		keys := make([]string, 0, len(sw.Params))
		for k := range sw.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+dotQuote(sw.Params[k]))
		}
		fmt.Fprintf(&sb, "    %s [%s]\n", dotQuote(sw.Name), strings.Join(parts, " "))
	}
	fmt.Fprintf(&sb, "    %s [type=boundary ports=%s]\n",
		boundaryOutputs, dotQuote(portNames(g.Outputs)))

	for _, e := range g.Edges {
		from, to := boundaryInputs, boundaryOutputs
		if e.From.Node != "" {
			from = e.From.Node
		}
		if e.To.Node != "" {
			to = e.To.Node
		}
		label := e.From.Port + " -> " + e.To.Port
		fmt.Fprintf(&sb, "    %s -> %s [label=%s]\n", dotQuote(from), dotQuote(to), dotQuote(label))
	}

	fmt.Fprintf(&sb, "}\n")
	return sb.String()
}

func portNames(ports []Port) string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

// dotQuote returns the value as a DOT-safe string, quoting if necessary.
func dotQuote(s string) string {
	needsQuote := s == "" ||
		strings.ContainsAny(s, " \t\n\\\"{}[]<>=;,-.")
	if needsQuote {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}

// DOTEdge is one edge of a parsed DOT summary.
type DOTEdge struct {
	From  string
	To    string
	Label string
}

// DOTGraph is the flat form of a parsed DOT digraph: node attribute maps and
// edges in definition order. It deliberately does not reconstruct a *Graph;
// port declarations are not round-trippable from DOT attributes alone.
type DOTGraph struct {
	Name       string
	GraphAttrs map[string]string
	Nodes      map[string]map[string]string
	Edges      []DOTEdge
}

// ParseDOT parses a Graphviz DOT string into a DOTGraph.
func ParseDOT(src string) (*DOTGraph, error) {
	graphAst, err := gographviz.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("dot parse error: %w", err)
	}

	// A permissive collector: accepts any attribute name without the strict
	// validation that gographviz.Graph performs.
	collector := newDOTCollector()
	if err := gographviz.Analyse(graphAst, collector); err != nil {
		return nil, fmt.Errorf("dot analyse error: %w", err)
	}

	d := &DOTGraph{
		Name:       collector.name,
		GraphAttrs: collector.graphAttrs,
		Nodes:      make(map[string]map[string]string),
	}
	for id, attrs := range collector.nodes {
		nodeCopy := make(map[string]string, len(attrs))
		for k, v := range attrs {
			nodeCopy[k] = v
		}
		d.Nodes[id] = nodeCopy
	}
	d.Edges = append(d.Edges, collector.edges...)
	return d, nil
}

// ─── permissive DOT collector ─────────────────────────────────────────────────

// dotCollector implements gographviz.Interface without attribute validation.
type dotCollector struct {
	name       string
	nodes      map[string]map[string]string // id → attrs
	edges      []DOTEdge
	graphAttrs map[string]string
}

func newDOTCollector() *dotCollector {
	return &dotCollector{
		nodes:      make(map[string]map[string]string),
		graphAttrs: make(map[string]string),
	}
}

func (c *dotCollector) SetStrict(_ bool) error { return nil }
func (c *dotCollector) SetDir(_ bool) error    { return nil }
func (c *dotCollector) SetName(n string) error { c.name = unquote(n); return nil }
func (c *dotCollector) String() string         { return c.name }

func (c *dotCollector) AddNode(_ string, name string, attrs map[string]string) error {
	id := unquote(name)
	if _, ok := c.nodes[id]; !ok {
		c.nodes[id] = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		c.nodes[id][k] = unquote(v)
	}
	return nil
}

func (c *dotCollector) AddEdge(src, dst string, _ bool, attrs map[string]string) error {
	lbl := ""
	if v, ok := attrs["label"]; ok {
		lbl = unquote(v)
	}
	c.edges = append(c.edges, DOTEdge{From: unquote(src), To: unquote(dst), Label: lbl})
	return nil
}

func (c *dotCollector) AddPortEdge(src, _, dst, _ string, directed bool, attrs map[string]string) error {
	return c.AddEdge(src, dst, directed, attrs)
}

func (c *dotCollector) AddAttr(_ string, field, value string) error {
	c.graphAttrs[field] = unquote(value)
	return nil
}

func (c *dotCollector) AddSubGraph(_, _ string, _ map[string]string) error { return nil }

// unquote strips surrounding double-quotes from a DOT attribute value.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
