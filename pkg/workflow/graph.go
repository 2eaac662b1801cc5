// Package workflow holds the composed-graph model: ports, opaque
// sub-workflow handles, data-dependency edges, and their validation.
// Construction is pure; executing the graph belongs to an external engine.
package workflow

import "fmt"

// Kind is an opaque payload tag used only for connectivity validation.
type Kind string

const (
	KindImage        Kind = "image"
	KindMask         Kind = "mask"
	KindFieldmap     Kind = "fieldmap"
	KindWarp         Kind = "warp"
	KindTransform    Kind = "transform"
	KindSegmentation Kind = "segmentation"
	KindReport       Kind = "report"
	KindIdentifier   Kind = "identifier"
)

// Direction distinguishes input from output ports.
type Direction string

const (
	DirIn  Direction = "in"
	DirOut Direction = "out"
)

// Port is a named, directed attachment point on a graph node.
type Port struct {
	Name string
	Dir  Direction
	Kind Kind
}

// In declares an input port.
func In(name string, kind Kind) Port { return Port{Name: name, Dir: DirIn, Kind: kind} }

// Out declares an output port.
func Out(name string, kind Kind) Port { return Port{Name: name, Dir: DirOut, Kind: kind} }

// Subworkflow is an opaque handle for an externally implemented sub-pipeline.
// The assembler never looks past its declared ports; Params are annotations
// (thread budget, source files, options) the executor and the external
// implementation interpret.
type Subworkflow struct {
	Name     string
	Strategy string
	Params   map[string]string
	Inputs   []Port
	Outputs  []Port
}

// Input returns the declared input port with the given name.
func (s *Subworkflow) Input(name string) (Port, bool) {
	for _, p := range s.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Output returns the declared output port with the given name.
func (s *Subworkflow) Output(name string) (Port, bool) {
	for _, p := range s.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Endpoint addresses one port. An empty Node means the graph's own boundary:
// an outer input when used as an edge source, an outer output as a target.
type Endpoint struct {
	Node string
	Port string
}

func (e Endpoint) String() string {
	if e.Node == "" {
		return e.Port
	}
	return e.Node + "." + e.Port
}

// Edge is a directed data dependency between two ports.
type Edge struct {
	From Endpoint
	To   Endpoint
}

// Graph is a composed workflow: fixed outer ports, attached sub-workflows,
// and the edge list wiring them together. It is built once and never mutated
// after assembly completes.
type Graph struct {
	Name string
	// StrategyLabel describes the chosen correction method in human terms.
	// Set exactly once during assembly; empty on the bypass branch.
	StrategyLabel string
	Inputs        []Port
	Outputs       []Port
	Subworkflows  []*Subworkflow
	Edges         []*Edge

	byName map[string]*Subworkflow
}

// New creates an empty graph with the given outer port declarations.
func New(name string, inputs, outputs []Port) *Graph {
	return &Graph{
		Name:    name,
		Inputs:  inputs,
		Outputs: outputs,
		byName:  make(map[string]*Subworkflow),
	}
}

// Attach adds a sub-workflow node. Names must be unique within the graph.
func (g *Graph) Attach(sw *Subworkflow) error {
	if sw == nil || sw.Name == "" {
		return fmt.Errorf("subworkflow must be non-nil and named")
	}
	if _, ok := g.byName[sw.Name]; ok {
		return fmt.Errorf("duplicate subworkflow name %q", sw.Name)
	}
	g.byName[sw.Name] = sw
	g.Subworkflows = append(g.Subworkflows, sw)
	return nil
}

// Node returns the attached sub-workflow with the given name.
func (g *Graph) Node(name string) (*Subworkflow, bool) {
	sw, ok := g.byName[name]
	return sw, ok
}

// Connect appends a data-dependency edge. Endpoints are resolved lazily:
// structural problems are reported by Validate, not here, so a branch can be
// wired in full and checked once.
func (g *Graph) Connect(from, to Endpoint) {
	g.Edges = append(g.Edges, &Edge{From: from, To: to})
}

// IncomingEdges returns all edges arriving at the given node ("" for the
// outer boundary), in wiring order.
func (g *Graph) IncomingEdges(node string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.To.Node == node {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns all edges leaving the given node, in wiring order.
func (g *Graph) OutgoingEdges(node string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.From.Node == node {
			out = append(out, e)
		}
	}
	return out
}

// outerInput returns the outer input port with the given name.
func (g *Graph) outerInput(name string) (Port, bool) {
	for _, p := range g.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// outerOutput returns the outer output port with the given name.
func (g *Graph) outerOutput(name string) (Port, bool) {
	for _, p := range g.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
