package workflow

import (
	"fmt"
	"strings"
)

// ConnectivityError describes one structural problem with a graph's wiring.
type ConnectivityError struct {
	Edge    *Edge
	Message string
}

func (e ConnectivityError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("edge %s -> %s: %s", e.Edge.From, e.Edge.To, e.Message)
	}
	return e.Message
}

// PortConnectivityError aggregates every connectivity problem found in a
// graph. A graph that produces one must never reach the execution engine.
type PortConnectivityError struct {
	Graph string
	Errs  []ConnectivityError
}

func (e *PortConnectivityError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, ce := range e.Errs {
		msgs[i] = ce.Error()
	}
	return fmt.Sprintf("graph %q connectivity check failed:\n  %s", e.Graph, strings.Join(msgs, "\n  "))
}

// Validate checks a graph's wiring for structural correctness and returns
// all discovered problems (not just the first):
//
//   - every edge source resolves to an outer input or a sub-workflow output
//   - every edge target resolves to an outer output or a sub-workflow input
//   - source and target carry the same payload kind
//   - no target port receives more than one incoming edge
func Validate(g *Graph) []ConnectivityError {
	var errs []ConnectivityError

	seen := make(map[Endpoint]bool)
	for _, e := range g.Edges {
		src, srcErr := resolveSource(g, e)
		dst, dstErr := resolveTarget(g, e)
		if srcErr != nil {
			errs = append(errs, *srcErr)
		}
		if dstErr != nil {
			errs = append(errs, *dstErr)
		}
		if srcErr != nil || dstErr != nil {
			continue
		}

		if src.Kind != dst.Kind {
			errs = append(errs, ConnectivityError{
				Edge:    e,
				Message: fmt.Sprintf("payload kind mismatch: %q feeds %q", src.Kind, dst.Kind),
			})
		}
		if seen[e.To] {
			errs = append(errs, ConnectivityError{
				Edge:    e,
				Message: fmt.Sprintf("target port %s already has an incoming edge", e.To),
			})
		}
		seen[e.To] = true
	}

	return errs
}

// ValidateErr calls Validate and returns nil, or a single
// *PortConnectivityError carrying every problem found.
func ValidateErr(g *Graph) error {
	errs := Validate(g)
	if len(errs) == 0 {
		return nil
	}
	return &PortConnectivityError{Graph: g.Name, Errs: errs}
}

func resolveSource(g *Graph, e *Edge) (Port, *ConnectivityError) {
	if e.From.Node == "" {
		p, ok := g.outerInput(e.From.Port)
		if !ok {
			return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("unknown outer input port %q", e.From.Port)}
		}
		return p, nil
	}
	sw, ok := g.Node(e.From.Node)
	if !ok {
		return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("unknown source node %q", e.From.Node)}
	}
	p, ok := sw.Output(e.From.Port)
	if !ok {
		return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("node %q declares no output port %q", e.From.Node, e.From.Port)}
	}
	return p, nil
}

func resolveTarget(g *Graph, e *Edge) (Port, *ConnectivityError) {
	if e.To.Node == "" {
		p, ok := g.outerOutput(e.To.Port)
		if !ok {
			return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("unknown outer output port %q", e.To.Port)}
		}
		return p, nil
	}
	sw, ok := g.Node(e.To.Node)
	if !ok {
		return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("unknown target node %q", e.To.Node)}
	}
	p, ok := sw.Input(e.To.Port)
	if !ok {
		return Port{}, &ConnectivityError{Edge: e, Message: fmt.Sprintf("node %q declares no input port %q", e.To.Node, e.To.Port)}
	}
	return p, nil
}
