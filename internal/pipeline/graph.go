package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidGraph is returned when a graph is run with an unknown entry node,
// an edge to a missing node, or a cycle.
var ErrInvalidGraph = errors.New("invalid graph")

// Node mutates the shared state.
type Node[S any] func(ctx context.Context, state *S) error

// Graph is a linear chain of named nodes over a state value. Each node has at
// most one successor.
type Graph[S any] struct {
	nodes map[string]Node[S]
	edges map[string]string
	entry string
}

// NewGraph creates an empty graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{nodes: make(map[string]Node[S]), edges: make(map[string]string)}
}

// AddNode registers a node under name.
func (g *Graph[S]) AddNode(name string, fn Node[S]) *Graph[S] {
	g.nodes[name] = fn
	return g
}

// AddEdge makes to run after from.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = to
	return g
}

// SetEntry sets the first node.
func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.entry = name
	return g
}

// Order returns the node names in execution order, or an error when the
// graph is not runnable.
func (g *Graph[S]) Order() ([]string, error) {
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("%w: unknown entry node %q", ErrInvalidGraph, g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, from)
		}
		if _, ok := g.nodes[to]; !ok {
			return nil, fmt.Errorf("%w: edge %q -> unknown node %q", ErrInvalidGraph, from, to)
		}
	}

	var order []string
	seen := make(map[string]bool)
	for name := g.entry; name != ""; name = g.edges[name] {
		if seen[name] {
			return nil, fmt.Errorf("%w: cycle at node %q", ErrInvalidGraph, name)
		}
		seen[name] = true
		order = append(order, name)
	}
	return order, nil
}

// Run executes the nodes in edge order, stopping at the first error, which is
// wrapped with the node name.
func (g *Graph[S]) Run(ctx context.Context, state *S) error {
	order, err := g.Order()
	if err != nil {
		return err
	}
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.nodes[name](ctx, state); err != nil {
			return fmt.Errorf("node %s: %w", name, err)
		}
	}
	return nil
}
