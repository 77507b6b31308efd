package graph

import (
	"errors"
	"fmt"

	"github.com/gammazero/toposort"
)

// ErrCycle is returned by CheckAcyclic when the edges form a cycle.
var ErrCycle = errors.New("dependency cycle")

// CheckAcyclic reports whether the valid edges of g form a DAG.
// The scheduler itself never calls this: a cycle only leaves the affected
// tasks locked forever. Stage validation uses it to catch authoring mistakes.
func (g *Graph) CheckAcyclic() error {
	return CheckEdges(g.edges)
}

// CheckEdges runs a topological sort over edges and wraps any failure in
// ErrCycle. Self-loops count as cycles.
func CheckEdges(edges []Edge) error {
	_, err := topoOrder(edges)
	return err
}

// topoOrder returns every vertex that appears in edges, dependencies first.
func topoOrder(edges []Edge) ([]int, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	seen := make(map[Edge]struct{}, len(edges))
	topo := make([]toposort.Edge, 0, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: vertex %d depends on itself", ErrCycle, e.From)
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		topo = append(topo, toposort.Edge{e.From, e.To})
	}
	sorted, err := toposort.Toposort(topo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	out := make([]int, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, v.(int))
	}
	return out, nil
}
