package graph

import (
	"log/slog"
	"math"

	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
)

// Build validates src and returns the immutable Graph.
// Vertices are re-indexed by position. Edges that reference an index outside
// [0, n) are dropped with a warning; they never abort construction.
// Duplicate edges collapse into one.
func Build(src Source, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	raw := src.Vertices()
	g := &Graph{
		vertices: make([]Vertex, len(raw)),
		deps:     make([][]int, len(raw)),
		children: make([][]int, len(raw)),
	}

	lanes := make(map[int]struct{})
	for i, v := range raw {
		d := v.Duration
		if d < 0 || math.IsNaN(d) {
			logger.Warn("vertex duration clamped to zero", "vertex", i, "duration", v.Duration)
			d = 0
		}
		g.vertices[i] = Vertex{Index: i, Lane: v.Lane, Duration: d}
		lanes[v.Lane] = struct{}{}
	}
	g.lanes = sortedKeys(lanes)

	n := len(raw)
	depSets := make([]map[int]struct{}, n)
	childSets := make([]map[int]struct{}, n)
	for _, e := range src.Edges() {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			logger.Warn("dropping edge with out-of-range index", "from", e.From, "to", e.To, "vertices", n)
			metrics.InvalidEdges.Inc()
			g.dropped = append(g.dropped, e)
			continue
		}
		if _, dup := depSets[e.To][e.From]; dup {
			continue
		}
		if depSets[e.To] == nil {
			depSets[e.To] = make(map[int]struct{})
		}
		if childSets[e.From] == nil {
			childSets[e.From] = make(map[int]struct{})
		}
		depSets[e.To][e.From] = struct{}{}
		childSets[e.From][e.To] = struct{}{}
		g.edges = append(g.edges, e)
	}
	for i := 0; i < n; i++ {
		g.deps[i] = sortedKeys(depSets[i])
		g.children[i] = sortedKeys(childSets[i])
	}
	return g
}
