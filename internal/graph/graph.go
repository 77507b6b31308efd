package graph

import "sort"

// Vertex is one task as supplied by level data. Lane groups vertices into
// worker queues; Duration is the nominal time needed to finish the task.
type Vertex struct {
	Index    int     `json:"index"`
	Lane     int     `json:"lane"`
	Duration float64 `json:"duration"`
}

// Edge says From must complete before To may start.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Source supplies the raw vertex and edge lists a Graph is built from.
type Source interface {
	Vertices() []Vertex
	Edges() []Edge
}

// Static is a Source backed by plain slices.
type Static struct {
	V []Vertex
	E []Edge
}

func (s Static) Vertices() []Vertex { return s.V }
func (s Static) Edges() []Edge      { return s.E }

// Graph is the validated, immutable task graph. Vertex indices are dense:
// vertex i lives at position i.
type Graph struct {
	vertices []Vertex
	edges    []Edge  // valid edges only, in input order
	deps     [][]int // to → distinct froms, ascending
	children [][]int // from → distinct tos, ascending
	lanes    []int   // distinct lanes, ascending
	dropped  []Edge
}

// Vertex returns the vertex at index i. It panics if i is out of range.
func (g *Graph) Vertex(i int) Vertex {
	return g.vertices[i]
}

// Vertices returns a copy of all vertices in index order.
func (g *Graph) Vertices() []Vertex {
	out := make([]Vertex, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Edges returns the edges that survived validation.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Dropped returns the edges rejected during Build.
func (g *Graph) Dropped() []Edge {
	out := make([]Edge, len(g.dropped))
	copy(out, g.dropped)
	return out
}

// Dependencies returns the indices that must complete before i may start.
func (g *Graph) Dependencies(i int) []int {
	return g.deps[i]
}

// Dependents returns the indices that directly wait on i.
func (g *Graph) Dependents(i int) []int {
	return g.children[i]
}

// Lanes returns every distinct lane in ascending order.
func (g *Graph) Lanes() []int {
	out := make([]int, len(g.lanes))
	copy(out, g.lanes)
	return out
}

// LaneVertices returns the indices assigned to lane in ascending order.
func (g *Graph) LaneVertices(lane int) []int {
	var out []int
	for _, v := range g.vertices {
		if v.Lane == lane {
			out = append(out, v.Index)
		}
	}
	return out
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.vertices)
}

// EdgeCount returns the number of valid edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
