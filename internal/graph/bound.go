package graph

// MinimumTime returns a lower bound on how long g takes to finish without
// bonus time: the longer of the heaviest dependency chain and the busiest
// lane. Completion windows and worker cooldowns are not counted.
func MinimumTime(g *Graph) (float64, error) {
	order, err := topoOrder(g.edges)
	if err != nil {
		return 0, err
	}

	finish := make([]float64, len(g.vertices))
	for i, v := range g.vertices {
		finish[i] = v.Duration
	}
	for _, i := range order {
		start := 0.0
		for _, d := range g.deps[i] {
			if finish[d] > start {
				start = finish[d]
			}
		}
		finish[i] = start + g.vertices[i].Duration
	}

	var bound float64
	for _, f := range finish {
		if f > bound {
			bound = f
		}
	}
	load := make(map[int]float64, len(g.lanes))
	for _, v := range g.vertices {
		load[v.Lane] += v.Duration
		if load[v.Lane] > bound {
			bound = load[v.Lane]
		}
	}
	return bound, nil
}
