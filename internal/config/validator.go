package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/gyaneshwarpardhi/lanework/internal/graph"
)

// Validate checks the config for:
//   - Required fields and sane engine tunables
//   - Duplicate item IDs and stage item references to unknown items
//   - Dependency cycles inside a stage (edges out of range are left to the
//     graph builder, which drops them)
func Validate(cfg *GameConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	e := cfg.Engine
	for _, f := range []struct {
		name string
		v    int
	}{
		{"tick_hz", e.TickHz},
		{"simulation_workers", e.SimulationWorkers},
		{"simulation_queue", e.SimulationQueue},
		{"simulation_timeout_ms", e.SimulationTimeoutMs},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Sprintf("engine.%s must be positive, got %d", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"bonus_window", e.BonusWindow},
		{"completion_window", e.CompletionWindow},
		{"simulation_step", e.SimulationStep},
		{"simulation_max_seconds", e.SimulationMaxSeconds},
		{"session_ttl_seconds", e.SessionTTLSeconds},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			errs = append(errs, fmt.Sprintf("engine.%s must be positive, got %v", f.name, f.v))
		}
	}
	if !(e.WorkerCooldown >= 0) || math.IsInf(e.WorkerCooldown, 0) {
		errs = append(errs, fmt.Sprintf("engine.worker_cooldown must not be negative, got %v", e.WorkerCooldown))
	}

	items := make(map[string]int) // id → position
	for i, it := range cfg.Items {
		if it.ID == "" {
			errs = append(errs, fmt.Sprintf("items[%d]: id is required", i))
			continue
		}
		if prev, ok := items[it.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate item id %q (items[%d] and items[%d])", it.ID, prev, i))
		} else {
			items[it.ID] = i
		}
		if !(it.TimeReduction > 0) || math.IsInf(it.TimeReduction, 0) {
			errs = append(errs, fmt.Sprintf("item %s: time_reduction must be a positive number", it.ID))
		}
	}

	if len(cfg.Stages) == 0 {
		errs = append(errs, "at least one stage is required")
	}
	for i := range cfg.Stages {
		validateStage(i, &cfg.Stages[i], items, &errs)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateStage(i int, st *Stage, items map[string]int, errs *[]string) {
	loc := fmt.Sprintf("stages[%d]", i)
	if st.Name == "" {
		*errs = append(*errs, fmt.Sprintf("%s: name is required", loc))
	} else {
		loc = fmt.Sprintf("stage %q", st.Name)
	}
	if !(st.TimeLimit > 0) || math.IsInf(st.TimeLimit, 0) {
		*errs = append(*errs, fmt.Sprintf("%s: time_limit must be a positive number", loc))
	}
	if st.InitialWorkerCount < 0 {
		*errs = append(*errs, fmt.Sprintf("%s: initial_worker_count must not be negative", loc))
	}
	if len(st.Vertices) == 0 {
		*errs = append(*errs, fmt.Sprintf("%s: vertices must not be empty", loc))
	}
	for j, v := range st.Vertices {
		if v.I < 0 {
			*errs = append(*errs, fmt.Sprintf("%s.vertices[%d]: lane (i) must not be negative", loc, j))
		}
		if !(v.Time >= 0) || math.IsInf(v.Time, 0) {
			*errs = append(*errs, fmt.Sprintf("%s.vertices[%d]: time must be a finite non-negative number", loc, j))
		}
	}
	for j, si := range st.Items {
		if _, ok := items[si.ItemID]; !ok {
			*errs = append(*errs, fmt.Sprintf("%s.items[%d]: unknown item %q", loc, j, si.ItemID))
		}
		if si.Count < 0 {
			*errs = append(*errs, fmt.Sprintf("%s.items[%d]: count must not be negative", loc, j))
		}
	}

	n := len(st.Vertices)
	var inRange []graph.Edge
	for _, e := range st.Edges {
		if e.From >= 0 && e.From < n && e.To >= 0 && e.To < n {
			inRange = append(inRange, graph.Edge{From: e.From, To: e.To})
		}
	}
	if err := graph.CheckEdges(inRange); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %v", loc, err))
	}
}
