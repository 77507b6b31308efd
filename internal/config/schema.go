package config

import "github.com/gyaneshwarpardhi/lanework/internal/graph"

// GameConfig is the top-level YAML structure.
type GameConfig struct {
	Version string     `yaml:"version" json:"version"`
	Engine  EngineConf `yaml:"engine" json:"engine"`
	Items   []Item     `yaml:"items" json:"items"`
	Stages  []Stage    `yaml:"stages" json:"stages"`
}

// EngineConf holds the simulation tunables. All times are simulated seconds.
type EngineConf struct {
	TickHz               int     `yaml:"tick_hz" json:"tick_hz"`
	BonusWindow          float64 `yaml:"bonus_window" json:"bonus_window"`
	CompletionWindow     float64 `yaml:"completion_window" json:"completion_window"`
	WorkerCooldown       float64 `yaml:"worker_cooldown" json:"worker_cooldown"`
	SimulationWorkers    int     `yaml:"simulation_workers" json:"simulation_workers"`
	SimulationQueue      int     `yaml:"simulation_queue" json:"simulation_queue"`
	SimulationStep       float64 `yaml:"simulation_step" json:"simulation_step"`
	SimulationMaxSeconds float64 `yaml:"simulation_max_seconds" json:"simulation_max_seconds"`
	SimulationTimeoutMs  int     `yaml:"simulation_timeout_ms" json:"simulation_timeout_ms"`
	// SessionTTLSeconds is how long a finished session stays readable before
	// the driver evicts it. Wall-clock seconds.
	SessionTTLSeconds float64 `yaml:"session_ttl_seconds" json:"session_ttl_seconds"`
}

// Item is a consumable that grants bonus time to a lane.
type Item struct {
	ID            string  `yaml:"id" json:"id"`
	TimeReduction float64 `yaml:"time_reduction" json:"time_reduction"`
}

// Stage is one level: a task graph plus its time limit and item grants.
type Stage struct {
	Name               string      `yaml:"name" json:"name"`
	TimeLimit          float64     `yaml:"time_limit" json:"time_limit"`
	InitialWorkerCount int         `yaml:"initial_worker_count" json:"initial_worker_count"`
	Vertices           []VertexDef `yaml:"vertices" json:"vertices"`
	Edges              []EdgeDef   `yaml:"edges" json:"edges"`
	Items              []StageItem `yaml:"items" json:"items"`
}

// VertexDef places a task on row I (its lane) and column J. J only matters
// for layout; Time is the task's nominal duration.
type VertexDef struct {
	I    int     `yaml:"i" json:"i"`
	J    int     `yaml:"j" json:"j"`
	Time float64 `yaml:"time" json:"time"`
}

// EdgeDef references vertices by their position in Stage.Vertices.
type EdgeDef struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// StageItem grants Count copies of an item for the stage.
type StageItem struct {
	ItemID string `yaml:"item_id" json:"item_id"`
	Count  int    `yaml:"count" json:"count"`
}

// GraphSource converts the stage into the graph builder's input.
func (s *Stage) GraphSource() graph.Static {
	src := graph.Static{
		V: make([]graph.Vertex, len(s.Vertices)),
		E: make([]graph.Edge, len(s.Edges)),
	}
	for i, v := range s.Vertices {
		src.V[i] = graph.Vertex{Index: i, Lane: v.I, Duration: v.Time}
	}
	for i, e := range s.Edges {
		src.E[i] = graph.Edge{From: e.From, To: e.To}
	}
	return src
}

// Item returns the catalogue entry for id.
func (c *GameConfig) Item(id string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Stage returns the stage at index, or false if out of range.
func (c *GameConfig) Stage(index int) (*Stage, bool) {
	if index < 0 || index >= len(c.Stages) {
		return nil, false
	}
	return &c.Stages[index], true
}

// LaneCount returns the number of distinct lanes the stage's vertices use.
func (s *Stage) LaneCount() int {
	seen := make(map[int]struct{}, len(s.Vertices))
	for _, v := range s.Vertices {
		seen[v.I] = struct{}{}
	}
	return len(seen)
}
