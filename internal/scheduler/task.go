package scheduler

// task is the mutable runtime record for one vertex.
type task struct {
	index      int
	lane       int
	total      float64
	elapsed    float64
	deps       []int
	dependents []int
	state      TaskState

	// bonus accounting
	pendingBonus  float64
	bonusRate     float64
	applyingBonus bool
	bonusConsumed float64

	completionProgress float64
	startedAt          float64
	completedAt        float64
}

type worker struct {
	lane     int
	current  int // task index, -1 when idle
	cooldown float64
	tasks    []int // lane's task indices, ascending
}

func (w *worker) working() bool { return w.current >= 0 }

// TaskView is a read-only copy of a task for collaborators.
type TaskView struct {
	Index              int       `json:"index"`
	Lane               int       `json:"lane"`
	State              TaskState `json:"state"`
	TotalTime          float64   `json:"total_time"`
	Elapsed            float64   `json:"elapsed"`
	Remaining          float64   `json:"remaining"`
	IsWorkable         bool      `json:"is_workable"`
	Dependencies       []int     `json:"dependencies,omitempty"`
	PendingBonus       float64   `json:"pending_bonus"`
	ApplyingBonus      bool      `json:"applying_bonus"`
	BonusConsumed      float64   `json:"bonus_consumed"`
	CompletionProgress float64   `json:"completion_progress"`
	StartedAt          float64   `json:"started_at"`
	CompletedAt        float64   `json:"completed_at"`
}

// WorkerView is a read-only copy of a worker.
type WorkerView struct {
	Lane        int     `json:"lane"`
	Working     bool    `json:"working"`
	CurrentTask *int    `json:"current_task,omitempty"`
	Cooldown    float64 `json:"cooldown"`
}

func (t *task) view() TaskView {
	v := TaskView{
		Index:              t.index,
		Lane:               t.lane,
		State:              t.state,
		TotalTime:          t.total,
		Elapsed:            t.elapsed,
		Remaining:          t.total - t.elapsed,
		IsWorkable:         t.state == StateWorkable || t.state == StateInProgress,
		PendingBonus:       t.pendingBonus,
		ApplyingBonus:      t.applyingBonus,
		BonusConsumed:      t.bonusConsumed,
		CompletionProgress: t.completionProgress,
		StartedAt:          t.startedAt,
		CompletedAt:        t.completedAt,
	}
	if len(t.deps) > 0 {
		v.Dependencies = append([]int(nil), t.deps...)
	}
	return v
}

func (w *worker) view() WorkerView {
	v := WorkerView{Lane: w.lane, Working: w.working(), Cooldown: w.cooldown}
	if w.working() {
		cur := w.current
		v.CurrentTask = &cur
	}
	return v
}
