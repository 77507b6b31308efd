package session

import (
	"fmt"

	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
)

// InventoryEntry is one stage item and how many are left.
type InventoryEntry struct {
	ItemID        string  `json:"item_id"`
	TimeReduction float64 `json:"time_reduction"`
	Count         int     `json:"count"`
}

// LaneView is a worker plus its queue, as the lane panel shows it.
type LaneView struct {
	Lane          int                  `json:"lane"`
	Label         string               `json:"label"`
	Working       bool                 `json:"working"`
	CurrentTask   *int                 `json:"current_task,omitempty"`
	Cooldown      float64              `json:"cooldown"`
	RemainingTime float64              `json:"remaining_time"`
	Queue         []scheduler.TaskView `json:"queue"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID             string               `json:"id"`
	Stage          int                  `json:"stage"`
	StageName      string               `json:"stage_name"`
	Outcome        Outcome              `json:"outcome"`
	Clock          float64              `json:"clock"`
	TimeLimit      float64              `json:"time_limit"`
	TimeRemaining  float64              `json:"time_remaining"`
	TimeProgress   float64              `json:"time_progress"`
	InitialWorkers int                  `json:"initial_workers"`
	CompletedTasks int                  `json:"completed_tasks"`
	TotalTasks     int                  `json:"total_tasks"`
	Tasks          []scheduler.TaskView `json:"tasks"`
	Lanes          []LaneView           `json:"lanes"`
	Inventory      []InventoryEntry     `json:"inventory"`
}

// LaneLabel names lanes A, B, C… and falls back to L<n> past Z.
func LaneLabel(lane int) string {
	if lane >= 0 && lane < 26 {
		return string(rune('A' + lane))
	}
	return fmt.Sprintf("L%d", lane)
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.sched.Tasks()
	snap := Snapshot{
		ID:             s.id,
		Stage:          s.stageIndex,
		StageName:      s.stage.Name,
		Outcome:        s.outcome,
		Clock:          s.sched.Clock(),
		TimeLimit:      s.countdown.Limit(),
		TimeRemaining:  s.countdown.Remaining(),
		TimeProgress:   s.countdown.Progress(),
		InitialWorkers: s.stage.InitialWorkerCount,
		CompletedTasks: s.sched.CompletedCount(),
		TotalTasks:     len(tasks),
		Tasks:          tasks,
		Inventory:      s.inventoryView(),
	}
	for _, w := range s.sched.Workers() {
		snap.Lanes = append(snap.Lanes, LaneView{
			Lane:          w.Lane,
			Label:         LaneLabel(w.Lane),
			Working:       w.Working,
			CurrentTask:   w.CurrentTask,
			Cooldown:      w.Cooldown,
			RemainingTime: s.sched.RemainingTimeForLane(w.Lane),
			Queue:         s.sched.PendingTasksForLane(w.Lane),
		})
	}
	return snap
}
