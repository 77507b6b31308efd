package scheduler

import "fmt"

// TaskState is the lifecycle position of a task. States only move forward:
// locked → workable → in_progress → completing → completed.
type TaskState string

const (
	StateLocked     TaskState = "locked"
	StateWorkable   TaskState = "workable"
	StateInProgress TaskState = "in_progress"
	StateCompleting TaskState = "completing"
	StateCompleted  TaskState = "completed"
)

func (s TaskState) rank() int {
	switch s {
	case StateLocked:
		return 0
	case StateWorkable:
		return 1
	case StateInProgress:
		return 2
	case StateCompleting:
		return 3
	case StateCompleted:
		return 4
	}
	return -1
}

// Pending reports whether the task still occupies its lane's queue.
func (s TaskState) Pending() bool {
	return s.rank() >= 0 && s.rank() <= StateInProgress.rank()
}

// moveTo advances t by exactly one state. Any other move is a scheduler bug.
func (t *task) moveTo(next TaskState) {
	if next.rank() != t.state.rank()+1 {
		panic(fmt.Sprintf("scheduler: invalid transition for task %d: %s -> %s", t.index, t.state, next))
	}
	t.state = next
}
