package scheduler

// Initialized reports whether Initialize succeeded.
func (s *Scheduler) Initialized() bool { return s.initialized }

// Stopped reports whether Stop was called.
func (s *Scheduler) Stopped() bool { return s.stopped }

// Clock returns the simulated seconds advanced so far.
func (s *Scheduler) Clock() float64 { return s.clock }

// AllCompleted reports whether every task is completed. It is false before
// Initialize.
func (s *Scheduler) AllCompleted() bool {
	return s.initialized && s.completed == len(s.tasks)
}

// CompletedCount returns how many tasks are completed.
func (s *Scheduler) CompletedCount() int { return s.completed }

// IsLaneWorking reports whether lane's worker has a task in progress.
func (s *Scheduler) IsLaneWorking(lane int) bool {
	w, ok := s.byLane[lane]
	return ok && w.working()
}

// PendingTasksForLane returns the lane's tasks that are locked, workable or
// in progress, in ascending index order.
func (s *Scheduler) PendingTasksForLane(lane int) []TaskView {
	w, ok := s.byLane[lane]
	if !ok {
		return nil
	}
	out := make([]TaskView, 0, len(w.tasks))
	for _, i := range w.tasks {
		if t := s.tasks[i]; t.state.Pending() {
			out = append(out, t.view())
		}
	}
	return out
}

// RemainingTimeForLane sums the nominal time left on the lane's pending
// tasks. Queued bonus is not subtracted.
func (s *Scheduler) RemainingTimeForLane(lane int) float64 {
	w, ok := s.byLane[lane]
	if !ok {
		return 0
	}
	var total float64
	for _, i := range w.tasks {
		if t := s.tasks[i]; t.state.Pending() {
			total += t.total - t.elapsed
		}
	}
	return total
}

// Task returns a copy of task i.
func (s *Scheduler) Task(i int) (TaskView, bool) {
	if i < 0 || i >= len(s.tasks) {
		return TaskView{}, false
	}
	return s.tasks[i].view(), true
}

// Tasks returns copies of every task in index order.
func (s *Scheduler) Tasks() []TaskView {
	out := make([]TaskView, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.view()
	}
	return out
}

// Lanes returns the lanes that have a worker, ascending.
func (s *Scheduler) Lanes() []int {
	out := make([]int, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.lane
	}
	return out
}

// Workers returns copies of every worker in lane order.
func (s *Scheduler) Workers() []WorkerView {
	out := make([]WorkerView, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.view()
	}
	return out
}
