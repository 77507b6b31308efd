package scheduler

import (
	"log/slog"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gyaneshwarpardhi/lanework/internal/graph"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
)

// Timing holds the fixed windows the scheduler paces itself with, in
// simulated seconds.
type Timing struct {
	// BonusWindow is how long a queued bonus takes to drain.
	BonusWindow float64
	// CompletionWindow is how long a task stays completing before it counts
	// as completed for its dependents.
	CompletionWindow float64
	// WorkerCooldown is how long a worker rests after finishing a task.
	WorkerCooldown float64
}

// DefaultTiming matches the shipped game feel.
func DefaultTiming() Timing {
	return Timing{BonusWindow: 0.15, CompletionWindow: 0.3, WorkerCooldown: 0.3}
}

// Scheduler owns the tasks and workers of one stage attempt and advances
// them one tick at a time. It is not safe for concurrent use; callers
// serialize Tick, ApplyBonus and the queries.
type Scheduler struct {
	timing Timing
	logger *slog.Logger

	tasks   []*task
	workers []*worker       // ascending lane
	byLane  map[int]*worker // lane → worker

	initialized bool
	stopped     bool
	muted       bool
	clock       float64
	completed   int

	notified bool
	done     chan struct{}
	onDone   []func()
}

// New returns an uninitialized Scheduler. A BonusWindow that is not a
// positive finite number falls back to the default, as does a NaN or
// infinite CompletionWindow; a non-positive CompletionWindow completes tasks
// on the tick after they finish.
func New(timing Timing, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if !(timing.BonusWindow > 0) || math.IsInf(timing.BonusWindow, 0) {
		timing.BonusWindow = DefaultTiming().BonusWindow
	}
	if math.IsNaN(timing.CompletionWindow) || math.IsInf(timing.CompletionWindow, 0) {
		timing.CompletionWindow = DefaultTiming().CompletionWindow
	}
	if !(timing.WorkerCooldown >= 0) || math.IsInf(timing.WorkerCooldown, 0) {
		timing.WorkerCooldown = 0
	}
	return &Scheduler{
		timing: timing,
		logger: logger,
		byLane: make(map[int]*worker),
		done:   make(chan struct{}),
	}
}

// MuteMetrics stops the scheduler from counting tasks and bonus calls in the
// process-wide gameplay metrics. Headless simulations use it.
func (s *Scheduler) MuteMetrics() { s.muted = true }

func (s *Scheduler) count(c prometheus.Counter, v float64) {
	if !s.muted {
		c.Add(v)
	}
}

// OnAllCompleted registers fn to run on the tick where the last task
// becomes completed. Callbacks run synchronously inside Tick, exactly once.
func (s *Scheduler) OnAllCompleted(fn func()) {
	s.onDone = append(s.onDone, fn)
}

// Done is closed on the same tick OnAllCompleted callbacks fire.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Initialize builds tasks and workers from g. It fails without side effects
// when g is nil or empty.
func (s *Scheduler) Initialize(g *graph.Graph) error {
	if s.initialized {
		return ErrAlreadyInitialized
	}
	if g.VertexCount() == 0 {
		s.logger.Warn("scheduler initialize skipped: empty graph")
		return ErrEmptyGraph
	}

	tasks := make([]*task, g.VertexCount())
	for i := range tasks {
		v := g.Vertex(i)
		tasks[i] = &task{
			index:      i,
			lane:       v.Lane,
			total:      v.Duration,
			deps:       g.Dependencies(i),
			dependents: g.Dependents(i),
			state:      StateLocked,
		}
	}
	for _, lane := range g.Lanes() {
		w := &worker{lane: lane, current: -1, tasks: g.LaneVertices(lane)}
		s.workers = append(s.workers, w)
		s.byLane[lane] = w
	}
	s.tasks = tasks

	for _, t := range s.tasks {
		if len(t.deps) == 0 {
			t.moveTo(StateWorkable)
		}
	}
	s.initialized = true
	s.logger.Debug("scheduler initialized", "tasks", len(s.tasks), "lanes", len(s.workers), "edges", g.EdgeCount())
	return nil
}

// Stop freezes the scheduler: later ticks and bonuses are ignored. Progress
// already made is kept.
func (s *Scheduler) Stop() {
	s.stopped = true
}

// Tick advances simulated time by dt. Non-positive (or NaN) deltas and ticks
// on a stopped or uninitialized scheduler change nothing.
func (s *Scheduler) Tick(dt float64) {
	if !s.initialized || s.stopped || !(dt > 0) {
		return
	}
	s.clock += dt

	// Completions finish before workers look for work so a dependent can be
	// picked up on the same tick its last dependency completes.
	s.advanceCompletions(dt)
	for _, w := range s.workers {
		s.processWorker(w, dt)
	}

	if !s.notified && s.completed == len(s.tasks) {
		s.notified = true
		s.logger.Info("all tasks completed", "tasks", len(s.tasks), "clock", s.clock)
		close(s.done)
		for _, fn := range s.onDone {
			fn()
		}
	}
}

func (s *Scheduler) advanceCompletions(dt float64) {
	for _, t := range s.tasks {
		if t.state != StateCompleting {
			continue
		}
		if s.timing.CompletionWindow > 0 {
			t.completionProgress += dt / s.timing.CompletionWindow
		} else {
			t.completionProgress = 1
		}
		if t.completionProgress < 1 {
			continue
		}
		t.completionProgress = 1
		t.moveTo(StateCompleted)
		t.completedAt = s.clock
		s.completed++
		s.count(metrics.TasksCompleted, 1)
		s.unlockDependents(t)
	}
}

// unlockDependents moves every locked dependent of t whose dependencies are
// now all completed to workable. Workability only changes on completion, so
// this is the only place it is re-evaluated after Initialize.
func (s *Scheduler) unlockDependents(t *task) {
	for _, d := range t.dependents {
		dep := s.tasks[d]
		if dep.state != StateLocked {
			continue
		}
		if s.dependenciesMet(dep) {
			dep.moveTo(StateWorkable)
		}
	}
}

func (s *Scheduler) dependenciesMet(t *task) bool {
	for _, d := range t.deps {
		if s.tasks[d].state != StateCompleted {
			return false
		}
	}
	return true
}

func (s *Scheduler) processWorker(w *worker, dt float64) {
	if w.working() {
		t := s.tasks[w.current]
		s.consumeBonus(t, dt)
		t.elapsed += dt
		if t.elapsed >= t.total {
			s.finish(w, t)
		}
		return
	}

	if w.cooldown > 0 {
		w.cooldown -= dt
		if w.cooldown > 0 {
			return
		}
		w.cooldown = 0
	}

	// First workable, unstarted task by index wins.
	for _, i := range w.tasks {
		t := s.tasks[i]
		if t.state == StateWorkable && t.elapsed == 0 {
			t.moveTo(StateInProgress)
			t.startedAt = s.clock
			w.current = i
			s.count(metrics.TasksStarted, 1)
			s.logger.Debug("task started", "task", i, "lane", w.lane, "clock", s.clock)
			return
		}
	}
}

// finish moves t to completing and releases its worker into cooldown.
// Bonus still queued on t is discarded.
func (s *Scheduler) finish(w *worker, t *task) {
	t.elapsed = t.total
	t.pendingBonus = 0
	t.bonusRate = 0
	t.applyingBonus = false
	t.completionProgress = 0
	t.moveTo(StateCompleting)

	w.current = -1
	w.cooldown = s.timing.WorkerCooldown
	s.logger.Debug("task finished", "task", t.index, "lane", w.lane, "clock", s.clock)
}
