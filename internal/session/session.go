package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/event"
	"github.com/gyaneshwarpardhi/lanework/internal/graph"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
	"github.com/gyaneshwarpardhi/lanework/internal/timelimit"
)

var (
	ErrUnknownStage = errors.New("unknown stage")
	ErrUnknownItem  = errors.New("unknown item")
	ErrOutOfStock   = errors.New("item out of stock")
	ErrFinished     = errors.New("session already finished")
)

// Outcome is the result of a stage attempt.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeCleared     Outcome = "cleared"
	OutcomeTimeExpired Outcome = "time_expired"
)

// Session is one attempt at one stage. It owns a Scheduler and the stage's
// Countdown and serializes every call into them; it is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id         string
	stageIndex int
	stage      config.Stage
	catalogue  map[string]config.Item
	inventory  map[string]int
	itemOrder  []string
	createdAt  time.Time

	sched      *scheduler.Scheduler
	countdown  *timelimit.Countdown
	outcome    Outcome
	finishedAt time.Time
	headless   bool

	events    []event.Event
	listeners []func(event.Event)
	logger    *slog.Logger
}

// TimingFrom maps the engine tunables onto scheduler timing.
func TimingFrom(e config.EngineConf) scheduler.Timing {
	return scheduler.Timing{
		BonusWindow:      e.BonusWindow,
		CompletionWindow: e.CompletionWindow,
		WorkerCooldown:   e.WorkerCooldown,
	}
}

// Option configures a Session at construction.
type Option func(*Session)

// Headless keeps the attempt out of the gameplay metrics (stages cleared or
// failed, tasks, bonus calls). Simulations report through their own metrics.
func Headless() Option {
	return func(s *Session) { s.headless = true }
}

// New builds the graph for stage index of cfg and starts the attempt.
// The stage definition and item catalogue are copied, so later config
// reloads do not affect a running attempt.
func New(cfg *config.GameConfig, index int, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, ok := cfg.Stage(index)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, index)
	}

	id := uuid.New().String()
	logger = logger.With("session", id, "stage", index)

	g := graph.Build(st.GraphSource(), logger)
	sched := scheduler.New(TimingFrom(cfg.Engine), logger)
	if err := sched.Initialize(g); err != nil {
		return nil, fmt.Errorf("stage %d (%s): %w", index, st.Name, err)
	}

	s := &Session{
		id:         id,
		stageIndex: index,
		stage:      *st,
		catalogue:  make(map[string]config.Item),
		inventory:  make(map[string]int),
		createdAt:  time.Now(),
		sched:      sched,
		countdown:  timelimit.New(st.TimeLimit),
		outcome:    OutcomeRunning,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.headless {
		sched.MuteMetrics()
	}
	for _, si := range st.Items {
		it, ok := cfg.Item(si.ItemID)
		if !ok {
			logger.Warn("stage grants unknown item, skipping", "item", si.ItemID)
			continue
		}
		if _, seen := s.inventory[si.ItemID]; !seen {
			s.itemOrder = append(s.itemOrder, si.ItemID)
		}
		s.catalogue[it.ID] = it
		s.inventory[si.ItemID] += si.Count
	}

	// The first of clear / time-up decides the outcome; Advance then freezes
	// both.
	sched.OnAllCompleted(func() {
		s.finish(OutcomeCleared)
	})
	s.countdown.OnExpire(func() {
		s.sched.Stop()
		s.finish(OutcomeTimeExpired)
	})
	s.countdown.Start()

	s.emit(event.TypeSessionStarted, map[string]interface{}{
		"stage_name": st.Name,
		"tasks":      g.VertexCount(),
		"lanes":      len(g.Lanes()),
		"time_limit": st.TimeLimit,
	})
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) StageIndex() int { return s.stageIndex }

func (s *Session) StageName() string { return s.stage.Name }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// FinishedAt reports when the attempt was cleared or ran out of time. The
// bool is false while it is still running.
func (s *Session) FinishedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt, s.outcome != OutcomeRunning
}

// Outcome returns the current result of the attempt.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Clock returns the simulated seconds advanced so far.
func (s *Session) Clock() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.Clock()
}

// Subscribe registers fn for every event emitted from now on. fn runs while
// the session lock is held and must not call back into the session.
func (s *Session) Subscribe(fn func(event.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Advance moves the attempt forward by dt simulated seconds. The scheduler
// ticks before the countdown, so a clear on the final frame still counts.
func (s *Session) Advance(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomeRunning {
		return
	}
	s.sched.Tick(dt)
	s.countdown.Advance(dt)
	if s.outcome != OutcomeRunning {
		s.countdown.Stop()
		s.sched.Stop()
	}
}

// ApplyBonus queues amount seconds of bonus on lane. The bool reports
// whether the scheduler accepted it.
func (s *Session) ApplyBonus(lane int, amount float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomeRunning {
		return false, ErrFinished
	}
	applied := s.sched.ApplyBonus(lane, amount)
	typ := event.TypeBonusIgnored
	if applied {
		typ = event.TypeBonusApplied
	}
	s.emit(typ, map[string]interface{}{"lane": lane, "amount": amount})
	return applied, nil
}

// UseItem spends one itemID on lane and returns the count left. The item is
// used up even when the lane is idle and the bonus is ignored.
func (s *Session) UseItem(lane int, itemID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.catalogue[itemID]
	if !ok {
		return false, 0, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if s.outcome != OutcomeRunning {
		return false, s.inventory[itemID], ErrFinished
	}
	if s.inventory[itemID] <= 0 {
		return false, 0, fmt.Errorf("%w: %q", ErrOutOfStock, itemID)
	}
	s.inventory[itemID]--
	left := s.inventory[itemID]
	applied := s.sched.ApplyBonus(lane, it.TimeReduction)
	s.emit(event.TypeItemUsed, map[string]interface{}{
		"lane":      lane,
		"item":      itemID,
		"amount":    it.TimeReduction,
		"remaining": left,
		"applied":   applied,
	})
	if !applied {
		s.emit(event.TypeBonusIgnored, map[string]interface{}{"lane": lane, "amount": it.TimeReduction, "item": itemID})
	}
	return applied, left, nil
}

// PendingTasksForLane returns the lane's queue for visualization.
func (s *Session) PendingTasksForLane(lane int) []scheduler.TaskView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched.PendingTasksForLane(lane)
}

// Events returns a copy of every event emitted so far.
func (s *Session) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

// finish runs with s.mu held, from inside a scheduler or countdown callback.
func (s *Session) finish(o Outcome) {
	if s.outcome != OutcomeRunning {
		return
	}
	s.outcome = o
	s.finishedAt = time.Now()
	payload := map[string]interface{}{
		"elapsed":         s.sched.Clock(),
		"time_limit":      s.countdown.Limit(),
		"completed_tasks": s.sched.CompletedCount(),
	}
	switch o {
	case OutcomeCleared:
		if !s.headless {
			metrics.StagesCleared.WithLabelValues(s.stage.Name).Inc()
		}
		s.logger.Info("stage cleared", "elapsed", s.sched.Clock())
		s.emit(event.TypeStageCleared, payload)
	case OutcomeTimeExpired:
		if !s.headless {
			metrics.StagesFailed.WithLabelValues(s.stage.Name).Inc()
		}
		s.logger.Info("time limit exceeded", "completed_tasks", s.sched.CompletedCount())
		s.emit(event.TypeTimeExpired, payload)
	}
}

func (s *Session) emit(typ event.Type, payload map[string]interface{}) {
	ev := event.New(typ, s.id, s.stageIndex, s.sched.Clock(), payload)
	s.events = append(s.events, ev)
	for _, fn := range s.listeners {
		fn(ev)
	}
}

func (s *Session) inventoryView() []InventoryEntry {
	out := make([]InventoryEntry, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		out = append(out, InventoryEntry{
			ItemID:        id,
			TimeReduction: s.catalogue[id].TimeReduction,
			Count:         s.inventory[id],
		})
	}
	return out
}
