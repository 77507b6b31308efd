package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/event"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrUnknownStage   = session.ErrUnknownStage
	ErrNotCleared     = errors.New("stage not cleared yet")
	ErrQueueFull      = errors.New("simulation queue full")
)

// Engine holds the live stage attempts, the player's progression and the
// headless simulation pool.
type Engine struct {
	catalogue atomic.Pointer[config.GameConfig]
	conf      config.EngineConf
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session.Session

	progressMu sync.Mutex
	maxReached int

	simPool *workerPool[*simWork, *SimResult]
}

// New creates an Engine over cfg and starts the simulation pool. Pool sizing
// and tick rate come from cfg and are fixed for the engine's lifetime; a
// later SwapConfig only replaces the stage and item catalogue.
func New(ctx context.Context, cfg *config.GameConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		conf:     cfg.Engine,
		logger:   logger,
		sessions: make(map[string]*session.Session),
	}
	e.catalogue.Store(cfg)

	e.simPool = newWorkerPool[*simWork, *SimResult](
		ctx,
		cfg.Engine.SimulationWorkers,
		cfg.Engine.SimulationQueue,
		func(_ context.Context, w *simWork) (*SimResult, error) {
			return e.simulate(w.ctx, w.cfg, w.req)
		},
	)
	return e
}

// SwapConfig atomically replaces the catalogue (used on hot-reload). Running
// sessions keep the stage they were started with.
func (e *Engine) SwapConfig(cfg *config.GameConfig) {
	e.catalogue.Store(cfg)
	e.logger.Info("catalogue swapped", "version", cfg.Version, "stages", len(cfg.Stages))
}

// Config returns the current catalogue.
func (e *Engine) Config() *config.GameConfig {
	return e.catalogue.Load()
}

// StartStage begins a new attempt at stage index.
func (e *Engine) StartStage(index int) (*session.Session, error) {
	s, err := session.New(e.catalogue.Load(), index, e.logger)
	if err != nil {
		return nil, err
	}
	s.Subscribe(func(ev event.Event) {
		if ev.Type == event.TypeStageCleared {
			e.recordClear(ev.Stage)
		}
	})

	e.mu.Lock()
	e.sessions[s.ID()] = s
	metrics.ActiveSessions.Set(float64(len(e.sessions)))
	e.mu.Unlock()
	return s, nil
}

// Get returns the session with id.
func (e *Engine) Get(id string) (*session.Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// Delete discards the session with id.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	delete(e.sessions, id)
	metrics.ActiveSessions.Set(float64(len(e.sessions)))
	return nil
}

// Sessions returns the live sessions ordered by creation time.
func (e *Engine) Sessions() []*session.Session {
	e.mu.RLock()
	out := make([]*session.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, s)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})
	return out
}

// Replay discards session id and starts a fresh attempt at the same stage.
func (e *Engine) Replay(id string) (*session.Session, error) {
	old, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	s, err := e.StartStage(old.StageIndex())
	if err != nil {
		return nil, err
	}
	_ = e.Delete(id)
	return s, nil
}

// Next starts the stage after the one session id cleared, discarding id.
func (e *Engine) Next(id string) (*session.Session, error) {
	old, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	if old.Outcome() != session.OutcomeCleared {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotCleared, id, old.Outcome())
	}
	s, err := e.StartStage(old.StageIndex() + 1)
	if err != nil {
		return nil, err
	}
	_ = e.Delete(id)
	return s, nil
}

// MaxReachedStage returns the highest stage index unlocked so far, capped at
// the last stage of the current catalogue.
func (e *Engine) MaxReachedStage() int {
	e.progressMu.Lock()
	n := e.maxReached
	e.progressMu.Unlock()
	if last := len(e.catalogue.Load().Stages) - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (e *Engine) recordClear(stage int) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	if stage+1 > e.maxReached {
		e.maxReached = stage + 1
	}
}

// Run advances every running session by the real time elapsed since the
// previous frame, tick_hz times a second, until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	hz := e.conf.TickHz
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	e.logger.Info("driver started", "tick_hz", hz)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("driver stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			e.advanceAll(dt)
			e.EvictFinished(now)
		}
	}
}

func (e *Engine) advanceAll(dt float64) {
	for _, s := range e.Sessions() {
		s.Advance(dt)
	}
}

// EvictFinished drops sessions that finished more than session_ttl_seconds
// before now and returns how many it removed.
func (e *Engine) EvictFinished(now time.Time) int {
	ttl := time.Duration(e.conf.SessionTTLSeconds * float64(time.Second))
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, s := range e.sessions {
		at, done := s.FinishedAt()
		if !done || now.Sub(at) < ttl {
			continue
		}
		delete(e.sessions, id)
		n++
		e.logger.Debug("session evicted", "session", id, "outcome", s.Outcome())
	}
	if n > 0 {
		metrics.ActiveSessions.Set(float64(len(e.sessions)))
	}
	return n
}

// QueueUtilization returns simulation queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.simPool.QueueCap() == 0 {
		return 0
	}
	return float64(e.simPool.QueueLen()) / float64(e.simPool.QueueCap())
}

// Shutdown drains the simulation pool gracefully.
func (e *Engine) Shutdown() {
	e.simPool.Drain()
}
