package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
)

// BonusStep queues Amount seconds of bonus on Lane once the simulated clock
// reaches At.
type BonusStep struct {
	At     float64 `json:"at"`
	Lane   int     `json:"lane"`
	Amount float64 `json:"amount"`
}

// SimRequest describes one headless run of a stage.
type SimRequest struct {
	Stage   int         `json:"stage"`
	Step    float64     `json:"step,omitempty"`
	Bonuses []BonusStep `json:"bonuses,omitempty"`
}

// SimResult is the outcome of a headless run.
type SimResult struct {
	ID                  string               `json:"id"`
	Stage               int                  `json:"stage"`
	StageName           string               `json:"stage_name"`
	Outcome             session.Outcome      `json:"outcome"`
	ClearTime           float64              `json:"clear_time,omitempty"`
	Clock               float64              `json:"clock"`
	Ticks               int                  `json:"ticks"`
	BonusesApplied      int                  `json:"bonuses_applied"`
	BonusesIgnored      int                  `json:"bonuses_ignored"`
	TaskCompletionTimes map[int]float64      `json:"task_completion_times"`
	Tasks               []scheduler.TaskView `json:"tasks"`
	DurationMs          int64                `json:"duration_ms"`
}

type simWork struct {
	ctx context.Context
	cfg *config.GameConfig
	req SimRequest
}

// SimulateSync runs req on the simulation pool and waits for the result.
// It returns ErrQueueFull when the pool cannot take more work.
func (e *Engine) SimulateSync(ctx context.Context, req SimRequest) (*SimResult, error) {
	cfg := e.catalogue.Load()
	if _, ok := cfg.Stage(req.Stage); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, req.Stage)
	}

	resultC, ok := e.simPool.Submit(&simWork{ctx: ctx, cfg: cfg, req: req})
	if !ok {
		metrics.Simulations.WithLabelValues("dropped").Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.simPool.QueueCap())
	}
	metrics.SimulationQueueUtilization.Set(e.QueueUtilization())

	timeout := time.Duration(e.conf.SimulationTimeoutMs) * time.Millisecond
	select {
	case res := <-resultC:
		return res.value, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("simulation timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// simulate runs one stage to its end with a fixed step. It checks ctx every
// few hundred ticks so an abandoned request stops early.
func (e *Engine) simulate(ctx context.Context, cfg *config.GameConfig, req SimRequest) (*SimResult, error) {
	start := time.Now()
	step := req.Step
	if !(step > 0) {
		step = cfg.Engine.SimulationStep
	}
	limit := cfg.Engine.SimulationMaxSeconds

	// Simulations are high volume; keep per-task logging out of the server log.
	s, err := session.New(cfg, req.Stage, slog.New(slog.NewTextHandler(io.Discard, nil)), session.Headless())
	if err != nil {
		return nil, err
	}

	plan := append([]BonusStep(nil), req.Bonuses...)
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].At < plan[j].At })

	res := &SimResult{
		ID:        uuid.New().String(),
		Stage:     req.Stage,
		StageName: s.StageName(),
	}
	clock := 0.0
	for s.Outcome() == session.OutcomeRunning && clock < limit {
		if res.Ticks%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for len(plan) > 0 && plan[0].At <= clock {
			applied, err := s.ApplyBonus(plan[0].Lane, plan[0].Amount)
			if err == nil && applied {
				res.BonusesApplied++
			} else {
				res.BonusesIgnored++
			}
			plan = plan[1:]
		}
		s.Advance(step)
		res.Ticks++
		clock = s.Clock()
	}
	res.BonusesIgnored += len(plan)

	snap := s.Snapshot()
	res.Outcome = snap.Outcome
	res.Clock = snap.Clock
	if snap.Outcome == session.OutcomeCleared {
		res.ClearTime = snap.Clock
	}
	res.Tasks = snap.Tasks
	res.TaskCompletionTimes = make(map[int]float64)
	for _, t := range snap.Tasks {
		if t.State == scheduler.StateCompleted {
			res.TaskCompletionTimes[t.Index] = t.CompletedAt
		}
	}
	res.DurationMs = time.Since(start).Milliseconds()

	metrics.Simulations.WithLabelValues(string(res.Outcome)).Inc()
	metrics.SimulationDuration.Observe(float64(res.DurationMs))
	metrics.SimulationQueueUtilization.Set(e.QueueUtilization())
	return res, nil
}
