package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/engine"
	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const dt = 0.125

func testConfig() *config.GameConfig {
	cfg := &config.GameConfig{
		Version: "v1",
		Engine:  config.EngineConf{TickHz: 100, BonusWindow: 0.25, CompletionWindow: 0.25},
		Stages: []config.Stage{
			{
				Name:      "tutorial",
				TimeLimit: 10,
				Vertices:  []config.VertexDef{{I: 0, Time: 1}, {I: 0, J: 1, Time: 1}, {I: 1, Time: 2}},
				Edges:     []config.EdgeDef{{From: 0, To: 1}},
			},
			{
				Name:      "second",
				TimeLimit: 10,
				Vertices:  []config.VertexDef{{I: 0, Time: 0.5}},
			},
		},
	}
	config.ApplyDefaults(cfg)
	cfg.Engine.WorkerCooldown = 0
	return cfg
}

func newEngine(t *testing.T, cfg *config.GameConfig) *engine.Engine {
	t.Helper()
	e := engine.New(context.Background(), cfg, quiet)
	t.Cleanup(e.Shutdown)
	return e
}

func playOut(s *session.Session) {
	for i := 0; i < 1000 && s.Outcome() == session.OutcomeRunning; i++ {
		s.Advance(dt)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestEngine_SessionRegistry(t *testing.T) {
	e := newEngine(t, testConfig())

	s, err := e.StartStage(0)
	require.NoError(t, err)
	got, err := e.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, e.Sessions(), 1)

	require.NoError(t, e.Delete(s.ID()))
	_, err = e.Get(s.ID())
	assert.ErrorIs(t, err, engine.ErrUnknownSession)
	assert.ErrorIs(t, e.Delete(s.ID()), engine.ErrUnknownSession)

	_, err = e.StartStage(9)
	assert.ErrorIs(t, err, engine.ErrUnknownStage)
}

func TestEngine_Progression(t *testing.T) {
	e := newEngine(t, testConfig())
	assert.Equal(t, 0, e.MaxReachedStage())

	first, err := e.StartStage(0)
	require.NoError(t, err)
	_, err = e.Next(first.ID())
	assert.ErrorIs(t, err, engine.ErrNotCleared)

	playOut(first)
	require.Equal(t, session.OutcomeCleared, first.Outcome())
	assert.Equal(t, 1, e.MaxReachedStage())

	second, err := e.Next(first.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, second.StageIndex())
	_, err = e.Get(first.ID())
	assert.ErrorIs(t, err, engine.ErrUnknownSession, "next discards the cleared session")

	playOut(second)
	assert.Equal(t, 1, e.MaxReachedStage(), "capped at the last stage")
	_, err = e.Next(second.ID())
	assert.ErrorIs(t, err, engine.ErrUnknownStage)
}

func TestEngine_Replay(t *testing.T) {
	e := newEngine(t, testConfig())
	s, err := e.StartStage(0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		s.Advance(dt)
	}

	fresh, err := e.Replay(s.ID())
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), fresh.ID())
	assert.Equal(t, 0, fresh.StageIndex())
	assert.Zero(t, fresh.Clock())
	assert.Len(t, e.Sessions(), 1)
}

func TestEngine_SwapConfigKeepsRunningSessions(t *testing.T) {
	e := newEngine(t, testConfig())
	s, err := e.StartStage(0)
	require.NoError(t, err)

	next := testConfig()
	next.Stages = next.Stages[1:]
	e.SwapConfig(next)

	assert.Equal(t, "tutorial", s.StageName())
	fresh, err := e.StartStage(0)
	require.NoError(t, err)
	assert.Equal(t, "second", fresh.StageName())
}

func TestEngine_RunAdvancesSessions(t *testing.T) {
	e := newEngine(t, testConfig())
	s, err := e.StartStage(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	assert.Eventually(t, func() bool { return s.Clock() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngine_SimulateSync(t *testing.T) {
	e := newEngine(t, testConfig())

	res, err := e.SimulateSync(context.Background(), engine.SimRequest{Stage: 0, Step: dt})
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeCleared, res.Outcome)
	assert.Equal(t, 2.625, res.ClearTime)
	assert.Equal(t, 21, res.Ticks)
	assert.Equal(t, map[int]float64{0: 1.375, 1: 2.625, 2: 2.375}, res.TaskCompletionTimes)

	// Half a second of bonus on lane A's first task pulls the whole chain
	// forward; lane B then becomes the critical path.
	res, err = e.SimulateSync(context.Background(), engine.SimRequest{
		Stage:   0,
		Step:    dt,
		Bonuses: []engine.BonusStep{{At: dt, Lane: 0, Amount: 0.5}, {At: 0, Lane: 0, Amount: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.375, res.ClearTime)
	assert.Equal(t, 1, res.BonusesApplied)
	assert.Equal(t, 1, res.BonusesIgnored, "lane A is idle before the first tick")

	_, err = e.SimulateSync(context.Background(), engine.SimRequest{Stage: 7})
	assert.ErrorIs(t, err, engine.ErrUnknownStage)
}

func TestEngine_SimulateTimeExpired(t *testing.T) {
	cfg := testConfig()
	cfg.Stages[1].TimeLimit = 0.25
	e := newEngine(t, cfg)

	res, err := e.SimulateSync(context.Background(), engine.SimRequest{Stage: 1, Step: dt})
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeTimeExpired, res.Outcome)
	assert.Zero(t, res.ClearTime)
	assert.Empty(t, res.TaskCompletionTimes)
}

func TestEngine_EvictFinished(t *testing.T) {
	e := newEngine(t, testConfig())
	done, err := e.StartStage(0)
	require.NoError(t, err)
	running, err := e.StartStage(1)
	require.NoError(t, err)
	playOut(done)
	require.Equal(t, session.OutcomeCleared, done.Outcome())

	at, finished := done.FinishedAt()
	require.True(t, finished)
	_, finished = running.FinishedAt()
	assert.False(t, finished)

	assert.Zero(t, e.EvictFinished(at.Add(time.Minute)), "still inside session_ttl_seconds")
	assert.Len(t, e.Sessions(), 2)

	assert.Equal(t, 1, e.EvictFinished(at.Add(301*time.Second)))
	_, err = e.Get(done.ID())
	assert.ErrorIs(t, err, engine.ErrUnknownSession)
	_, err = e.Get(running.ID())
	assert.NoError(t, err, "running sessions are never evicted")
	assert.Equal(t, 1, e.MaxReachedStage(), "progression survives eviction")
}

func TestEngine_SimulationsStayOutOfGameplayMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Stages[0].Name = "balancing-only"
	e := newEngine(t, cfg)

	tasksBefore := counterValue(t, metrics.TasksCompleted)
	bonusBefore := counterValue(t, metrics.BonusApplied)
	simsBefore := counterValue(t, metrics.Simulations.WithLabelValues(string(session.OutcomeCleared)))

	res, err := e.SimulateSync(context.Background(), engine.SimRequest{
		Stage:   0,
		Step:    dt,
		Bonuses: []engine.BonusStep{{At: dt, Lane: 0, Amount: 0.5}},
	})
	require.NoError(t, err)
	require.Equal(t, session.OutcomeCleared, res.Outcome)
	require.Equal(t, 1, res.BonusesApplied)

	assert.Zero(t, counterValue(t, metrics.StagesCleared.WithLabelValues("balancing-only")))
	assert.Equal(t, tasksBefore, counterValue(t, metrics.TasksCompleted))
	assert.Equal(t, bonusBefore, counterValue(t, metrics.BonusApplied))
	assert.Equal(t, simsBefore+1, counterValue(t, metrics.Simulations.WithLabelValues(string(session.OutcomeCleared))))

	// A played attempt at the same stage is counted.
	s, err := e.StartStage(0)
	require.NoError(t, err)
	playOut(s)
	assert.Equal(t, 1.0, counterValue(t, metrics.StagesCleared.WithLabelValues("balancing-only")))
	assert.Equal(t, tasksBefore+3, counterValue(t, metrics.TasksCompleted))
}
