package scheduler_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/lanework/internal/graph"
	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
)

// binary-exact timings so elapsed sums compare exactly
var exact = scheduler.Timing{BonusWindow: 0.25, CompletionWindow: 0.25, WorkerCooldown: 0}

const step = 0.125

func ticksToFinish(t *testing.T, s *scheduler.Scheduler, limit int, afterTick map[int]func()) int {
	t.Helper()
	for n := 1; n <= limit; n++ {
		s.Tick(step)
		tv, _ := s.Task(0)
		if tv.State != scheduler.StateInProgress && tv.State != scheduler.StateWorkable {
			return n
		}
		if fn, ok := afterTick[n]; ok {
			fn()
		}
	}
	t.Fatalf("task did not finish within %d ticks", limit)
	return 0
}

func TestApplyBonus_Conservation(t *testing.T) {
	baseline := ticksToFinish(t, newScheduler(t, exact, []graph.Vertex{v(0, 10)}, nil), 200, nil)
	assert.Equal(t, 81, baseline)

	cases := []struct {
		name  string
		calls func(s *scheduler.Scheduler) map[int]func()
	}{
		{
			name: "single call",
			calls: func(s *scheduler.Scheduler) map[int]func() {
				return map[int]func(){1: func() { require.True(t, s.ApplyBonus(0, 4)) }}
			},
		},
		{
			name: "two calls same tick",
			calls: func(s *scheduler.Scheduler) map[int]func() {
				return map[int]func(){1: func() {
					require.True(t, s.ApplyBonus(0, 1))
					require.True(t, s.ApplyBonus(0, 3))
				}}
			},
		},
		{
			name: "calls across ticks",
			calls: func(s *scheduler.Scheduler) map[int]func() {
				return map[int]func(){
					1: func() { require.True(t, s.ApplyBonus(0, 1)) },
					2: func() { require.True(t, s.ApplyBonus(0, 3)) },
				}
			},
		},
		{
			name: "calls far apart",
			calls: func(s *scheduler.Scheduler) map[int]func() {
				return map[int]func(){
					5:  func() { require.True(t, s.ApplyBonus(0, 2)) },
					30: func() { require.True(t, s.ApplyBonus(0, 2)) },
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newScheduler(t, exact, []graph.Vertex{v(0, 10)}, nil)
			got := ticksToFinish(t, s, 200, tc.calls(s))
			assert.Equal(t, baseline-int(4/step), got)

			tv, _ := s.Task(0)
			assert.InDelta(t, 4.0, tv.BonusConsumed, 1e-9)
			assert.Zero(t, tv.PendingBonus)
			assert.Equal(t, tv.TotalTime, tv.Elapsed)
		})
	}
}

func TestApplyBonus_QueuedNotInstant(t *testing.T) {
	s := newScheduler(t, exact, []graph.Vertex{v(0, 10)}, nil)
	s.Tick(step)
	s.Tick(step)

	require.True(t, s.ApplyBonus(0, 4))
	tv, _ := s.Task(0)
	assert.Equal(t, step, tv.Elapsed, "bonus must not land on the call")
	assert.Equal(t, 4.0, tv.PendingBonus)
	assert.True(t, tv.ApplyingBonus)

	s.Tick(step)
	tv, _ = s.Task(0)
	assert.Equal(t, step+2+step, tv.Elapsed)
	assert.Equal(t, 2.0, tv.PendingBonus)
	assert.True(t, tv.ApplyingBonus)

	s.Tick(step)
	tv, _ = s.Task(0)
	assert.Equal(t, 3*step+4, tv.Elapsed)
	assert.Zero(t, tv.PendingBonus)
	assert.False(t, tv.ApplyingBonus)
}

func TestApplyBonus_ScenarioB(t *testing.T) {
	const dt = 0.0625
	timing := scheduler.DefaultTiming()
	s := newScheduler(t, timing, []graph.Vertex{v(0, 5)}, nil)

	s.Tick(dt) // pick up
	for i := 0; i < 32; i++ {
		s.Tick(dt)
	}
	tv, _ := s.Task(0)
	require.Equal(t, 2.0, tv.Elapsed)

	require.True(t, s.ApplyBonus(0, 5))
	tv, _ = s.Task(0)
	assert.Equal(t, scheduler.StateInProgress, tv.State)
	assert.Equal(t, 2.0, tv.Elapsed)

	ticks := 0
	for tv.State == scheduler.StateInProgress {
		s.Tick(dt)
		ticks++
		tv, _ = s.Task(0)
		require.LessOrEqual(t, ticks, 10)
	}
	assert.LessOrEqual(t, float64(ticks-1)*dt, timing.BonusWindow, "bonus drains within its window")
	assert.Equal(t, scheduler.StateCompleting, tv.State, "finishing by bonus still goes through the completion window")
	assert.Equal(t, tv.TotalTime, tv.Elapsed)
	assert.LessOrEqual(t, tv.BonusConsumed, 3.0+1e-9, "consumed bonus never exceeds what the task had left")
	assert.Zero(t, tv.PendingBonus, "leftover bonus is discarded on finish")
}

func TestApplyBonus_ScenarioC(t *testing.T) {
	s := newScheduler(t, scheduler.DefaultTiming(),
		[]graph.Vertex{v(0, 1), v(1, 1)},
		[]graph.Edge{{From: 0, To: 1}},
	)
	s.Tick(0.1)
	before := s.Tasks()

	assert.False(t, s.ApplyBonus(1, 5), "lane 1 has no current task")
	assert.False(t, s.ApplyBonus(7, 5), "unknown lane")
	assert.False(t, s.ApplyBonus(0, 0))
	assert.False(t, s.ApplyBonus(0, -3))
	assert.False(t, s.ApplyBonus(0, math.NaN()))
	assert.False(t, s.ApplyBonus(0, math.Inf(1)))

	assert.Equal(t, before, s.Tasks())
	assert.False(t, s.AllCompleted())
}

func TestApplyBonus_AtMostOneFinishPerTick(t *testing.T) {
	s := newScheduler(t, exact, []graph.Vertex{v(0, 1), v(0, 1)}, nil)
	s.Tick(step)
	require.True(t, s.ApplyBonus(0, 1000))
	s.Tick(step)

	tasks := s.Tasks()
	assert.Equal(t, scheduler.StateCompleting, tasks[0].State)
	assert.Equal(t, scheduler.StateWorkable, tasks[1].State)
	assert.Zero(t, tasks[1].Elapsed, "huge bonus does not spill into the next task")
}

func TestApplyBonus_NaNWindowFallsBackToDefault(t *testing.T) {
	timing := scheduler.Timing{BonusWindow: math.NaN(), CompletionWindow: math.NaN(), WorkerCooldown: math.NaN()}
	s := newScheduler(t, timing, []graph.Vertex{v(0, 10)}, nil)

	got := ticksToFinish(t, s, 200, map[int]func(){1: func() { require.True(t, s.ApplyBonus(0, 3)) }})
	assert.InDelta(t, 81-int(3/step), got, 1, "bonus still shortens the task")

	tv, _ := s.Task(0)
	assert.False(t, math.IsNaN(tv.Elapsed))
	assert.Equal(t, tv.TotalTime, tv.Elapsed)
	assert.InDelta(t, 3.0, tv.BonusConsumed, 1e-9)

	for i := 0; i < 8 && !s.AllCompleted(); i++ {
		s.Tick(step)
	}
	assert.True(t, s.AllCompleted(), "completion window falls back to a finite default")
}
