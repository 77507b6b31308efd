package session_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/event"
	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const dt = 0.125

func testConfig(tutorialLimit float64) *config.GameConfig {
	cfg := &config.GameConfig{
		Version: "v1",
		Engine:  config.EngineConf{BonusWindow: 0.25, CompletionWindow: 0.25},
		Items:   []config.Item{{ID: "coffee", TimeReduction: 2}},
		Stages: []config.Stage{
			{
				Name:      "tutorial",
				TimeLimit: tutorialLimit,
				Vertices:  []config.VertexDef{{I: 0, Time: 1}, {I: 0, J: 1, Time: 1}, {I: 1, Time: 2}},
				Edges:     []config.EdgeDef{{From: 0, To: 1}},
				Items:     []config.StageItem{{ItemID: "coffee", Count: 1}},
			},
			{
				Name:      "tight",
				TimeLimit: 1,
				Vertices:  []config.VertexDef{{I: 0, Time: 5}},
			},
		},
	}
	config.ApplyDefaults(cfg)
	cfg.Engine.WorkerCooldown = 0
	return cfg
}

func eventTypes(evs []event.Event) []event.Type {
	var out []event.Type
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestSession_Clears(t *testing.T) {
	s, err := session.New(testConfig(10), 0, quiet)
	require.NoError(t, err)

	var seen []event.Type
	s.Subscribe(func(ev event.Event) { seen = append(seen, ev.Type) })

	for i := 0; i < 200; i++ {
		s.Advance(dt)
	}
	assert.Equal(t, session.OutcomeCleared, s.Outcome())
	assert.Equal(t, []event.Type{event.TypeSessionStarted, event.TypeStageCleared}, eventTypes(s.Events()))
	assert.Equal(t, []event.Type{event.TypeStageCleared}, seen)

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.CompletedTasks)
	assert.Equal(t, 2.625, snap.Clock)
	assert.Equal(t, 10-2.625, snap.TimeRemaining, "countdown stops on clear")
}

func TestSession_ClearOnFinalFrameWins(t *testing.T) {
	s, err := session.New(testConfig(2.625), 0, quiet)
	require.NoError(t, err)
	for i := 0; i < 21; i++ {
		s.Advance(dt)
	}
	assert.Equal(t, session.OutcomeCleared, s.Outcome())
}

func TestSession_TimeExpiredFreezesScheduler(t *testing.T) {
	s, err := session.New(testConfig(10), 1, quiet)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		s.Advance(dt)
	}
	assert.Equal(t, session.OutcomeTimeExpired, s.Outcome())
	frozen := s.Snapshot()
	assert.Equal(t, 0.875, frozen.Tasks[0].Elapsed)
	assert.Equal(t, scheduler.StateInProgress, frozen.Tasks[0].State)

	s.Advance(dt)
	assert.Equal(t, frozen.Tasks, s.Snapshot().Tasks)

	_, err = s.ApplyBonus(0, 10)
	assert.ErrorIs(t, err, session.ErrFinished)
	assert.Equal(t, []event.Type{event.TypeSessionStarted, event.TypeTimeExpired}, eventTypes(s.Events()))
}

func TestSession_UseItem(t *testing.T) {
	cfg := testConfig(10)
	cfg.Stages[0].Items[0].Count = 2
	s, err := session.New(cfg, 0, quiet)
	require.NoError(t, err)

	applied, left, err := s.UseItem(1, "coffee")
	require.NoError(t, err)
	assert.False(t, applied, "idle lane ignores the bonus")
	assert.Equal(t, 1, left, "item is spent even on an idle lane")
	assert.Zero(t, s.Snapshot().Tasks[2].PendingBonus)

	s.Advance(dt)
	applied, left, err = s.UseItem(0, "coffee")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Zero(t, left)
	assert.Equal(t, 2.0, s.Snapshot().Tasks[0].PendingBonus)

	_, _, err = s.UseItem(0, "coffee")
	assert.ErrorIs(t, err, session.ErrOutOfStock)
	_, _, err = s.UseItem(0, "tea")
	assert.ErrorIs(t, err, session.ErrUnknownItem)

	assert.Equal(t, []event.Type{
		event.TypeSessionStarted,
		event.TypeItemUsed,
		event.TypeBonusIgnored,
		event.TypeItemUsed,
	}, eventTypes(s.Events()))
	assert.Equal(t, []session.InventoryEntry{{ItemID: "coffee", TimeReduction: 2, Count: 0}}, s.Snapshot().Inventory)
}

func TestSession_ApplyBonusReportsNoOp(t *testing.T) {
	s, err := session.New(testConfig(10), 0, quiet)
	require.NoError(t, err)

	applied, err := s.ApplyBonus(1, 3)
	require.NoError(t, err)
	assert.False(t, applied)

	s.Advance(dt)
	applied, err = s.ApplyBonus(1, 3)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestSession_Snapshot(t *testing.T) {
	s, err := session.New(testConfig(10), 0, quiet)
	require.NoError(t, err)
	s.Advance(dt)

	snap := s.Snapshot()
	assert.Equal(t, "tutorial", snap.StageName)
	assert.Equal(t, session.OutcomeRunning, snap.Outcome)
	assert.Equal(t, 1, snap.InitialWorkers)
	require.Len(t, snap.Lanes, 2)
	assert.Equal(t, "A", snap.Lanes[0].Label)
	assert.Equal(t, "B", snap.Lanes[1].Label)
	assert.True(t, snap.Lanes[0].Working)
	require.NotNil(t, snap.Lanes[0].CurrentTask)
	assert.Equal(t, 0, *snap.Lanes[0].CurrentTask)
	assert.Len(t, snap.Lanes[0].Queue, 2)
	assert.Equal(t, 2.0, snap.Lanes[0].RemainingTime)
	assert.Equal(t, []session.InventoryEntry{{ItemID: "coffee", TimeReduction: 2, Count: 1}}, snap.Inventory)
	assert.Len(t, s.PendingTasksForLane(1), 1)
}

func TestSession_UnknownStage(t *testing.T) {
	_, err := session.New(testConfig(10), 5, quiet)
	assert.ErrorIs(t, err, session.ErrUnknownStage)
}

func TestLaneLabel(t *testing.T) {
	assert.Equal(t, "A", session.LaneLabel(0))
	assert.Equal(t, "Z", session.LaneLabel(25))
	assert.Equal(t, "L26", session.LaneLabel(26))
}
