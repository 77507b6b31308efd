package scheduler

import (
	"math"

	"github.com/gyaneshwarpardhi/lanework/internal/metrics"
)

// ApplyBonus queues amount seconds of bonus time on the task lane is
// working on. The bonus drains over the bonus window rather than landing at
// once, so a single tick never sees more than one completion per lane.
//
// It reports whether the bonus was queued. Calls on an idle or unknown lane,
// on a stopped scheduler, or with a non-positive amount change nothing.
func (s *Scheduler) ApplyBonus(lane int, amount float64) bool {
	if !s.initialized || s.stopped {
		s.logger.Info("bonus ignored: scheduler not running", "lane", lane, "amount", amount)
		s.count(metrics.BonusIgnored, 1)
		return false
	}
	if !(amount > 0) || math.IsInf(amount, 0) {
		s.logger.Info("bonus ignored: invalid amount", "lane", lane, "amount", amount)
		s.count(metrics.BonusIgnored, 1)
		return false
	}
	w, ok := s.byLane[lane]
	if !ok || !w.working() {
		s.logger.Info("bonus ignored: lane is not working", "lane", lane, "amount", amount)
		s.count(metrics.BonusIgnored, 1)
		return false
	}

	t := s.tasks[w.current]
	t.pendingBonus += amount
	t.bonusRate = t.pendingBonus / s.timing.BonusWindow
	t.applyingBonus = true
	s.count(metrics.BonusApplied, 1)
	s.logger.Info("bonus queued", "lane", lane, "task", t.index, "amount", amount, "pending", t.pendingBonus)
	return true
}

// consumeBonus drains this tick's share of the queued bonus into t.elapsed.
// The last share is exactly what remains, so the total drained equals the
// total queued.
func (s *Scheduler) consumeBonus(t *task, dt float64) {
	if t.pendingBonus <= 0 {
		t.applyingBonus = false
		return
	}
	amount := t.bonusRate * dt
	if amount > t.pendingBonus {
		amount = t.pendingBonus
	}
	t.pendingBonus -= amount
	if t.pendingBonus <= 0 {
		t.pendingBonus = 0
		t.bonusRate = 0
	}
	t.applyingBonus = t.pendingBonus > 0

	effective := math.Min(amount, math.Max(t.total-t.elapsed, 0))
	t.elapsed += amount
	t.bonusConsumed += effective
	s.count(metrics.BonusSeconds, effective)
}
