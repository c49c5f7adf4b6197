package tracker

import (
	"log/slog"
	"time"

	"outside/internal/models"

	"github.com/facebookgo/clock"
)

// pendingTimer is one live wait. handle is unique per Tracker, so a callback from a timer that
// has since been cancelled or replaced can tell it is stale.
type pendingTimer struct {
	handle uint64
	fireAt time.Time
	leg    models.Leg
	timer  *clock.Timer
}

// Schedule starts a timer that fires the leg's notification at fireAt, replacing any timer
// already pending for the same id.
func (t *Tracker) Schedule(leg models.Leg, fireAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, done := t.finalized[leg.ID]; done {
		// Latest instruction wins: the id leaves the finalized set.
		t.conflict(leg.ID, "schedule requested for finalized id")
		delete(t.finalized, leg.ID)
	}
	t.scheduleLocked(leg, fireAt)
}

// Cancel stops the pending timer for id. Cancelling an id with no pending timer, or whose timer
// already fired, is a no-op. Reports whether a timer was cancelled.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelLocked(id) {
		t.cancelled++
		return true
	}
	return false
}

// Pending returns the fire time of id's timer
func (t *Tracker) Pending(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[id]
	if !ok {
		return time.Time{}, false
	}
	return p.fireAt, true
}

func (t *Tracker) scheduleLocked(leg models.Leg, fireAt time.Time) {
	if t.stopped {
		return
	}
	if _, done := t.finalized[leg.ID]; done {
		t.conflict(leg.ID, "id is both finalized and scheduled")
		delete(t.finalized, leg.ID)
	}
	t.cancelLocked(leg.ID)

	t.nextHandle++
	handle := t.nextHandle
	id := leg.ID

	delay := fireAt.Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}

	p := &pendingTimer{handle: handle, fireAt: fireAt, leg: leg}
	t.pending[id] = p
	p.timer = t.clock.AfterFunc(delay, func() { t.fire(id, handle) })
}

// cancelLocked removes and stops id's timer. Reports whether one was pending.
func (t *Tracker) cancelLocked(id string) bool {
	p, ok := t.pending[id]
	if !ok {
		return false
	}
	delete(t.pending, id)
	if p.timer != nil {
		p.timer.Stop()
	}
	return true
}

// fire runs on timer expiry. It only takes effect if the timer is still the pending one for id,
// so a fire that loses the race with cancel or reschedule does nothing.
func (t *Tracker) fire(id string, handle uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.pending[id]
	if !ok || p.handle != handle {
		return
	}
	delete(t.pending, id)
	t.finalized[id] = struct{}{}
	t.fired++

	msg := t.format(&p.leg)
	t.sink.Push(msg)

	slog.Info("Notification fired",
		"feed", t.name,
		"id", id,
		"flight", p.leg.FlightDesignator(),
		"fire_at", p.fireAt.Format(time.RFC3339),
	)
}
