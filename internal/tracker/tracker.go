// Package tracker reconciles feed snapshots against per-flight state and owns the one pending
// notification timer each tracked flight may have.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"outside/internal/models"

	"github.com/facebookgo/clock"
)

// Sink receives formatted notifications. Push must not block.
type Sink interface {
	Push(msg string)
}

// Formatter renders the notification for a leg whose timer fired
type Formatter func(leg *models.Leg) string

// ActionKind is what reconciliation decided for one leg
type ActionKind int

const (
	ActionSkip       ActionKind = iota // Already finalized
	ActionFinalize                     // Past, not inbound, or cancelled
	ActionSchedule                     // First timer for this id
	ActionReschedule                   // Existing timer replaced
)

func (k ActionKind) String() string {
	switch k {
	case ActionSkip:
		return "skip"
	case ActionFinalize:
		return "finalize"
	case ActionSchedule:
		return "schedule"
	case ActionReschedule:
		return "reschedule"
	}
	return "unknown"
}

// Finalize reasons
const (
	ReasonPast        = "past"
	ReasonNotInbound  = "not inbound"
	ReasonCancelled   = "cancelled"
	ReasonFired       = "fired"
	ReasonInvalidated = "invalidated"
)

// Action records one reconciliation decision
type Action struct {
	Kind   ActionKind
	ID     string
	FireAt time.Time // Set for schedule and reschedule
	Reason string    // Set for finalize
}

// Config configures a Tracker
type Config struct {
	Name           string      // Feed name used in logs
	RequireInbound bool        // Finalize legs not arriving at the home airport
	Clock          clock.Clock // Wall clock for timers; real clock when nil
	Format         Formatter   // Notification text; flight designator when nil
}

// Tracker holds the finalized set and the pending timers for one feed.
// An id is in at most one of the two at any time.
type Tracker struct {
	name           string
	requireInbound bool
	clock          clock.Clock
	format         Formatter
	sink           Sink

	mu         sync.Mutex
	finalized  map[string]struct{}
	pending    map[string]*pendingTimer
	nextHandle uint64
	stopped    bool
	fired      int64
	cancelled  int64
	conflicts  int64
}

// New creates a tracker pushing fired notifications to sink
func New(cfg Config, sink Sink) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Format == nil {
		cfg.Format = func(leg *models.Leg) string { return leg.FlightDesignator() }
	}
	return &Tracker{
		name:           cfg.Name,
		requireInbound: cfg.RequireInbound,
		clock:          cfg.Clock,
		format:         cfg.Format,
		sink:           sink,
		finalized:      make(map[string]struct{}),
		pending:        make(map[string]*pendingTimer),
	}
}

// Reconcile applies one snapshot, in order. Finalized ids are skipped. A leg is finalized when
// its relevant time is before snapshotTime, when it is not inbound (if required), or when it is
// cancelled; otherwise its timer is replaced by one firing at the relevant time. Ids missing
// from the snapshot keep whatever timer they had.
func (t *Tracker) Reconcile(snapshotTime time.Time, legs []models.Leg) []Action {
	t.mu.Lock()
	defer t.mu.Unlock()

	actions := make([]Action, 0, len(legs))
	for i := range legs {
		leg := &legs[i]
		action := t.reconcileLeg(snapshotTime, leg)
		actions = append(actions, action)

		slog.Debug("Reconciled leg",
			"feed", t.name,
			"id", leg.ID,
			"flight", leg.FlightDesignator(),
			"status", leg.Status,
			"action", action.Kind,
			"reason", action.Reason,
			"fire_at", action.FireAt,
		)
	}
	return actions
}

func (t *Tracker) reconcileLeg(snapshotTime time.Time, leg *models.Leg) Action {
	if _, done := t.finalized[leg.ID]; done {
		return Action{Kind: ActionSkip, ID: leg.ID}
	}

	relevant := leg.RelevantTime()
	var reason string
	switch {
	case relevant.Before(snapshotTime):
		reason = ReasonPast
	case t.requireInbound && !leg.Inbound:
		reason = ReasonNotInbound
	case leg.Status == models.StatusCancelled:
		reason = ReasonCancelled
	}
	if reason != "" {
		t.finalizeLocked(leg.ID)
		return Action{Kind: ActionFinalize, ID: leg.ID, Reason: reason}
	}

	kind := ActionSchedule
	if _, ok := t.pending[leg.ID]; ok {
		kind = ActionReschedule
	}
	t.scheduleLocked(*leg, relevant)
	return Action{Kind: kind, ID: leg.ID, FireAt: relevant}
}

// Finalize marks an id as needing no further action, cancelling its timer if one is pending
func (t *Tracker) Finalize(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalizeLocked(id)
}

func (t *Tracker) finalizeLocked(id string) {
	if t.cancelLocked(id) {
		t.cancelled++
	}
	t.finalized[id] = struct{}{}
}

// IsFinalized reports whether id will never be scheduled again
func (t *Tracker) IsFinalized(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.finalized[id]
	return ok
}

// Stats is a point-in-time summary of tracker state
type Stats struct {
	Name      string `json:"name"`
	Pending   int    `json:"pending"`
	Finalized int    `json:"finalized"`
	Fired     int64  `json:"fired"`
	Cancelled int64  `json:"cancelled"`
	Conflicts int64  `json:"conflicts"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Name:      t.name,
		Pending:   len(t.pending),
		Finalized: len(t.finalized),
		Fired:     t.fired,
		Cancelled: t.cancelled,
		Conflicts: t.conflicts,
	}
}

// Stop cancels every pending timer. Later Schedule calls are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.pending {
		t.cancelLocked(id)
	}
	t.stopped = true
	slog.Info("Tracker stopped", "feed", t.name, "finalized", len(t.finalized))
}
