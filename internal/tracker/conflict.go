package tracker

import (
	"fmt"
	"log/slog"
)

// ConflictError reports a broken tracker invariant: an id both finalized and pending,
// or scheduled twice
type ConflictError struct {
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict for %s: %s", e.ID, e.Reason)
}

// conflict panics in debug builds. Otherwise it logs and counts the conflict, and the caller
// heals state by applying the most recent instruction. Caller holds t.mu.
func (t *Tracker) conflict(id, reason string) {
	err := &ConflictError{ID: id, Reason: reason}
	if panicOnConflict {
		panic(err)
	}
	t.conflicts++
	slog.Error("Scheduling conflict", "feed", t.name, "error", err)
}
