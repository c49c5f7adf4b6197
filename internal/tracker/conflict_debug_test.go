//go:build debug

package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_FinalizedIDPanics(t *testing.T) {
	tr, mock, _ := newTestTracker(true)
	now := mock.Now()

	tr.Finalize("A")
	assert.Panics(t, func() {
		tr.Schedule(inboundLeg("A", now), now.Add(time.Minute))
	})
}
