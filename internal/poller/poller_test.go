package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTask records its runs and optionally fails or panics
type countingTask struct {
	name     string
	interval time.Duration
	runs     atomic.Int32
	fail     bool
	panics   bool
	block    time.Duration

	mu     sync.Mutex
	starts []time.Time
	ends   []time.Time
}

func (c *countingTask) Run(ctx context.Context) error {
	c.mu.Lock()
	c.starts = append(c.starts, time.Now())
	c.mu.Unlock()

	c.runs.Add(1)
	if c.block > 0 {
		time.Sleep(c.block)
	}

	c.mu.Lock()
	c.ends = append(c.ends, time.Now())
	c.mu.Unlock()

	if c.panics {
		panic("boom")
	}
	if c.fail {
		return errors.New("fetch failed")
	}
	return nil
}

func (c *countingTask) Interval() time.Duration { return c.interval }
func (c *countingTask) Name() string            { return c.name }

func TestRunner_RunsImmediately(t *testing.T) {
	task := &countingTask{name: "slow", interval: time.Hour}
	r := New(context.Background())
	r.AddTask(task)
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return task.runs.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_RepeatsAfterInterval(t *testing.T) {
	task := &countingTask{name: "fast", interval: 10 * time.Millisecond}
	r := New(context.Background())
	r.AddTask(task)
	r.Start()

	require.Eventually(t, func() bool {
		return task.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	// No runs after Stop returns
	n := task.runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, task.runs.Load())
}

func TestRunner_SleepsAfterEachRun(t *testing.T) {
	task := &countingTask{name: "blocking", interval: 20 * time.Millisecond, block: 30 * time.Millisecond}
	r := New(context.Background())
	r.AddTask(task)
	r.Start()

	require.Eventually(t, func() bool {
		return task.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	task.mu.Lock()
	defer task.mu.Unlock()
	for i := 1; i < len(task.starts); i++ {
		gap := task.starts[i].Sub(task.ends[i-1])
		assert.GreaterOrEqual(t, gap, 20*time.Millisecond)
	}
}

func TestRunner_ErrorsDoNotStopLoop(t *testing.T) {
	failing := &countingTask{name: "failing", interval: 5 * time.Millisecond, fail: true}
	panicking := &countingTask{name: "panicking", interval: 5 * time.Millisecond, panics: true}

	r := New(context.Background())
	r.AddTask(failing)
	r.AddTask(panicking)
	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		return failing.runs.Load() >= 3 && panicking.runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRunner_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &countingTask{name: "ctx", interval: time.Hour}
	r := New(ctx)
	r.AddTask(task)
	r.Start()

	cancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}

func TestRunOnce_RecoversPanic(t *testing.T) {
	task := &countingTask{name: "panicking", panics: true}
	err := runOnce(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
