// Package poller runs feed tasks in a loop, one goroutine per task.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of periodic work
type Task interface {
	Run(ctx context.Context) error
	Interval() time.Duration
	Name() string
}

// Runner manages the poll loops of multiple tasks
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  []Task
	wg     sync.WaitGroup
}

// New creates a runner whose loops end when ctx is done or Stop is called
func New(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make([]Task, 0),
	}
}

// AddTask adds a task to the runner. Tasks added after Start are not run.
func (r *Runner) AddTask(task Task) {
	r.tasks = append(r.tasks, task)
}

// Start begins the poll loop of every task
func (r *Runner) Start() {
	slog.Info("Starting poll loops")
	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.runTask(task)
	}
	slog.Info("Poll loops started", "task_count", len(r.tasks))
}

// Stop cancels every loop and waits for in-flight runs to return
func (r *Runner) Stop() {
	slog.Info("Stopping poll loops")
	r.cancel()
	r.wg.Wait()
	slog.Info("Poll loops stopped")
}

// runTask runs the task immediately, then again Interval() after each run ends.
// A slow run delays the next one rather than overlapping it.
func (r *Runner) runTask(task Task) {
	defer r.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
		}

		if err := runOnce(r.ctx, task); err != nil {
			slog.Error("Error running task", "task", task.Name(), "error", err)
		}
		timer.Reset(task.Interval())
	}
}

// runOnce runs one iteration, turning a panic into an error so the loop survives it
func runOnce(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Run(ctx)
}
