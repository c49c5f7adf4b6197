package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"outside/internal/feed"
	"outside/internal/models"
	"outside/internal/tracker"

	"github.com/google/uuid"
)

// Sink receives notifications
type Sink interface {
	Push(msg string)
}

// FeedTaskConfig configures a FeedTask
type FeedTaskConfig struct {
	Name          string
	Source        feed.Source
	Decoder       Decoder
	Tracker       *tracker.Tracker
	Sink          Sink
	Reports       chan<- *models.PollReport // Optional
	Interval      time.Duration
	FetchTimeout  time.Duration
	LoadedMessage string // Pushed once after the first successful poll, if set
}

// FeedStatus is a point-in-time view of one feed for diagnostics
type FeedStatus struct {
	Name       string             `json:"name"`
	Polls      int64              `json:"polls"`
	Failures   int64              `json:"failures"`
	LastReport *models.PollReport `json:"last_report,omitempty"`
	Tracker    tracker.Stats      `json:"tracker"`
}

// FeedTask is one iteration of the poll loop for a feed: fetch, decode, reconcile
type FeedTask struct {
	name          string
	source        feed.Source
	decoder       Decoder
	tracker       *tracker.Tracker
	sink          Sink
	reports       chan<- *models.PollReport
	interval      time.Duration
	fetchTimeout  time.Duration
	loadedMessage string

	mu         sync.Mutex
	loaded     bool
	polls      int64
	failures   int64
	lastReport *models.PollReport
}

func NewFeedTask(cfg FeedTaskConfig) *FeedTask {
	return &FeedTask{
		name:          cfg.Name,
		source:        cfg.Source,
		decoder:       cfg.Decoder,
		tracker:       cfg.Tracker,
		sink:          cfg.Sink,
		reports:       cfg.Reports,
		interval:      cfg.Interval,
		fetchTimeout:  cfg.FetchTimeout,
		loadedMessage: cfg.LoadedMessage,
	}
}

func (t *FeedTask) Name() string {
	return t.name
}

func (t *FeedTask) Interval() time.Duration {
	return t.interval
}

// Run performs one poll. A failed fetch or an unreadable payload skips the poll and leaves
// tracker state untouched.
func (t *FeedTask) Run(ctx context.Context) error {
	started := time.Now()
	report := &models.PollReport{
		RunID:     uuid.NewString(),
		Feed:      t.name,
		StartedAt: started,
	}

	err := t.poll(ctx, started, report)
	report.Duration = time.Since(started)
	if err != nil {
		report.Error = err.Error()
	}
	t.record(report)

	if err != nil {
		return fmt.Errorf("poll %s: %w", t.name, err)
	}

	slog.Info("Poll complete",
		"feed", t.name,
		"run_id", report.RunID,
		"transaction_id", report.TransactionID,
		"records", report.Records,
		"skipped", report.Skipped,
		"scheduled", report.Scheduled,
		"finalized", report.Finalized,
		"duration", report.Duration,
	)
	return nil
}

func (t *FeedTask) poll(ctx context.Context, started time.Time, report *models.PollReport) error {
	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	body, err := t.source.Fetch(fetchCtx)
	if err != nil {
		return err
	}

	snap, err := t.decoder.Decode(body, started)
	if err != nil {
		return err
	}

	for _, skipErr := range snap.Skipped {
		slog.Warn("Skipping malformed leg", "feed", t.name, "error", skipErr)
	}

	report.TransactionID = snap.Meta.TransactionID
	report.Records = len(snap.Legs)
	report.Skipped = len(snap.Skipped)

	// Timers already due fire as soon as they are scheduled, so the loaded message goes first
	t.mu.Lock()
	first := !t.loaded
	t.loaded = true
	t.mu.Unlock()
	if first && t.loadedMessage != "" {
		t.sink.Push(t.loadedMessage)
	}

	for _, action := range t.tracker.Reconcile(snap.Meta.FetchedAt, snap.Legs) {
		switch action.Kind {
		case tracker.ActionSchedule, tracker.ActionReschedule:
			report.Scheduled++
		case tracker.ActionFinalize:
			report.Finalized++
		}
	}

	return nil
}

// record updates counters and hands the report to the collector without blocking the loop
func (t *FeedTask) record(report *models.PollReport) {
	t.mu.Lock()
	t.polls++
	if report.Failed() {
		t.failures++
	}
	t.lastReport = report
	t.mu.Unlock()

	if t.reports == nil {
		return
	}
	select {
	case t.reports <- report:
	default:
		slog.Warn("Report channel full, dropping poll report", "feed", t.name, "run_id", report.RunID)
	}
}

// Status returns poll counters and tracker state
func (t *FeedTask) Status() FeedStatus {
	t.mu.Lock()
	status := FeedStatus{
		Name:     t.name,
		Polls:    t.polls,
		Failures: t.failures,
	}
	if t.lastReport != nil {
		last := *t.lastReport
		status.LastReport = &last
	}
	t.mu.Unlock()

	status.Tracker = t.tracker.Stats()
	return status
}
