package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"outside/internal/aidx"
	"outside/internal/config"
	"outside/internal/database"
	"outside/internal/feed"
	"outside/internal/livefeed"
	"outside/internal/models"
	"outside/internal/notify"
	"outside/internal/poller"
	"outside/internal/server"
	"outside/internal/sink"
	"outside/internal/tasks"
	"outside/internal/telegram"
	"outside/internal/tracker"
)

// Feed names, used in logs, poll reports and the status API
const (
	AirportFeedName = "aidx"
	LiveFeedName    = "live"
)

const shutdownTimeout = 5 * time.Second

// Daemon owns every long-running component and their shutdown order
type Daemon struct {
	ctx      context.Context
	cancel   context.CancelFunc
	database *database.DB
	runner   *poller.Runner

	feeds    []*tasks.FeedTask
	trackers []*tracker.Tracker
	sources  []feed.Source

	sink       *sink.Queue
	reportChan chan *models.PollReport
	collector  *tasks.ReportCollector

	server   *server.Server
	telegram *telegram.Client
	forward  *sink.Queue

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds the daemon from configuration. Only resource setup can fail here:
// opening the database, loading reference tables, or reaching the Telegram API.
func New(cfg *config.Config) (*Daemon, error) {
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	refs, err := db.LoadReferenceTables(cfg.Reference.Airports, cfg.Reference.Aircraft)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load reference tables: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		ctx:        ctx,
		cancel:     cancel,
		database:   db,
		runner:     poller.New(ctx),
		sink:       sink.New(),
		reportChan: make(chan *models.PollReport, 100),
		done:       make(chan struct{}),
	}
	d.collector = tasks.NewReportCollector(db.PollReportRepository(), d.reportChan)

	httpClient := feed.NewHTTPClient()
	loadedMessage := notify.LoadedMessage

	if cfg.AirportFeed.Enabled {
		tr := tracker.New(tracker.Config{
			Name:           AirportFeedName,
			RequireInbound: true,
			Format:         notify.Arrival,
		}, d.sink)
		source := feed.New(cfg.AirportFeed.URL, httpClient)

		d.addFeed(tr, source, tasks.FeedTaskConfig{
			Name:          AirportFeedName,
			Decoder:       &tasks.AIDXDecoder{Parser: aidx.NewParser(cfg.HomeAirport, cfg.Location)},
			Interval:      cfg.AirportFeed.PollInterval,
			FetchTimeout:  cfg.AirportFeed.FetchTimeout,
			LoadedMessage: loadedMessage,
		})
		loadedMessage = ""
	}

	if cfg.LiveFeed.Enabled {
		box := livefeed.BoundingBox{
			North: cfg.Bounds.North,
			South: cfg.Bounds.South,
			East:  cfg.Bounds.East,
			West:  cfg.Bounds.West,
		}
		tr := tracker.New(tracker.Config{
			Name:           LiveFeedName,
			RequireInbound: false,
			Format:         notify.Sighting(cfg.HomeAirport),
		}, d.sink)
		source := livefeed.NewClient(cfg.LiveFeed.URL, box, httpClient)

		d.addFeed(tr, source, tasks.FeedTaskConfig{
			Name:          LiveFeedName,
			Decoder:       &tasks.LiveDecoder{Box: box, Home: cfg.HomeAirport, Refs: refs},
			Interval:      cfg.LiveFeed.PollInterval,
			FetchTimeout:  cfg.LiveFeed.FetchTimeout,
			LoadedMessage: loadedMessage,
		})
	}

	if cfg.Status.Enabled {
		d.server = server.New(cfg.Status.Addr, server.NewHandler(d, db.PollReportRepository()))
	}

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			cancel()
			db.Close()
			return nil, fmt.Errorf("failed to initialize Telegram: %w", err)
		}
		d.telegram = tg
		d.forward = sink.New()
	}

	return d, nil
}

func (d *Daemon) addFeed(tr *tracker.Tracker, source feed.Source, cfg tasks.FeedTaskConfig) {
	cfg.Source = source
	cfg.Tracker = tr
	cfg.Sink = d.sink
	cfg.Reports = d.reportChan

	task := tasks.NewFeedTask(cfg)
	d.runner.AddTask(task)
	d.feeds = append(d.feeds, task)
	d.trackers = append(d.trackers, tr)
	d.sources = append(d.sources, source)

	slog.Info("Feed configured",
		"feed", cfg.Name,
		"poll_interval", cfg.Interval,
		"fetch_timeout", cfg.FetchTimeout,
	)
}

func (d *Daemon) Start() error {
	slog.Info("Starting daemon", "feeds", len(d.feeds))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.collector.Start(context.Background()); err != nil {
			slog.Error("Report collector stopped", "error", err)
		}
	}()

	if d.telegram != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.telegram.Forward(d.ctx, d.forward); err != nil && !errors.Is(err, sink.ErrClosed) {
				slog.Error("Telegram forwarder stopped", "error", err)
			}
		}()
	}

	if d.server != nil {
		d.server.Start()
	}

	d.runner.Start()

	go func() {
		<-d.ctx.Done()
		close(d.done)
	}()

	slog.Info("Daemon started successfully")
	return nil
}

// Notifications is the event sink. The caller renders what it pops.
func (d *Daemon) Notifications() *sink.Queue {
	return d.sink
}

// Forward hands a rendered notification to the Telegram forwarder, if one is configured
func (d *Daemon) Forward(msg string) {
	if d.forward != nil {
		d.forward.Push(msg)
	}
}

// FeedStatuses reports every feed's poll counters and tracker state
func (d *Daemon) FeedStatuses() []tasks.FeedStatus {
	statuses := make([]tasks.FeedStatus, 0, len(d.feeds))
	for _, f := range d.feeds {
		statuses = append(statuses, f.Status())
	}
	return statuses
}

// Stop shuts down in dependency order: poll loops, pending timers, transports, the report
// collector, the status server, the sinks, then the database.
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")
	d.cancel()
	<-d.done

	d.runner.Stop()

	for _, tr := range d.trackers {
		tr.Stop()
	}

	for _, src := range d.sources {
		if c, ok := src.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Error("Error closing feed source", "error", err)
			}
		}
	}

	// The runner has stopped, so nothing sends on reportChan any more
	close(d.reportChan)

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := d.server.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down status server", "error", err)
		}
		cancel()
	}

	d.sink.Close()
	if d.forward != nil {
		d.forward.Close()
	}

	d.wg.Wait()

	if err := d.database.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}

	slog.Info("Daemon stopped")
	return nil
}
