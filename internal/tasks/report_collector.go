package tasks

import (
	"context"
	"log/slog"
	"time"

	"outside/internal/models"
)

// ReportWriter stores poll reports
type ReportWriter interface {
	InsertBatch(reports []*models.PollReport) error
}

// ReportCollector collects poll reports and commits them to the database in batches
type ReportCollector struct {
	repo          ReportWriter
	reportChan    <-chan *models.PollReport
	batchSize     int           // maximum number of reports in a batch before committing
	flushInterval time.Duration // time to flush a batch even if not full
}

// Default batch size is 20 reports and flush interval is 30 seconds
func NewReportCollector(repo ReportWriter, reportChan <-chan *models.PollReport) *ReportCollector {
	return &ReportCollector{
		repo:          repo,
		reportChan:    reportChan,
		batchSize:     20,
		flushInterval: 30 * time.Second,
	}
}

// NewReportCollectorWithConfig creates a collector with custom batch settings
func NewReportCollectorWithConfig(repo ReportWriter, reportChan <-chan *models.PollReport, batchSize int, flushInterval time.Duration) *ReportCollector {
	return &ReportCollector{
		repo:          repo,
		reportChan:    reportChan,
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Start collects reports until the context is cancelled or the channel is closed, flushing
// when a batch is full or flushInterval has passed with reports waiting
func (c *ReportCollector) Start(ctx context.Context) error {
	batch := make([]*models.PollReport, 0, c.batchSize)

	flushBatch := func() {
		if len(batch) > 0 {
			if err := c.repo.InsertBatch(batch); err != nil {
				slog.Error("Error inserting batch of poll reports", "batch_size", len(batch), "error", err)
			} else {
				slog.Debug("Inserted batch of poll reports", "batch_size", len(batch))
			}
			batch = batch[:0]
		}
	}

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushBatch()
			return ctx.Err()

		case <-ticker.C:
			flushBatch()

		case rep, ok := <-c.reportChan:
			if !ok {
				flushBatch()
				return nil
			}

			if rep == nil {
				continue
			}

			batch = append(batch, rep)

			if len(batch) >= c.batchSize {
				flushBatch()
			}
		}
	}
}
