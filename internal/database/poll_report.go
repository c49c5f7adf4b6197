package database

import (
	"database/sql"
	"fmt"
	"time"

	"outside/internal/models"
)

type PollReportRepository interface {
	InsertBatch(reports []*models.PollReport) error
	Recent(feed string, limit int) ([]*models.PollReport, error)
}

type pollReportRepository struct {
	db *sql.DB
}

func NewPollReportRepository(db *sql.DB) PollReportRepository {
	return &pollReportRepository{db: db}
}

// InsertBatch inserts poll reports in a single transaction. A report whose run id is already
// stored is ignored.
func (r *pollReportRepository) InsertBatch(reports []*models.PollReport) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO poll_reports (
		run_id, feed, started_at, duration_ms, transaction_id,
		records, skipped, scheduled, finalized, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rep := range reports {
		if _, err := stmt.Exec(
			rep.RunID,
			rep.Feed,
			rep.StartedAt.UTC(),
			rep.Duration.Milliseconds(),
			rep.TransactionID,
			rep.Records,
			rep.Skipped,
			rep.Scheduled,
			rep.Finalized,
			rep.Error,
		); err != nil {
			return fmt.Errorf("failed to insert poll report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Recent returns up to limit reports for feed, newest first
func (r *pollReportRepository) Recent(feed string, limit int) ([]*models.PollReport, error) {
	rows, err := r.db.Query(`SELECT run_id, feed, started_at, duration_ms,
		COALESCE(transaction_id, ''), records, skipped, scheduled, finalized, COALESCE(error, '')
		FROM poll_reports WHERE feed = ? ORDER BY started_at DESC LIMIT ?`, feed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.PollReport
	for rows.Next() {
		rep := &models.PollReport{}
		var durationMs int64
		if err := rows.Scan(
			&rep.RunID, &rep.Feed, &rep.StartedAt, &durationMs, &rep.TransactionID,
			&rep.Records, &rep.Skipped, &rep.Scheduled, &rep.Finalized, &rep.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll report: %w", err)
		}
		rep.Duration = time.Duration(durationMs) * time.Millisecond
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
