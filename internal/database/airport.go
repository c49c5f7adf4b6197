package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"outside/internal/models"
)

type AirportRepository interface {
	InsertBatch(airports []*models.Airport) error
	IsTablePopulated() (bool, error)
	LoadFromJSON(path string, batchSize int) error
	All() ([]*models.Airport, error)
}

type airportRepository struct {
	db *sql.DB
}

func NewAirportRepository(db *sql.DB) AirportRepository {
	return &airportRepository{db: db}
}

// InsertBatch inserts or replaces airports in a single transaction
func (r *airportRepository) InsertBatch(airports []*models.Airport) error {
	if len(airports) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO airports (iata, label) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range airports {
		if _, err := stmt.Exec(a.IATA, a.Label); err != nil {
			return fmt.Errorf("failed to insert airport %s: %w", a.IATA, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *airportRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM airports LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check airports table: %w", err)
	}
	return true, nil
}

// airportRecord is one entry of Airports.json
type airportRecord struct {
	IATA  string `json:"iata"`
	Label string `json:"label"`
}

// LoadFromJSON loads an Airports.json file ([{"iata": "PHL", "label": "Philadelphia"}, ...]).
// Entries without a code or label are skipped.
func (r *airportRepository) LoadFromJSON(path string, batchSize int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []airportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	batch := make([]*models.Airport, 0, batchSize)
	for _, rec := range records {
		code := strings.ToUpper(strings.TrimSpace(rec.IATA))
		label := strings.TrimSpace(rec.Label)
		if code == "" || label == "" {
			continue
		}

		batch = append(batch, &models.Airport{IATA: code, Label: label})
		if len(batch) >= batchSize {
			if err := r.InsertBatch(batch); err != nil {
				return fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := r.InsertBatch(batch); err != nil {
			return fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	return nil
}

func (r *airportRepository) All() ([]*models.Airport, error) {
	rows, err := r.db.Query("SELECT iata, label FROM airports")
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var airports []*models.Airport
	for rows.Next() {
		a := &models.Airport{}
		if err := rows.Scan(&a.IATA, &a.Label); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}
