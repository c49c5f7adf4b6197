package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"outside/internal/models"
)

type AircraftTypeRepository interface {
	InsertBatch(types []*models.AircraftType) error
	IsTablePopulated() (bool, error)
	LoadFromJSON(path string, batchSize int) error
	All() ([]*models.AircraftType, error)
}

type aircraftTypeRepository struct {
	db *sql.DB
}

func NewAircraftTypeRepository(db *sql.DB) AircraftTypeRepository {
	return &aircraftTypeRepository{db: db}
}

// InsertBatch inserts or replaces aircraft types in a single transaction
func (r *aircraftTypeRepository) InsertBatch(types []*models.AircraftType) error {
	if len(types) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO aircraft_types (id, name, family) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, t := range types {
		if _, err := stmt.Exec(t.ID, t.Name, t.Family); err != nil {
			return fmt.Errorf("failed to insert aircraft type %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *aircraftTypeRepository) IsTablePopulated() (bool, error) {
	var ignored int
	err := r.db.QueryRow("SELECT 1 FROM aircraft_types LIMIT 1").Scan(&ignored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check aircraft_types table: %w", err)
	}
	return true, nil
}

// aircraftFamily is one entry of AircraftFamily.json
type aircraftFamily struct {
	Name   string `json:"name"`
	Models []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"models"`
}

// LoadFromJSON loads an AircraftFamily.json file: a list of families, each with the models
// (type designator and display name) that belong to it.
func (r *aircraftTypeRepository) LoadFromJSON(path string, batchSize int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var families []aircraftFamily
	if err := json.Unmarshal(data, &families); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	batch := make([]*models.AircraftType, 0, batchSize)
	for _, family := range families {
		for _, m := range family.Models {
			id := strings.TrimSpace(m.ID)
			if id == "" || m.Name == "" {
				continue
			}

			batch = append(batch, &models.AircraftType{ID: id, Name: m.Name, Family: family.Name})
			if len(batch) >= batchSize {
				if err := r.InsertBatch(batch); err != nil {
					return fmt.Errorf("failed to insert batch: %w", err)
				}
				batch = batch[:0]
			}
		}
	}

	if len(batch) > 0 {
		if err := r.InsertBatch(batch); err != nil {
			return fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	return nil
}

func (r *aircraftTypeRepository) All() ([]*models.AircraftType, error) {
	rows, err := r.db.Query("SELECT id, name, COALESCE(family, '') FROM aircraft_types")
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft types: %w", err)
	}
	defer rows.Close()

	var types []*models.AircraftType
	for rows.Next() {
		t := &models.AircraftType{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Family); err != nil {
			return nil, fmt.Errorf("failed to scan aircraft type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
