package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"outside/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// referenceBatchSize is the insert batch size used when loading reference files
const referenceBatchSize = 500

// DB holds the SQLite connection and hands out the table repositories
type DB struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and initializes the schema
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := optimizeSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize database: %w", err)
	}

	database := &DB{db: db}

	if err := database.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// optimizeSQLite applies pragmas suited to a small always-on device
func optimizeSQLite(db *sql.DB) error {
	// WAL lets the status server read while the report collector writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA cache_size=-16000"); err != nil {
		return fmt.Errorf("failed to set cache size: %w", err)
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA temp_store=MEMORY"); err != nil {
		return fmt.Errorf("failed to set temp_store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) AirportRepository() AirportRepository {
	return NewAirportRepository(d.db)
}

func (d *DB) AircraftTypeRepository() AircraftTypeRepository {
	return NewAircraftTypeRepository(d.db)
}

func (d *DB) PollReportRepository() PollReportRepository {
	return NewPollReportRepository(d.db)
}

// initSchema creates the database schema if it doesn't exist
func (d *DB) initSchema() error {
	tables := map[string]string{
		"airports": `CREATE TABLE IF NOT EXISTS airports (
			iata TEXT PRIMARY KEY,
			label TEXT NOT NULL
		);`,
		"aircraft_types": `CREATE TABLE IF NOT EXISTS aircraft_types (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			family TEXT
		);`,
		"poll_reports": `CREATE TABLE IF NOT EXISTS poll_reports (
			run_id TEXT PRIMARY KEY,
			feed TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL,
			transaction_id TEXT,
			records INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			scheduled INTEGER NOT NULL DEFAULT 0,
			finalized INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_poll_reports_feed_started ON poll_reports(feed, started_at)`,
	}

	for name, schema := range tables {
		if _, err := d.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := d.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// LoadReferenceTables fills the airport and aircraft tables from their JSON files when empty,
// then reads both into memory. An empty path skips that file.
func (d *DB) LoadReferenceTables(airportsPath, aircraftPath string) (*models.ReferenceTables, error) {
	airportRepo := d.AirportRepository()
	aircraftRepo := d.AircraftTypeRepository()

	if airportsPath != "" {
		populated, err := airportRepo.IsTablePopulated()
		if err != nil {
			return nil, err
		}
		if !populated {
			slog.Info("Airports table is empty, loading from JSON", "path", airportsPath)
			if err := airportRepo.LoadFromJSON(airportsPath, referenceBatchSize); err != nil {
				return nil, fmt.Errorf("failed to load airports: %w", err)
			}
		}
	}

	if aircraftPath != "" {
		populated, err := aircraftRepo.IsTablePopulated()
		if err != nil {
			return nil, err
		}
		if !populated {
			slog.Info("Aircraft types table is empty, loading from JSON", "path", aircraftPath)
			if err := aircraftRepo.LoadFromJSON(aircraftPath, referenceBatchSize); err != nil {
				return nil, fmt.Errorf("failed to load aircraft types: %w", err)
			}
		}
	}

	airports, err := airportRepo.All()
	if err != nil {
		return nil, err
	}
	aircraft, err := aircraftRepo.All()
	if err != nil {
		return nil, err
	}

	refs := models.NewReferenceTables(airports, aircraft)
	nAirports, nAircraft := refs.Len()
	slog.Info("Reference tables loaded", "airports", nAirports, "aircraft_types", nAircraft)
	return refs, nil
}
