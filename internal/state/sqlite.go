package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/world"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
	path   string
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *logging.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.WithComponent("sqlite-store"),
		path:   path,
	}, nil
}

// Initialize creates tables and runs migrations
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.logger.Info().Str("path", s.path).Msg("Initializing SQLite database")

	schema := `
		-- Placement plans, one per region and structure category
		CREATE TABLE IF NOT EXISTS plans (
			region TEXT NOT NULL,
			category TEXT NOT NULL,
			planned BOOLEAN NOT NULL DEFAULT 0,
			positions_json TEXT NOT NULL,
			realized_count INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			tick INTEGER NOT NULL DEFAULT 0,
			digest TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY(region, category)
		);

		CREATE INDEX IF NOT EXISTS idx_plans_updated_at ON plans(updated_at);

		-- Settings table
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info().Msg("Database schema initialized")
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info().Msg("Closing database connection")
	return s.db.Close()
}

// SavePlan inserts or wholesale replaces a plan
func (s *SQLiteStore) SavePlan(ctx context.Context, plan *Plan) error {
	positionsJSON, err := json.Marshal(plan.Positions)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	plan.UpdatedAt = time.Now()

	query := `
		INSERT INTO plans (region, category, planned, positions_json, realized_count, level, tick, digest, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(region, category) DO UPDATE SET
			planned = excluded.planned,
			positions_json = excluded.positions_json,
			realized_count = excluded.realized_count,
			level = excluded.level,
			tick = excluded.tick,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		string(plan.Region),
		string(plan.Category),
		plan.Planned,
		string(positionsJSON),
		plan.Count,
		plan.Level,
		int64(plan.Tick),
		plan.Digest,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	s.logger.Debug().
		Str("region", string(plan.Region)).
		Str("category", string(plan.Category)).
		Int("positions", len(plan.Positions)).
		Msg("Saved plan")
	return nil
}

const planColumns = `region, category, planned, positions_json, realized_count, level, tick, digest, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*Plan, error) {
	var plan Plan
	var region, category, positionsJSON string
	var tick int64

	if err := row.Scan(
		&region,
		&category,
		&plan.Planned,
		&positionsJSON,
		&plan.Count,
		&plan.Level,
		&tick,
		&plan.Digest,
		&plan.UpdatedAt,
	); err != nil {
		return nil, err
	}

	plan.Region = world.RegionID(region)
	plan.Category = world.Category(category)
	plan.Tick = world.Tick(tick)
	if err := json.Unmarshal([]byte(positionsJSON), &plan.Positions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal positions: %w", err)
	}
	return &plan, nil
}

// GetPlan retrieves the plan for a region and category
func (s *SQLiteStore) GetPlan(ctx context.Context, region world.RegionID, category world.Category) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE region = ? AND category = ?`

	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, string(region), string(category)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrPlanNotFound, region, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListPlans retrieves every plan of a region, or of all regions when region is empty
func (s *SQLiteStore) ListPlans(ctx context.Context, region world.RegionID) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans`
	var args []any
	if region != "" {
		query += ` WHERE region = ?`
		args = append(args, string(region))
	}
	query += ` ORDER BY region, category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}

	return plans, rows.Err()
}

// SetRealizedCount updates only the realized count of an existing plan
func (s *SQLiteStore) SetRealizedCount(ctx context.Context, region world.RegionID, category world.Category, count int) error {
	query := `UPDATE plans SET realized_count = ?, updated_at = ? WHERE region = ? AND category = ?`
	result, err := s.db.ExecContext(ctx, query, count, time.Now(), string(region), string(category))
	if err != nil {
		return fmt.Errorf("failed to update realized count: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrPlanNotFound, region, category)
	}
	return nil
}

// DeletePlans deletes every plan of a region
func (s *SQLiteStore) DeletePlans(ctx context.Context, region world.RegionID) error {
	query := `DELETE FROM plans WHERE region = ?`
	result, err := s.db.ExecContext(ctx, query, string(region))
	if err != nil {
		return fmt.Errorf("failed to delete plans: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	s.logger.Info().Str("region", string(region)).Int64("rows_deleted", rowsAffected).Msg("Deleted region plans")
	return nil
}

// GetSetting retrieves a setting value.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = ?`
	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting not found: %s", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// SetSetting stores a setting value.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}
