package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vehiclematch/backend/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS vehicles (
	position   INTEGER PRIMARY KEY,
	make       TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	model_year TEXT NOT NULL DEFAULT '',
	price      REAL NOT NULL,
	mileage    REAL NOT NULL,
	cluster    TEXT NOT NULL,
	stock_type TEXT NOT NULL DEFAULT '',
	extra      TEXT
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_vehicles_make ON vehicles(make)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_cluster ON vehicles(cluster)`,
}

// Store persists the vehicle catalog in a SQLite database. Row order is
// kept in the position column.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create index: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace overwrites the stored catalog in one transaction
func (s *Store) Replace(ctx context.Context, vehicles []domain.Vehicle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles`); err != nil {
		return fmt.Errorf("clear vehicles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vehicles
		(position, make, model, model_year, price, mileage, cluster, stock_type, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range vehicles {
		extra, err := encodeExtra(v.Extra)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, err := stmt.ExecContext(ctx,
			i, v.Make, v.Model, v.ModelYear, v.Price, v.Mileage, v.Cluster, v.StockType, extra,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// All returns the stored catalog in its original order
func (s *Store) All(ctx context.Context) ([]domain.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT make, model, model_year, price, mileage, cluster, stock_type, extra
		FROM vehicles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var (
			v     domain.Vehicle
			extra sql.NullString
		)
		if err := rows.Scan(&v.Make, &v.Model, &v.ModelYear, &v.Price, &v.Mileage, &v.Cluster, &v.StockType, &extra); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &v.Extra); err != nil {
				return nil, fmt.Errorf("decode extra columns: %w", err)
			}
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}

	return vehicles, nil
}

// Load implements domain.CatalogSource
func (s *Store) Load(ctx context.Context) ([]domain.Vehicle, error) {
	return s.All(ctx)
}

// Count returns the number of stored vehicles
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return n, nil
}

func encodeExtra(extra map[string]string) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
