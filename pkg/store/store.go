// Package store persists loaded people to PostgreSQL through a pgx
// connection pool. All rows of a batch are written in one transaction.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Table is the people table name.
const Table = "swapi_people"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS swapi_people (
	id         SERIAL PRIMARY KEY,
	name       TEXT,
	birth_year TEXT,
	eye_color  TEXT,
	films      TEXT,
	gender     TEXT,
	hair_color TEXT,
	height     TEXT,
	homeworld  TEXT,
	mass       TEXT,
	skin_color TEXT,
	species    TEXT,
	starships  TEXT,
	vehicles   TEXT
)`

var insertSQL = buildInsert()

func buildInsert() string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// Config holds store settings.
type Config struct {
	// DatabaseURL is a postgres:// connection string.
	DatabaseURL string

	// MaxConns caps the pool size. 0 keeps the pgx default.
	MaxConns int
}

// Store writes people rows to PostgreSQL. It is safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates a connection pool and verifies the database is reachable.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, &PersistenceError{Op: "connect", Err: fmt.Errorf("parse database URL: %w", err)}
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &PersistenceError{Op: "connect", Err: fmt.Errorf("create connection pool: %w", err)}
	}

	s := &Store{
		pool:   pool,
		logger: log.With().Str("component", "store").Logger(),
	}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("db", poolConfig.ConnConfig.Database).
		Msg("Database connected")

	return s, nil
}

// Ping checks database health.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

// EnsureSchema creates the people table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return &PersistenceError{Op: "schema", Err: err}
	}
	return nil
}

// InsertPeople inserts rows in a single transaction and returns the number
// of rows written. Rows are always appended; on any error the transaction
// is rolled back and nothing is written. An empty rows slice is a no-op.
func (s *Store) InsertPeople(ctx context.Context, rows []Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "begin", Err: err}
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertSQL, row.values()...)
	}

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for i := range rows {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, &PersistenceError{Op: "insert", Err: fmt.Errorf("row %d (%s): %w", i, rows[i].Name, err)}
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, &PersistenceError{Op: "insert", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &PersistenceError{Op: "commit", Err: err}
	}

	s.logger.Info().
		Int64("rows", inserted).
		Dur("duration", time.Since(start)).
		Msg("People inserted")

	return inserted, nil
}

// Count returns the number of stored people.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+Table).Scan(&n); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// List returns every stored row in insertion order.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(columns, ", "), Table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.Name, &r.BirthYear, &r.EyeColor, &r.Films, &r.Gender, &r.HairColor,
			&r.Height, &r.Homeworld, &r.Mass, &r.SkinColor, &r.Species, &r.Starships,
			&r.Vehicles,
		); err != nil {
			return nil, &PersistenceError{Op: "list", Err: fmt.Errorf("scan row: %w", err)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	return out, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.logger.Debug().Msg("Closing database connection pool")
	s.pool.Close()
}
