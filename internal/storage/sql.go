package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL driver and its placeholder style
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

type sqlQueries struct {
	create string
	load   string
	save   string
	delete string
}

var dialectQueries = map[Dialect]sqlQueries{
	DialectSQLite: {
		create: `create table if not exists history_slots (
			key        text primary key,
			data       text not null,
			updated_at integer not null
		)`,
		load:   `select data from history_slots where key = ?`,
		save:   `insert into history_slots (key, data, updated_at) values (?, ?, ?) on conflict(key) do update set data = excluded.data, updated_at = excluded.updated_at`,
		delete: `delete from history_slots where key = ?`,
	},
	DialectPostgres: {
		create: `create table if not exists history_slots (
			key        text primary key,
			data       text not null,
			updated_at bigint not null
		)`,
		load:   `select data from history_slots where key = $1`,
		save:   `insert into history_slots (key, data, updated_at) values ($1, $2, $3) on conflict(key) do update set data = excluded.data, updated_at = excluded.updated_at`,
		delete: `delete from history_slots where key = $1`,
	},
}

// SQLStorage keeps slots as rows of a history_slots table
type SQLStorage struct {
	dialect Dialect
	db      *sql.DB
	q       sqlQueries
}

// NewSQLStorage creates a SQL slot provider for the dialect
func NewSQLStorage(dialect Dialect) *SQLStorage {
	return &SQLStorage{dialect: dialect, q: dialectQueries[dialect]}
}

// Initialize opens the database from the dsn option and creates the table
func (s *SQLStorage) Initialize(config map[string]string) error {
	dsn := config["dsn"]
	if dsn == "" {
		if s.dialect != DialectSQLite {
			return fmt.Errorf("dsn is required for %s storage", s.dialect)
		}
		dsn = "file:./data/history.db"
	}

	db, err := sql.Open(string(s.dialect), dsn)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	if s.dialect == DialectSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, s.q.create); err != nil {
		db.Close()
		return fmt.Errorf("failed to create history_slots table: %w", err)
	}

	s.db = db
	return nil
}

// Load selects the slot row
func (s *SQLStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.q.load, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", key, err)
	}
	return []byte(data), nil
}

// Save upserts the slot row
func (s *SQLStorage) Save(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.q.save, key, string(data), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot row
func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, key); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// Close closes the database
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
