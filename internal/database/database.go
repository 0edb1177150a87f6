package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"carbook/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrRangeConflict = errors.New("date range overlaps an existing booking")
)

type DB struct {
	*sql.DB
	logger       *zerolog.Logger
	allowOverlap bool
}

type Option func(*DB)

// WithAllowOverlap disables the overlap check on insert and update.
func WithAllowOverlap(allow bool) Option {
	return func(db *DB) {
		db.allowOverlap = allow
	}
}

func NewDB(path string, logger *zerolog.Logger, opts ...Option) (*DB, error) {
	if path != ":memory:" {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite пишет в один поток, а :memory: живет только в одном соединении
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: conn, logger: logger}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Bool("allow_overlap", db.allowOverlap).Msg("Database initialized")
	return db, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            pin_hash TEXT NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS cars (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            image_url TEXT NOT NULL DEFAULT '',
            make TEXT NOT NULL DEFAULT '',
            model TEXT NOT NULL DEFAULT '',
            year INTEGER NOT NULL DEFAULT 0,
            license_plate TEXT NOT NULL DEFAULT '',
            odometer_reading TEXT NOT NULL DEFAULT '',
            maintenance_date TEXT,
            maintenance_type TEXT NOT NULL DEFAULT '',
            service_provider_name TEXT NOT NULL DEFAULT '',
            service_provider_contact TEXT NOT NULL DEFAULT '',
            parts_replaced TEXT NOT NULL DEFAULT '',
            cost REAL NOT NULL DEFAULT 0,
            next_maintenance_date TEXT,
            remarks TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            car_id INTEGER NOT NULL REFERENCES cars(id) ON DELETE CASCADE,
            from_date TEXT NOT NULL,
            to_date TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            summary TEXT NOT NULL DEFAULT '',
            pickup_image_url TEXT NOT NULL DEFAULT '',
            drop_image_url TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            CHECK (from_date <= to_date)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_car_id ON bookings(car_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_car_range ON bookings(car_id, from_date, to_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// Ping проверяет доступность базы для readiness-проверки.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}

func nullableDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func scanNullableDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
