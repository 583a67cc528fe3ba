package store

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"campustrack/internal/config"
)

// DB is the shared Postgres handle behind the attendance and auth
// repositories. Pool sizing comes from config; the scan ingest path holds
// connections only for single-statement transactions, so the pool stays
// small.
type DB struct {
	Client *sql.DB
}

// NewDB opens the attendance database and verifies connectivity.
func NewDB(cfg config.App) (*DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	return &DB{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
