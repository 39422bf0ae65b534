// Package database opens and pools connections for the two supported
// engines, PostgreSQL and MySQL.
package database

import (
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

// Config carries the pool settings for Connect.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Connect opens the pool and verifies it with a ping before anything depends
// on it. Failures carry the store error kind so startup can distinguish a
// broken key-record store from broken key material.
func Connect(cfg Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to open database: %v", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to ping database: %v", err)
	}

	return db, nil
}
