// Package repo implements the record store for the gym club, backed by GORM
// over embedded SQLite files. This file contains database bootstrapping
// helpers (pure Go driver, PRAGMAs, optional query tracing) and the schema
// migrations of the two logical stores:
//
//   - the gym store holds members and classes;
//   - the chat store holds chats.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/gymclub/internal/domain"
)

// Options tunes OpenSQLite.
type Options struct {
	// BusyTimeout is how long a writer waits on a locked database file.
	BusyTimeout time.Duration
	// Logger replaces GORM's default logger when set.
	Logger logger.Interface
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	gcfg := &gorm.Config{}
	if opts.Logger != nil {
		gcfg.Logger = opts.Logger
	}
	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busy.Milliseconds()))

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// EnableTracing registers the OpenTelemetry GORM plugin so every query
// becomes a child span of the caller's context. Metrics from the plugin are
// disabled; store metrics are recorded by the repositories.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// Close releases the underlying *sql.DB.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MigrateGymStore creates or updates the members and classes tables.
func MigrateGymStore(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Member{},
		&domain.ClassRecord{},
	)
}

// MigrateChatStore creates or updates the chats table.
func MigrateChatStore(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ChatRecord{})
}
