// Package db stores batch results in sqlite: one row per run, per scan and
// per fitted peak. Fit parameters are kept so a curve can be re-evaluated
// later without refitting.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/ccnfit/internal/monitoring"
)

var storeLog = monitoring.Component("store")

type DB struct {
	*sql.DB
}

// pragmas apply to the single pooled connection.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
}

// Open opens (creating if needed) the results database at path and brings
// its schema up to date.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// sqlite serialises writers anyway; one connection keeps the pragmas in
	// force for every statement.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	v, _, err := db.MigrateVersion()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	storeLog("opened %s at schema version %d", path, v)
	return db, nil
}
