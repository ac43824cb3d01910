// Copyright (c) 2026 Keymaster Team
// Keyview - key and credential object model
// This source code is licensed under the MIT license found in the LICENSE file.

// Package store persists object metadata to SQLite, PostgreSQL or MySQL.
//
// The store keeps one record per (id, source) pair. It does not hold key
// material; it remembers which objects were seen where so they can be shown
// (as missing) once their backend is gone.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/toeirei/keyview/internal/logging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Store is a handle on the object database.
type Store struct {
	bun    *bun.DB
	dbType string
}

// Open connects to the database of the given type ("sqlite", "postgres",
// "mysql"), creates the schema when missing and returns the store.
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	driverName, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(sqlDB, dbType, dsn)
	logging.Debugf("store: opened %s driver in %s", driverName, time.Since(start))

	s := &Store{bun: createBunDB(sqlDB, dbType), dbType: dbType}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "mysql":
		return dbType, nil
	case "postgres":
		// the pgx stdlib registers itself as "pgx"
		return "pgx", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, dbType)
	}
}

// configurePool applies connection pool limits. Values can be overridden via
// KEYVIEW_DB_MAX_OPEN_CONNS, KEYVIEW_DB_MAX_IDLE_CONNS and
// KEYVIEW_DB_CONN_MAX_LIFETIME_SECONDS.
func configurePool(sqlDB *sql.DB, dbType, dsn string) {
	maxOpen := envInt("KEYVIEW_DB_MAX_OPEN_CONNS", 10)
	maxIdle := envInt("KEYVIEW_DB_MAX_IDLE_CONNS", 10)
	lifetime := time.Duration(envInt("KEYVIEW_DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

	// every connection to ":memory:" opens its own empty database
	if dbType == "sqlite" && dsn == ":memory:" {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// createBunDB wraps sqlDB with the dialect matching dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.bun.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Type returns the database type the store was opened with.
func (s *Store) Type() string { return s.dbType }

// Insert adds a single record. An existing (id, source) pair yields
// ErrDuplicate.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	_, err := s.bun.NewInsert().Model(rec).Exec(ctx)
	return MapDBError(err)
}

// Replace swaps the stored records for recs in one transaction. Records
// sharing (id, source) are merged first.
func (s *Store) Replace(ctx context.Context, recs []Record) error {
	recs = Merge(recs)
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Record)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		if len(recs) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&recs).Exec(ctx); err != nil {
			return fmt.Errorf("insert records: %w", MapDBError(err))
		}
		return nil
	})
}

// Save writes recs, replacing stored records with the same (id, source)
// and keeping all others. Records sharing (id, source) are merged first.
func (s *Store) Save(ctx context.Context, recs []Record) error {
	recs = Merge(recs)
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range recs {
			rec := &recs[i]
			if _, err := tx.NewDelete().Model((*Record)(nil)).
				Where("id = ?", rec.ID).
				Where("source = ?", rec.Source).
				Exec(ctx); err != nil {
				return fmt.Errorf("replace record %s: %w", rec.ID, err)
			}
			if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
				return fmt.Errorf("insert record %s: %w", rec.ID, MapDBError(err))
			}
		}
		return nil
	})
}

// Load returns every record ordered by id and source.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	var recs []Record
	if err := s.bun.NewSelect().Model(&recs).Order("id", "source").Scan(ctx); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return recs, nil
}

// Delete removes the records of id seen in source, or in every source when
// source is empty, and returns how many were removed. Deleting a missing
// record is not an error.
func (s *Store) Delete(ctx context.Context, id, source string) (int64, error) {
	q := s.bun.NewDelete().Model((*Record)(nil)).Where("id = ?", id)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Maintain runs engine specific housekeeping: PRAGMA optimize and VACUUM on
// SQLite, VACUUM ANALYZE on PostgreSQL, OPTIMIZE TABLE on MySQL.
func (s *Store) Maintain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var stmts []string
	switch s.dbType {
	case "sqlite":
		// optimize may be unsupported on some builds; VACUUM is what matters
		if _, err := s.bun.ExecContext(ctx, "PRAGMA optimize"); err != nil {
			logging.Debugf("store: sqlite optimize failed (ignored): %v", err)
		}
		stmts = []string{"VACUUM"}
	case "postgres":
		stmts = []string{"VACUUM ANALYZE objects"}
	case "mysql":
		stmts = []string{"OPTIMIZE TABLE objects"}
	}
	for _, q := range stmts {
		if _, err := s.bun.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("%s maintenance (%s) failed: %w", s.dbType, q, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.bun.Close()
}
