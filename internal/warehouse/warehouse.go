// Package warehouse loads generated datasets into a SQLite analytical store,
// materializes the sessionization, funnel and cohort tables, and exports the
// BI views as delimited text.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
)

// Warehouse is an open SQLite database file.
type Warehouse struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Warehouse, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "create database directory", err)
	}

	db, err := sql.Open("sqlite3", filepath.Clean(path))
	if err != nil {
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "open "+path, err)
	}
	// A single connection keeps temp tables and pragmas on one session.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "open "+path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "set journal mode", err)
	}

	return &Warehouse{db: db, path: path, logger: logging.OrDiscard(logger)}, nil
}

// Path returns the database file path.
func (w *Warehouse) Path() string {
	return w.path
}

// DB exposes the underlying handle for ad-hoc queries.
func (w *Warehouse) DB() *sql.DB {
	return w.db
}

// Close checkpoints the WAL and leaves the file in rollback-journal mode so
// it can be copied or published as a single file.
func (w *Warehouse) Close() error {
	ctx := context.Background()
	if _, err := w.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		w.db.Close()
		return fmt.Errorf("warehouse: failed to checkpoint WAL: %w", err)
	}
	if _, err := w.db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		w.db.Close()
		return fmt.Errorf("warehouse: failed to set journal mode to DELETE: %w", err)
	}
	return w.db.Close()
}

// RowCount returns COUNT(*) of a table or view.
func (w *Warehouse) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("warehouse: count %s: %w", table, err)
	}
	return n, nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
