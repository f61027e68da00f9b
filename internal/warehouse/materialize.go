package warehouse

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Step is one materialization script and the table it produces.
type Step struct {
	File  string
	Table string
}

// Steps returns the materialization scripts in execution order.
func Steps() []Step {
	return []Step{
		{File: "sql/01_user_sessions.sql", Table: "user_sessions"},
		{File: "sql/02_funnel_sessions.sql", Table: "funnel_sessions"},
		{File: "sql/03_cohort_users.sql", Table: "cohort_users"},
		{File: "sql/04_cohort_activity.sql", Table: "cohort_activity"},
		{File: "sql/05_cohort_retention.sql", Table: "cohort_retention"},
		{File: "sql/06_cohort_sizes.sql", Table: "cohort_sizes"},
		{File: "sql/07_cohort_retention_rates.sql", Table: "cohort_retention_rates"},
	}
}

const viewsFile = "sql/08_views.sql"

// Materialized reports the row count of one produced table.
type Materialized struct {
	Table string
	Rows  int64
}

// Materialize runs every step over the loaded raw tables, then checks that
// no retention rate exceeds 1.
func (w *Warehouse) Materialize(ctx context.Context) ([]Materialized, error) {
	out := make([]Materialized, 0, len(Steps()))
	for _, step := range Steps() {
		start := time.Now()
		if err := w.execFile(ctx, step.File); err != nil {
			return out, errors.NewWarehouseError(errors.CodeMaterializeFailed, step.Table, err)
		}
		n, err := w.RowCount(ctx, step.Table)
		if err != nil {
			return out, errors.NewWarehouseError(errors.CodeMaterializeFailed, step.Table, err)
		}
		logging.Timed(w.logger, "materialized", start, "table", step.Table, "rows", n)
		out = append(out, Materialized{Table: step.Table, Rows: n})
	}

	if err := w.CheckRetention(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// CheckRetention fails when any cohort_retention_rates row exceeds 1.
func (w *Warehouse) CheckRetention(ctx context.Context) error {
	var invalid int64
	err := w.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cohort_retention_rates WHERE retention_rate > 1.0").Scan(&invalid)
	if err != nil {
		return errors.NewWarehouseError(errors.CodeCheckFailed, "query retention rates", err)
	}
	if invalid > 0 {
		return errors.NewWarehouseError(errors.CodeCheckFailed,
			fmt.Sprintf("%d cohort rows have retention_rate > 1", invalid), nil).
			WithDetails(map[string]interface{}{"rows": invalid})
	}
	return nil
}

// CreateViews (re)creates the BI views.
func (w *Warehouse) CreateViews(ctx context.Context) error {
	if err := w.execFile(ctx, viewsFile); err != nil {
		return errors.NewWarehouseError(errors.CodeMaterializeFailed, "create views", err)
	}
	return nil
}

// execFile runs a multi-statement script.
func (w *Warehouse) execFile(ctx context.Context, name string) error {
	script, err := sqlFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("warehouse: read %s: %w", name, err)
	}
	if _, err := w.db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("warehouse: exec %s: %w", name, err)
	}
	return nil
}
