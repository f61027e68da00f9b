package warehouse

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/csvio"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
)

// View pairs a BI view with its export file name.
type View struct {
	Name string
	File string
}

// Views returns the exported views in export order.
func Views() []View {
	return []View{
		{Name: "v_funnel_metrics", File: "funnel_metrics.csv"},
		{Name: "v_cohort_retention", File: "cohort_retention.csv"},
		{Name: "v_ab_test_summary", File: "ab_test_summary.csv"},
	}
}

// Exported describes one written view file.
type Exported struct {
	View string
	Path string
	Rows int
}

// Export creates the views and writes each one to dir.
func (w *Warehouse) Export(ctx context.Context, dir string) ([]Exported, error) {
	if err := w.CreateViews(ctx); err != nil {
		return nil, err
	}

	out := make([]Exported, 0, len(Views()))
	for _, v := range Views() {
		path := filepath.Join(dir, v.File)
		n, err := w.exportQuery(ctx, "SELECT * FROM "+quoteIdent(v.Name), path)
		if err != nil {
			return out, errors.NewExportError(errors.CodeWriteFailed, v.Name, err)
		}
		w.logger.Debug("exported view", "view", v.Name, "path", path, "rows", n)
		out = append(out, Exported{View: v.Name, Path: path, Rows: n})
	}
	return out, nil
}

func (w *Warehouse) exportQuery(ctx context.Context, query, path string) (n int, err error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	f, err := csvio.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cw := csv.NewWriter(f)
	if err := cw.Write(cols); err != nil {
		return 0, err
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	record := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		for i, v := range vals {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Query runs an ad-hoc query and returns its rows as strings.
func (w *Warehouse) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("warehouse: query: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]string, [][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	var out [][]string
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = formatValue(v)
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}
