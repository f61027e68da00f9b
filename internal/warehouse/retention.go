package warehouse

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
)

// RetentionMatrix pivots cohort_retention_rates into cohort_week rows and
// cohort_index columns. Rates[i][j] is nil when cohort i had no activity in
// period j.
type RetentionMatrix struct {
	Cohorts []string
	Periods int
	Sizes   []int64
	Rates   [][]*float64
}

// Retention reads the materialized retention rates back as a matrix.
func (w *Warehouse) Retention(ctx context.Context) (*RetentionMatrix, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT cohort_week, cohort_index, cohort_size, retention_rate
		FROM cohort_retention_rates
		ORDER BY cohort_week, cohort_index`)
	if err != nil {
		return nil, errors.NewWarehouseError(errors.CodeCheckFailed, "query retention rates", err)
	}
	defer rows.Close()

	m := &RetentionMatrix{}
	index := make(map[string]int)
	type cell struct {
		row, col int
		rate     float64
	}
	var cells []cell
	for rows.Next() {
		var (
			week string
			idx  int
			size int64
			rate float64
		)
		if err := rows.Scan(&week, &idx, &size, &rate); err != nil {
			return nil, errors.NewWarehouseError(errors.CodeCheckFailed, "scan retention row", err)
		}
		r, ok := index[week]
		if !ok {
			r = len(m.Cohorts)
			index[week] = r
			m.Cohorts = append(m.Cohorts, week)
			m.Sizes = append(m.Sizes, size)
		}
		if idx+1 > m.Periods {
			m.Periods = idx + 1
		}
		cells = append(cells, cell{r, idx, rate})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewWarehouseError(errors.CodeCheckFailed, "read retention rows", err)
	}

	m.Rates = make([][]*float64, len(m.Cohorts))
	for i := range m.Rates {
		m.Rates[i] = make([]*float64, m.Periods)
	}
	for _, c := range cells {
		rate := c.rate
		m.Rates[c.row][c.col] = &rate
	}
	return m, nil
}

// Write renders the first maxPeriods columns as an aligned table.
func (m *RetentionMatrix) Write(w io.Writer, maxPeriods int) error {
	periods := m.Periods
	if maxPeriods > 0 && maxPeriods < periods {
		periods = maxPeriods
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "cohort_week\tsize\t")
	for j := 0; j < periods; j++ {
		fmt.Fprintf(tw, "w%d\t", j)
	}
	fmt.Fprintln(tw)
	for i, week := range m.Cohorts {
		fmt.Fprintf(tw, "%s\t%d\t", week, m.Sizes[i])
		for j := 0; j < periods; j++ {
			if r := m.Rates[i][j]; r != nil {
				fmt.Fprint(tw, strconv.FormatFloat(*r*100, 'f', 1, 64)+"%\t")
			} else {
				fmt.Fprint(tw, "-\t")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
