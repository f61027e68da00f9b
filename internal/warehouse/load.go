package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/bloom"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// UnknownCategory fills orders_raw.product_category when no event names the
// product.
const UnknownCategory = "unknown"

const ordersStage = "orders_stage"

// bloomFPR is the target false positive rate of sidecar filters.
const bloomFPR = 0.01

// OrdersTableSchema is orders_raw as stored in the warehouse: the generated
// columns plus product_category after product_id.
func OrdersTableSchema() types.Schema {
	s := types.OrdersSchema()
	cols := make([]types.ColumnDef, 0, len(s.Columns)+1)
	for _, c := range s.Columns {
		cols = append(cols, c)
		if c.Name == "product_id" {
			cols = append(cols, types.ColumnDef{Name: "product_category", Type: "TEXT"})
		}
	}
	s.Columns = cols
	return s
}

// createTableSQL renders a schema as a CREATE TABLE statement.
func createTableSQL(table string, s types.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(table))
	var pk []string
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t%s %s", quoteIdent(c.Name), c.Type)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.PrimaryKey {
			pk = append(pk, quoteIdent(c.Name))
		}
	}
	if len(pk) > 0 {
		fmt.Fprintf(&b, ",\n\tPRIMARY KEY (%s)", strings.Join(pk, ", "))
	}
	b.WriteString("\n)")
	return b.String()
}

func createIndexSQL(table string, idx types.IndexDef) string {
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = quoteIdent(c)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)", unique, quoteIdent(idx.Name), quoteIdent(table), strings.Join(cols, ", "))
}

func insertSQL(table string, s types.Schema) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(s.Columns)), ", ")
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(table), strings.Join(cols, ", "), marks)
}

// dropOrder lists everything Load replaces, dependants first.
var dropOrder = []string{
	"DROP VIEW IF EXISTS v_funnel_metrics",
	"DROP VIEW IF EXISTS v_cohort_retention",
	"DROP VIEW IF EXISTS v_ab_test_summary",
	"DROP TABLE IF EXISTS cohort_retention_rates",
	"DROP TABLE IF EXISTS cohort_sizes",
	"DROP TABLE IF EXISTS cohort_retention",
	"DROP TABLE IF EXISTS cohort_activity",
	"DROP TABLE IF EXISTS cohort_users",
	"DROP TABLE IF EXISTS funnel_sessions",
	"DROP TABLE IF EXISTS user_sessions",
	"DROP TABLE IF EXISTS orders_raw",
	"DROP TABLE IF EXISTS " + ordersStage,
	"DROP TABLE IF EXISTS events_raw",
	"DROP TABLE IF EXISTS sessions_raw",
	"DROP TABLE IF EXISTS users_raw",
}

// Load replaces the raw tables with ds, builds their indexes and writes the
// sidecar manifest next to the database.
func (w *Warehouse) Load(ctx context.Context, ds *types.Dataset) (*Manifest, error) {
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "begin transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range dropOrder {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, errors.NewWarehouseError(errors.CodeLoadFailed, stmt, err)
		}
	}

	m := newManifest(w.path)

	users := types.UsersSchema()
	if err := createTable(ctx, tx, users.Table, users, true); err != nil {
		return nil, err
	}
	var userStats StatsTracker
	err = insertRows(ctx, tx, users.Table, users, ds.Users, func(u types.User) []any {
		date := u.SignupDate.UTC().Format(types.DateLayout)
		userStats.Update(u.UserID, date)
		return []any{u.UserID, date, string(u.Device), string(u.Country), boolInt(u.IsBot), string(u.LoyaltyTier), string(u.ABVariant)}
	})
	if err != nil {
		return nil, err
	}
	m.Tables[users.Table] = userStats.Stats("signup_date")

	sessions := types.SessionsSchema()
	if err := createTable(ctx, tx, sessions.Table, sessions, true); err != nil {
		return nil, err
	}
	var sessionStats StatsTracker
	err = insertRows(ctx, tx, sessions.Table, sessions, ds.Sessions, func(s types.Session) []any {
		ts := formatTS(s.StartTime)
		sessionStats.Update(s.UserID, ts)
		return []any{s.SessionID, s.UserID, ts, string(s.Source)}
	})
	if err != nil {
		return nil, err
	}
	m.Tables[sessions.Table] = sessionStats.Stats("start_time")

	events := types.EventsSchema()
	if err := createTable(ctx, tx, events.Table, events, true); err != nil {
		return nil, err
	}
	var eventStats StatsTracker
	eventUsers := bloom.ForCapacity(len(ds.Users), bloomFPR)
	seen := make(map[int64]struct{}, len(ds.Users))
	err = insertRows(ctx, tx, events.Table, events, ds.Events, func(e types.Event) []any {
		ts := formatTS(e.TS)
		eventStats.Update(e.UserID, ts)
		if _, ok := seen[e.UserID]; !ok {
			seen[e.UserID] = struct{}{}
			eventUsers.AddID(e.UserID)
		}
		var variant any
		if e.Variant != nil {
			variant = string(*e.Variant)
		}
		return []any{
			e.EventID, e.UserID, nullable(e.SessionID), e.EventType.String(), string(e.Page),
			nullable(e.ProductID), nullable(e.ProductCategory), ts, string(e.Source), string(e.Device),
			nullable(e.ABTestID), variant,
		}
	})
	if err != nil {
		return nil, err
	}
	m.Tables[events.Table] = eventStats.Stats("ts")
	m.BloomFilters[events.Table+".user_id"] = eventUsers.Encode()

	var orderStats StatsTracker
	if err := w.loadOrders(ctx, tx, ds.Orders, &orderStats); err != nil {
		return nil, err
	}
	m.Tables["orders_raw"] = orderStats.Stats("ts")

	if err := tx.Commit(); err != nil {
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "commit", err)
	}

	if info, err := os.Stat(w.path); err == nil {
		m.SizeBytes = info.Size()
	}
	if err := m.WriteToFile(ManifestPath(w.path)); err != nil {
		return nil, errors.NewWarehouseError(errors.CodeLoadFailed, "write manifest", err)
	}

	logging.Timed(w.logger, "warehouse loaded", start,
		"users", len(ds.Users), "sessions", len(ds.Sessions),
		"events", len(ds.Events), "orders", len(ds.Orders))
	return m, nil
}

// loadOrders stages the generated orders and resolves product_category from
// the events that name each product.
func (w *Warehouse) loadOrders(ctx context.Context, tx *sql.Tx, orders []types.Order, stats *StatsTracker) error {
	stage := types.OrdersSchema()
	if err := createTable(ctx, tx, ordersStage, stage, false); err != nil {
		return err
	}
	err := insertRows(ctx, tx, ordersStage, stage, orders, func(o types.Order) []any {
		ts := formatTS(o.TS)
		stats.Update(o.UserID, ts)
		return []any{o.OrderID, o.UserID, o.ProductID, o.Price, o.Quantity, o.DiscountAmount, ts, string(o.PaymentStatus)}
	})
	if err != nil {
		return err
	}

	// Indexes go on after the category join.
	final := OrdersTableSchema()
	if err := createTable(ctx, tx, final.Table, final, false); err != nil {
		return err
	}
	resolve := `
		INSERT INTO orders_raw
		SELECT
			o.order_id, o.user_id, o.product_id,
			COALESCE(e.product_category, ?) AS product_category,
			o.price, o.quantity, o.discount_amount, o.ts, o.payment_status
		FROM ` + ordersStage + ` o
		LEFT JOIN (
			SELECT product_id, MIN(product_category) AS product_category
			FROM events_raw
			WHERE product_id IS NOT NULL AND product_category IS NOT NULL
			GROUP BY product_id
		) e ON o.product_id = e.product_id
	`
	if _, err := tx.ExecContext(ctx, resolve, UnknownCategory); err != nil {
		return errors.NewWarehouseError(errors.CodeLoadFailed, "resolve order categories", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE "+ordersStage); err != nil {
		return errors.NewWarehouseError(errors.CodeLoadFailed, "drop order stage", err)
	}
	return createIndexes(ctx, tx, final)
}

func createTable(ctx context.Context, tx *sql.Tx, table string, s types.Schema, withIndexes bool) error {
	if _, err := tx.ExecContext(ctx, createTableSQL(table, s)); err != nil {
		return errors.NewWarehouseError(errors.CodeLoadFailed, "create "+table, err)
	}
	if !withIndexes {
		return nil
	}
	return createIndexes(ctx, tx, s)
}

func createIndexes(ctx context.Context, tx *sql.Tx, s types.Schema) error {
	for _, idx := range s.Indexes {
		if _, err := tx.ExecContext(ctx, createIndexSQL(s.Table, idx)); err != nil {
			return errors.NewWarehouseError(errors.CodeLoadFailed, "create index "+idx.Name, err)
		}
	}
	return nil
}

func insertRows[T any](ctx context.Context, tx *sql.Tx, table string, s types.Schema, rows []T, values func(T) []any) error {
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, s))
	if err != nil {
		return errors.NewWarehouseError(errors.CodeLoadFailed, "prepare insert into "+table, err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, values(r)...); err != nil {
			return errors.NewWarehouseError(errors.CodeLoadFailed, fmt.Sprintf("insert row %d into %s", i, table), err)
		}
	}
	return nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(types.TimestampLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
