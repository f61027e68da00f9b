package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

func openTemp(t *testing.T) *Warehouse {
	t.Helper()
	w, err := Open(context.Background(), filepath.Join(t.TempDir(), "warehouse.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func generated(t *testing.T, users int) *types.Dataset {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Seed = 11
	cfg.Population.Users = users
	cfg.Sessions.Target = users * 3
	g, err := generator.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return &res.Dataset
}

func at(s string) time.Time {
	t, err := time.Parse(types.TimestampLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// handmade is one user with two browsing bursts 35 minutes apart and a
// successful order in the following week.
func handmade() *types.Dataset {
	day := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC) // Wednesday
	sid := types.Ptr("s-1")
	v := types.VariantControl
	ev := func(id string, et types.EventType, ts string, product *int64) types.Event {
		e := types.Event{
			EventID: id, UserID: 1, SessionID: sid, EventType: et, TS: at(ts),
			Source: types.SourceOrganic, Device: types.DeviceDesktop, Page: types.PageHome,
		}
		if product != nil {
			e.ProductID = product
			e.ProductCategory = types.Ptr(types.CategoryFor(*product))
			e.Page = types.PageProduct
		}
		if et >= types.EventCheckout {
			e.Page = types.PageCheckout
			e.ABTestID = types.Ptr("checkout_layout_test_1")
			e.Variant = &v
		}
		return e
	}
	p := types.Ptr(int64(7))
	return &types.Dataset{
		Users: []types.User{{
			UserID: 1, SignupDate: day, Device: types.DeviceDesktop, Country: types.CountryDE,
			LoyaltyTier: types.TierGold, ABVariant: types.VariantControl,
		}},
		Sessions: []types.Session{{SessionID: "s-1", UserID: 1, StartTime: at("2024-01-10 10:00:00"), Source: types.SourceOrganic}},
		Events: []types.Event{
			ev("e1", types.EventVisit, "2024-01-10 10:00:00", nil),
			ev("e2", types.EventProductView, "2024-01-10 10:20:00", p),
			ev("e3", types.EventAddToCart, "2024-01-10 10:55:00", p),
			ev("e4", types.EventCheckout, "2024-01-10 10:56:00", nil),
			ev("e5", types.EventPurchase, "2024-01-10 10:58:00", p),
		},
		Orders: []types.Order{
			{OrderID: "o1", UserID: 1, ProductID: 7, Price: 20, Quantity: 1, TS: at("2024-01-10 10:58:00"), PaymentStatus: types.PaymentSuccess},
			{OrderID: "o2", UserID: 1, ProductID: 99, Price: 15, Quantity: 2, TS: at("2024-01-10 11:00:00"), PaymentStatus: types.PaymentFailed},
		},
	}
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL("sessions_raw", types.SessionsSchema())
	want := "CREATE TABLE \"sessions_raw\" (\n" +
		"\t\"session_id\" TEXT NOT NULL,\n" +
		"\t\"user_id\" INTEGER NOT NULL,\n" +
		"\t\"start_time\" TEXT NOT NULL,\n" +
		"\t\"source\" TEXT NOT NULL,\n" +
		"\tPRIMARY KEY (\"session_id\")\n)"
	if got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestOrdersTableSchema(t *testing.T) {
	s := OrdersTableSchema()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	names := s.ColumnNames()
	if names[2] != "product_id" || names[3] != "product_category" {
		t.Errorf("columns = %v", names)
	}
	if len(types.OrdersSchema().Columns) != len(names)-1 {
		t.Error("OrdersSchema was modified in place")
	}
}

func TestLoadHandmade(t *testing.T) {
	ctx := context.Background()
	w := openTemp(t)

	m, err := w.Load(ctx, handmade())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for table, want := range map[string]int64{"users_raw": 1, "sessions_raw": 1, "events_raw": 5, "orders_raw": 2} {
		n, err := w.RowCount(ctx, table)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Errorf("%s has %d rows, want %d", table, n, want)
		}
		if m.Tables[table].RowCount != want {
			t.Errorf("manifest %s row_count = %d", table, m.Tables[table].RowCount)
		}
	}

	_, rows, err := w.Query(ctx, "SELECT order_id, product_category FROM orders_raw ORDER BY order_id")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][1] != "fashion" || rows[1][1] != UnknownCategory {
		t.Errorf("categories = %v", rows)
	}

	_, rows, err = w.Query(ctx, "SELECT COUNT(*) FROM events_raw WHERE product_id IS NULL AND variant IS NULL")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "1" {
		t.Errorf("visit row should carry NULLs, got %v", rows)
	}

	ev := m.Tables["events_raw"]
	if *ev.MinTime != "2024-01-10 10:00:00" || *ev.MaxTime != "2024-01-10 10:58:00" {
		t.Errorf("event time range %s..%s", *ev.MinTime, *ev.MaxTime)
	}
}

func TestMaterializeHandmade(t *testing.T) {
	ctx := context.Background()
	w := openTemp(t)
	if _, err := w.Load(ctx, handmade()); err != nil {
		t.Fatal(err)
	}
	out, err := w.Materialize(ctx)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(out) != len(Steps()) {
		t.Fatalf("materialized %d tables", len(out))
	}

	// The 35 minute gap before add_to_cart splits the burst in two.
	_, rows, err := w.Query(ctx, `
		SELECT derived_session_id, has_visit, has_product_view, has_add_to_cart, has_purchase
		FROM funnel_sessions ORDER BY derived_session_id`)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"1-1", "1", "1", "0", "0"}, {"1-2", "0", "0", "1", "1"}}
	if strings.Join(flatten(rows), ",") != strings.Join(flatten(want), ",") {
		t.Errorf("funnel_sessions = %v", rows)
	}

	_, rows, err = w.Query(ctx, "SELECT cohort_week FROM cohort_users")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "2024-01-01" {
		t.Errorf("cohort_week = %s, want the Monday 2024-01-01", rows[0][0])
	}

	// The failed order does not count as activity.
	_, rows, err = w.Query(ctx, "SELECT cohort_index, users_active, cohort_size, retention_rate FROM cohort_retention_rates")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || strings.Join(rows[0], ",") != "1,1,1,1" {
		t.Errorf("retention rows = %v", rows)
	}

	mat, err := w.Retention(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if mat.Periods != 2 || mat.Rates[0][0] != nil || *mat.Rates[0][1] != 1 {
		t.Errorf("matrix = %+v", mat)
	}
	var b strings.Builder
	if err := mat.Write(&b, 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "100.0%") || !strings.Contains(b.String(), "2024-01-01") {
		t.Errorf("rendered matrix:\n%s", b.String())
	}
}

func flatten(rows [][]string) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func TestCheckRetentionRejectsRatesAboveOne(t *testing.T) {
	ctx := context.Background()
	w := openTemp(t)
	if _, err := w.DB().ExecContext(ctx,
		"CREATE TABLE cohort_retention_rates AS SELECT '2024-01-01' AS cohort_week, 0 AS cohort_index, 2 AS users_active, 1 AS cohort_size, 2.0 AS retention_rate"); err != nil {
		t.Fatal(err)
	}
	err := w.CheckRetention(ctx)
	if errors.GetCode(err) != errors.CodeCheckFailed {
		t.Fatalf("err = %v", err)
	}
}

func TestGeneratedPipeline(t *testing.T) {
	ctx := context.Background()
	ds := generated(t, 400)
	w := openTemp(t)

	m, err := w.Load(ctx, ds)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Loading twice replaces the tables.
	if _, err := w.Load(ctx, ds); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	n, err := w.RowCount(ctx, "events_raw")
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len(ds.Events)) {
		t.Errorf("events_raw has %d rows, want %d", n, len(ds.Events))
	}

	_, rows, err := w.Query(ctx, "SELECT COUNT(*) FROM orders_raw WHERE product_category = ?", UnknownCategory)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "0" {
		t.Errorf("%s orders lack a category", rows[0][0])
	}

	if _, err := w.Materialize(ctx); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	dir := t.TempDir()
	exported, err := w.Export(ctx, dir)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported) != len(Views()) {
		t.Fatalf("exported %d views", len(exported))
	}
	for _, e := range exported {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != e.Rows+1 {
			t.Errorf("%s has %d lines for %d rows", e.View, len(lines), e.Rows)
		}
	}
	if exported[0].Rows != 5 {
		t.Errorf("v_funnel_metrics has %d rows, want one per stage", exported[0].Rows)
	}

	_, rows, err = w.Query(ctx, "SELECT COUNT(*) FROM v_ab_test_summary")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "2" {
		t.Errorf("v_ab_test_summary has %s arms", rows[0][0])
	}

	side, err := ReadManifest(ManifestPath(w.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if side.Tables["users_raw"].RowCount != m.Tables["users_raw"].RowCount {
		t.Error("sidecar differs from returned manifest")
	}
	for _, e := range ds.Events {
		ok, err := side.MayContainUser(e.UserID)
		if err != nil || !ok {
			t.Fatalf("user %d missing from filter (err=%v)", e.UserID, err)
		}
	}
	if ok, _ := side.MayContainUser(-5); ok {
		t.Error("ids below the range should be excluded")
	}
}

func TestManifestPath(t *testing.T) {
	if got := ManifestPath(filepath.Join("out", "warehouse.db")); got != filepath.Join("out", "warehouse.meta.json") {
		t.Errorf("ManifestPath = %s", got)
	}
}
