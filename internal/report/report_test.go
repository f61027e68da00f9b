package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

func generate(t *testing.T, users int, mutate func(*config.Config)) (*config.Config, *generator.Result) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Population.Users = users
	cfg.Sessions.Target = users * 3
	if mutate != nil {
		mutate(cfg)
	}
	g, err := generator.New(cfg, nil)
	if err != nil {
		t.Fatalf("generator.New: %v", err)
	}
	res, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return cfg, res
}

func TestSummarizeCounts(t *testing.T) {
	cfg, res := generate(t, 1000, nil)
	s := Summarize(res, cfg)

	if s.Users != 1000 || s.Sessions != len(res.Sessions) || s.Events != len(res.Events) || s.Orders != len(res.Orders) {
		t.Fatalf("row counts wrong: %+v", s)
	}
	if s.Bots != 20 {
		t.Errorf("bots = %d, want 20", s.Bots)
	}
	if s.SessionsReaching[types.EventVisit] != len(res.Sessions) {
		t.Errorf("every session has a visit: got %d of %d", s.SessionsReaching[types.EventVisit], len(res.Sessions))
	}
	if s.SessionsReaching[types.EventPurchase] != s.EventCounts[types.EventPurchase] {
		t.Errorf("purchased sessions %d != purchase events %d",
			s.SessionsReaching[types.EventPurchase], s.EventCounts[types.EventPurchase])
	}
	for _, st := range s.Steps {
		if st.Rate < 0 || st.Rate > 1 {
			t.Errorf("step %s->%s rate %v out of range", st.From, st.To, st.Rate)
		}
	}

	var mix float64
	for _, v := range s.DeviceMix {
		mix += v
	}
	if mix < 0.999 || mix > 1.001 {
		t.Errorf("device mix sums to %v", mix)
	}

	orders := 0
	for _, n := range s.OrdersByCategory {
		orders += n
	}
	if orders != s.Orders {
		t.Errorf("category breakdown covers %d of %d orders", orders, s.Orders)
	}
}

func TestSummarizeOrderValues(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := &generator.Result{
		Dataset: types.Dataset{
			Orders: []types.Order{
				{ProductID: 1, Price: 20, Quantity: 2, TS: ts, PaymentStatus: types.PaymentSuccess},
				{ProductID: 2, Price: 15, DiscountAmount: 5, Quantity: 1, TS: ts, PaymentStatus: types.PaymentSuccess},
				{ProductID: 3, Price: 100, Quantity: 1, TS: ts, PaymentStatus: types.PaymentFailed},
			},
		},
	}
	s := Summarize(res, config.DefaultConfig())

	if s.Revenue != 50 {
		t.Errorf("revenue = %v, want 50", s.Revenue)
	}
	if s.AOV != 25 {
		t.Errorf("aov = %v, want 25", s.AOV)
	}
	if s.MedianOrderValue != 25 {
		t.Errorf("median = %v, want 25", s.MedianOrderValue)
	}
	if s.FailedOrders != 1 {
		t.Errorf("failed = %d", s.FailedOrders)
	}
	if s.OrdersByCategory["electronics"] != 1 || s.OrdersByCategory["home"] != 1 {
		t.Errorf("categories = %v", s.OrdersByCategory)
	}
}

func TestABConversionFavoursVariant(t *testing.T) {
	cfg, res := generate(t, 20000, nil)
	s := Summarize(res, cfg)
	control, variant := s.AB[types.VariantControl], s.AB[types.VariantTest]
	if control.Checkouts == 0 || variant.Checkouts == 0 {
		t.Fatalf("no checkouts: %+v", s.AB)
	}
	if variant.Rate <= control.Rate {
		t.Errorf("variant conversion %.3f not above control %.3f", variant.Rate, control.Rate)
	}
}

func TestFromDatasetMatchesCleanRun(t *testing.T) {
	_, res := generate(t, 500, func(c *config.Config) { c.Noise = config.NoiseConfig{} })
	rebuilt := FromDataset(res.Dataset)
	if !reflect.DeepEqual(rebuilt.States, res.States) {
		t.Errorf("states = %v, want %v", rebuilt.States, res.States)
	}
	if rebuilt.Noise.Missing != 0 {
		t.Errorf("missing = %d on a clean run", rebuilt.Noise.Missing)
	}
}

func TestWriteRendersSections(t *testing.T) {
	cfg, res := generate(t, 200, nil)
	var buf bytes.Buffer
	if err := Summarize(res, cfg).Write(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ROWS", "LOYALTY", "FUNNEL", "add_to_cart -> checkout", "A/B CHECKOUT -> PURCHASE", "missing session_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMetricsTextfile(t *testing.T) {
	cfg, res := generate(t, 200, nil)
	m := NewMetrics()
	m.Observe(Summarize(res, cfg))
	m.ObserveElapsed(res.Elapsed.Seconds())

	path := filepath.Join(t.TempDir(), "ecomsim.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`ecomsim_rows{table="users"} 200`,
		`ecomsim_funnel_sessions{stage="visit"}`,
		`ecomsim_ab_conversion_ratio{variant="variant"}`,
		`ecomsim_noise_ratio{kind="missing"}`,
		"ecomsim_generation_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q", want)
		}
	}

	// A second registry must not panic on duplicate registration.
	NewMetrics()
}
