package orders

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/audit"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

func newSynth() *Synthesizer {
	return New(config.DefaultConfig().Orders)
}

func purchase(user int64, source types.Source, variant types.Variant) types.Event {
	return types.Event{
		EventID:   "p",
		UserID:    user,
		EventType: types.EventPurchase,
		ProductID: types.Ptr(int64(12)),
		TS:        time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Source:    source,
		Variant:   types.Ptr(variant),
	}
}

func TestSynthesizeOnePerPurchase(t *testing.T) {
	events := []types.Event{
		{EventType: types.EventVisit},
		purchase(1, types.SourceOrganic, types.VariantControl),
		{EventType: types.EventCheckout},
		purchase(2, types.SourcePaid, types.VariantTest),
	}
	orders := newSynth().Synthesize(rng.New(42), events)
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].OrderID == orders[1].OrderID {
		t.Error("order ids collide")
	}
	if v := audit.CheckLineage(orders, events); len(v) != 0 {
		t.Errorf("lineage: %v", v)
	}
}

func TestSynthesizeNoPurchases(t *testing.T) {
	orders := newSynth().Synthesize(rng.New(1), []types.Event{{EventType: types.EventVisit}})
	if orders == nil {
		t.Fatal("expected an empty, non-nil slice")
	}
	if len(orders) != 0 {
		t.Errorf("got %d orders", len(orders))
	}
}

func TestDiscountClampsToFloor(t *testing.T) {
	s := newSynth()
	tests := []struct {
		price, pct, want float64
	}{
		{100, 0.10, 10},
		{10.50, 0.25, 0.51},
		{9.99, 0.20, 0},
		{12.34, 0.05, 0.62},
	}
	for _, tt := range tests {
		got := s.Discount(tt.price, tt.pct)
		if got != tt.want {
			t.Errorf("Discount(%v, %v) = %v, want %v", tt.price, tt.pct, got, tt.want)
		}
		if types.ToCents(tt.price)-types.ToCents(got) < types.ToCents(9.99) {
			t.Errorf("Discount(%v, %v) breaks the floor", tt.price, tt.pct)
		}
	}
}

func TestDiscountHoldsFloorInFloat(t *testing.T) {
	s := newSynth()
	floor := config.DefaultConfig().Orders.PriceFloor

	if got := s.Discount(10.04, 0.05); 10.04-got < floor {
		t.Errorf("Discount(10.04, 0.05) = %v, net %v below floor", got, 10.04-got)
	}

	for cents := types.ToCents(floor); cents <= 2500; cents++ {
		price := types.FromCents(cents)
		for pct := 0.05; pct <= 0.25; pct += 0.01 {
			d := s.Discount(price, pct)
			if price-d < floor {
				t.Fatalf("Discount(%v, %.2f) = %v: net %v below floor", price, pct, d, price-d)
			}
			o := types.Order{Price: price, DiscountAmount: d}
			if o.NetPrice() < floor {
				t.Fatalf("NetPrice() = %v below floor for price %v", o.NetPrice(), price)
			}
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		source  types.Source
		variant types.Variant
		want    bool
	}{
		{types.SourcePaid, types.VariantControl, true},
		{types.SourceOrganic, types.VariantTest, true},
		{types.SourceEmail, types.VariantControl, false},
	}
	for _, tt := range tests {
		if got := Eligible(purchase(1, tt.source, tt.variant)); got != tt.want {
			t.Errorf("Eligible(%s, %s) = %v, want %v", tt.source, tt.variant, got, tt.want)
		}
	}
}

func TestIneligibleOrdersHaveNoDiscount(t *testing.T) {
	s := newSynth()
	src := rng.New(5)
	ids := rng.NewReader(src)
	e := purchase(1, types.SourceOrganic, types.VariantControl)
	for i := 0; i < 2000; i++ {
		if o := s.ForPurchase(src, ids, e); o.DiscountAmount != 0 {
			t.Fatalf("ineligible order got discount %.2f", o.DiscountAmount)
		}
	}
}

func TestOrderDistributions(t *testing.T) {
	s := newSynth()
	src := rng.New(8)
	ids := rng.NewReader(src)
	e := purchase(2, types.SourcePaid, types.VariantTest)

	const n = 40000
	var failed, discounted int
	qty := make(map[int]int)
	for i := 0; i < n; i++ {
		o := s.ForPurchase(src, ids, e)
		qty[o.Quantity]++
		if o.PaymentStatus == types.PaymentFailed {
			failed++
		}
		if o.DiscountAmount > 0 {
			discounted++
		}
	}

	if rate := float64(failed) / n; math.Abs(rate-0.08) > 0.01 {
		t.Errorf("failure rate = %.3f, want ≈0.08", rate)
	}
	// Floor-priced orders get a zero discount, so the observed share sits slightly under 0.40.
	if rate := float64(discounted) / n; rate < 0.35 || rate > 0.41 {
		t.Errorf("discount rate = %.3f, want ≈0.40", rate)
	}
	if share := float64(qty[1]) / n; math.Abs(share-0.70) > 0.015 {
		t.Errorf("quantity 1 share = %.3f, want ≈0.70", share)
	}
}

func TestOrderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	cfg := config.DefaultConfig().Orders
	s := New(cfg)

	properties.Property("net price never drops below the floor", prop.ForAll(
		func(seed uint64, paid bool) bool {
			source := types.SourceOrganic
			if paid {
				source = types.SourcePaid
			}
			src := rng.New(seed)
			ids := rng.NewReader(src)
			orders := make([]types.Order, 0, 200)
			for i := 0; i < 200; i++ {
				orders = append(orders, s.ForPurchase(src, ids, purchase(int64(i+1), source, types.VariantFor(int64(i+1)))))
			}
			for _, o := range orders {
				if o.NetPrice() < cfg.PriceFloor || o.Price-o.DiscountAmount < cfg.PriceFloor || o.Price > cfg.PriceCeiling {
					return false
				}
			}
			return len(audit.CheckOrders(orders, cfg.PriceFloor, len(cfg.QuantityWeights))) == 0
		},
		gen.UInt64(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
