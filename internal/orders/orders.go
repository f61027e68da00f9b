// Package orders derives one commercial order record from each purchase event.
package orders

import (
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Synthesizer maps purchase events to orders.
type Synthesizer struct {
	cfg config.OrderConfig
}

// New creates a Synthesizer.
func New(cfg config.OrderConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize returns one order per purchase event, in event order. The result
// is never nil, so callers can persist an empty table without branching.
func (s *Synthesizer) Synthesize(src rng.Source, events []types.Event) []types.Order {
	ids := rng.NewReader(src)
	out := make([]types.Order, 0)
	for _, e := range events {
		if e.EventType != types.EventPurchase {
			continue
		}
		out = append(out, s.ForPurchase(src, ids, e))
	}
	return out
}

// ForPurchase draws the order for one purchase event. Draw order: order id,
// price, quantity, discount gate and percentage (eligible events only),
// payment outcome.
func (s *Synthesizer) ForPurchase(src rng.Source, ids io.Reader, e types.Event) types.Order {
	id, _ := uuid.NewRandomFromReader(ids)

	o := types.Order{
		OrderID:       id.String(),
		UserID:        e.UserID,
		Price:         s.Price(src),
		Quantity:      1 + rng.PickIndex(src, s.cfg.QuantityWeights),
		TS:            e.TS,
		PaymentStatus: types.PaymentSuccess,
	}
	if e.ProductID != nil {
		o.ProductID = *e.ProductID
	}

	if Eligible(e) && rng.Bernoulli(src, s.cfg.DiscountGate) {
		pct := rng.Uniform(src, s.cfg.Discount.Min, s.cfg.Discount.Max)
		o.DiscountAmount = s.Discount(o.Price, pct)
	}

	if rng.Bernoulli(src, s.cfg.FailureRate) {
		o.PaymentStatus = types.PaymentFailed
	}
	return o
}

// Price draws a log-normal unit price clipped to [floor, ceiling] and rounded to cents.
func (s *Synthesizer) Price(src rng.Source) float64 {
	p := rng.LogNormal(src, s.cfg.PriceMu, s.cfg.PriceSigma)
	p = math.Max(s.cfg.PriceFloor, math.Min(s.cfg.PriceCeiling, p))
	return types.RoundCents(p)
}

// Discount returns price × pct in whole cents, clamped so the net price never
// drops below the floor.
func (s *Synthesizer) Discount(price, pct float64) float64 {
	priceCents := types.ToCents(price)
	d := int64(math.Round(float64(priceCents) * pct))
	if room := priceCents - types.ToCents(s.cfg.PriceFloor); d > room {
		d = room
	}
	if d < 0 {
		d = 0
	}
	// The floor must also hold for price - discount_amount in float64,
	// which is what SQLite REAL arithmetic computes.
	for d > 0 && price-types.FromCents(d) < s.cfg.PriceFloor {
		d--
	}
	return types.FromCents(d)
}

// Eligible reports whether a purchase may receive a discount: paid traffic
// or the test arm of the checkout experiment.
func Eligible(e types.Event) bool {
	return e.Source == types.SourcePaid || (e.Variant != nil && *e.Variant == types.VariantTest)
}
