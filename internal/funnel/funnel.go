// Package funnel runs the per-session conversion state machine
// visit → product_view → add_to_cart → checkout → purchase.
//
// A stage is only entered from the stage immediately before it, and only
// when that stage emitted at least one event. Bot sessions stop after
// product views. Per-session thresholds for views, cart and checkout are
// re-sampled from their ranges on every run; the purchase probability is a
// fixed per-variant constant.
package funnel

import (
	"io"
	"math"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/rng"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// IDs issues event identifiers.
type IDs interface {
	EventID(ts time.Time) string
}

// ULIDs issues ULID event ids stamped with the event time.
type ULIDs struct {
	gen *types.ULIDGenerator
}

// NewULIDs draws id entropy from r.
func NewULIDs(r io.Reader) *ULIDs {
	return &ULIDs{gen: types.NewULIDGenerator(r)}
}

func (u *ULIDs) EventID(ts time.Time) string {
	id, err := u.gen.GenerateWithTime(ts)
	if err != nil {
		// Entropy readers backed by rng.Reader never fail.
		panic(err)
	}
	return id.String()
}

// Simulator runs sessions through the funnel.
type Simulator struct {
	cfg      config.FunnelConfig
	products int
}

// New creates a Simulator drawing product ids from [1, products].
func New(cfg config.FunnelConfig, products int) *Simulator {
	return &Simulator{cfg: cfg, products: products}
}

// AddToCartProbability applies the loyalty boost to a sampled base rate.
func (s *Simulator) AddToCartProbability(base float64, tier types.LoyaltyTier) float64 {
	if tier.Premium() {
		return math.Min(base*s.cfg.LoyaltyBoost, s.cfg.BoostCeiling)
	}
	return base
}

// CheckoutProbability applies the mobile penalty to a sampled base rate.
func (s *Simulator) CheckoutProbability(base float64, device types.Device) float64 {
	if device == types.DeviceMobile {
		return base * s.cfg.MobileFactor
	}
	return base
}

// PurchaseProbability is the fixed conversion rate of an A/B arm.
func (s *Simulator) PurchaseProbability(v types.Variant) float64 {
	return s.cfg.Purchase[v]
}

// run holds the mutable state of one session walk.
type run struct {
	sim   *Simulator
	src   rng.Source
	ids   IDs
	user  types.User
	sess  types.Session
	clock time.Time
	m     machine

	events []types.Event
	viewed []int64
	carted []int64
}

// Run walks one session through the funnel and returns its events in
// emission order together with the furthest state reached.
//
// Draw order: view threshold, view gate, view count, then per view a time gap
// and product; cart threshold, cart gate, item count, then per item a time gap
// and product pick; checkout threshold, checkout gate, time gap; purchase
// gate, time gap. Event ids draw from ids as events are emitted.
func (s *Simulator) Run(src rng.Source, ids IDs, user types.User, sess types.Session) ([]types.Event, State) {
	r := &run{
		sim:    s,
		src:    src,
		ids:    ids,
		user:   user,
		sess:   sess,
		clock:  sess.StartTime,
		events: make([]types.Event, 0, 8),
	}

	r.visit()
	r.view()
	if !user.IsBot {
		r.cart()
		r.checkout()
		r.purchase()
	}
	return r.events, r.m.state
}

func (r *run) visit() {
	r.enter(StateVisited)
	r.emit(types.EventVisit, types.PageHome, nil, false)
}

func (r *run) view() {
	if !r.m.can(StateViewed) {
		return
	}
	cfg := r.sim.cfg
	threshold := rng.Uniform(r.src, cfg.ProductView.Min, cfg.ProductView.Max)
	if !rng.Bernoulli(r.src, threshold) {
		return
	}

	n := min(rng.Poisson(r.src, cfg.ViewRate)+1, cfg.ViewCap)
	r.enter(StateViewed)
	for i := 0; i < n; i++ {
		gap := cfg.Timing.BetweenViews
		if i == 0 {
			gap = cfg.Timing.FirstView
		}
		r.wait(gap)

		product := int64(1 + r.src.IntN(r.sim.products))
		r.viewed = append(r.viewed, product)
		r.emit(types.EventProductView, types.PageProduct, &product, false)
	}
}

func (r *run) cart() {
	if !r.m.can(StateCarted) {
		return
	}
	cfg := r.sim.cfg
	base := rng.Uniform(r.src, cfg.AddToCart.Min, cfg.AddToCart.Max)
	if !rng.Bernoulli(r.src, r.sim.AddToCartProbability(base, r.user.LoyaltyTier)) {
		return
	}

	n := 1 + r.src.IntN(cfg.MaxCartItems)
	r.enter(StateCarted)
	for i := 0; i < n; i++ {
		gap := cfg.Timing.BetweenCart
		if i == 0 {
			gap = cfg.Timing.ViewToCart
		}
		r.wait(gap)

		product := r.viewed[r.src.IntN(len(r.viewed))]
		r.carted = append(r.carted, product)
		r.emit(types.EventAddToCart, types.PageProduct, &product, false)
	}
}

func (r *run) checkout() {
	if !r.m.can(StateCheckedOut) {
		return
	}
	cfg := r.sim.cfg
	base := rng.Uniform(r.src, cfg.Checkout.Min, cfg.Checkout.Max)
	if !rng.Bernoulli(r.src, r.sim.CheckoutProbability(base, r.user.Device)) {
		return
	}

	r.enter(StateCheckedOut)
	r.wait(cfg.Timing.CartToCheckout)
	r.emit(types.EventCheckout, types.PageCheckout, nil, true)
}

func (r *run) purchase() {
	if !r.m.can(StatePurchased) {
		return
	}
	if !rng.Bernoulli(r.src, r.sim.PurchaseProbability(r.user.ABVariant)) {
		return
	}

	r.enter(StatePurchased)
	r.wait(r.sim.cfg.Timing.CheckoutToPurchase)
	product := r.carted[0]
	r.emit(types.EventPurchase, types.PageCheckout, &product, true)
}

// enter advances the machine. Callers check can first, so a failure here is
// a programming error.
func (r *run) enter(to State) {
	if err := r.m.advance(to); err != nil {
		panic(err)
	}
}

// wait advances the session clock by an exponential gap of at least one second.
func (r *run) wait(mean float64) {
	secs := int64(rng.Exponential(r.src, mean))
	if secs < 1 {
		secs = 1
	}
	r.clock = r.clock.Add(time.Duration(secs) * time.Second)
}

func (r *run) emit(t types.EventType, page types.Page, product *int64, abTest bool) {
	sessionID := r.sess.SessionID
	e := types.Event{
		EventID:   r.ids.EventID(r.clock),
		UserID:    r.user.UserID,
		SessionID: &sessionID,
		EventType: t,
		Page:      page,
		TS:        r.clock,
		Source:    r.sess.Source,
		Device:    r.user.Device,
	}
	if product != nil {
		e.ProductID = types.Ptr(*product)
		e.ProductCategory = types.Ptr(types.CategoryFor(*product))
	}
	if abTest {
		e.ABTestID = types.Ptr(r.sim.cfg.ABTestID)
		e.Variant = types.Ptr(r.user.ABVariant)
	}
	r.events = append(r.events, e)
}
