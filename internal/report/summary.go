// Package report computes the human-facing summary of a generated dataset and
// exports it as Prometheus metrics.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/funnel"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Step is the conversion between two consecutive funnel stages, measured
// over sessions.
type Step struct {
	From types.EventType `json:"from"`
	To   types.EventType `json:"to"`
	Rate float64         `json:"rate"`
}

// Arm is the checkout→purchase conversion of one experiment arm.
type Arm struct {
	Checkouts int     `json:"checkouts"`
	Purchases int     `json:"purchases"`
	Rate      float64 `json:"rate"`
}

// Summary is a read-only digest of one run.
type Summary struct {
	Users    int `json:"users"`
	Bots     int `json:"bots"`
	Sessions int `json:"sessions"`
	Events   int `json:"events"`
	Orders   int `json:"orders"`

	Loyalty map[types.LoyaltyTier]int `json:"loyalty"`

	// EventCounts counts events per type.
	EventCounts map[types.EventType]int `json:"event_counts"`

	// SessionsReaching counts sessions that got at least as far as each stage.
	SessionsReaching map[types.EventType]int `json:"sessions_reaching"`
	Steps            []Step                  `json:"steps"`

	DeviceMix map[types.Device]float64 `json:"device_mix"`
	SourceMix map[types.Source]float64 `json:"source_mix"`

	// Order values are net unit price × quantity over successful orders.
	Revenue          float64        `json:"revenue"`
	AOV              float64        `json:"aov"`
	MedianOrderValue float64        `json:"median_order_value"`
	FailedOrders     int            `json:"failed_orders"`
	OrdersByCategory map[string]int `json:"orders_by_category"`

	AB map[types.Variant]Arm `json:"ab"`

	MissingSessionRate float64 `json:"missing_session_rate"`
	DuplicateRate      float64 `json:"duplicate_rate"`

	TargetSessions int `json:"target_sessions"`
	TargetEvents   int `json:"target_events"`
	TargetOrders   int `json:"target_orders"`
}

// stageFor maps a funnel state onto the event type that entered it.
var stageFor = map[funnel.State]types.EventType{
	funnel.StateVisited:    types.EventVisit,
	funnel.StateViewed:     types.EventProductView,
	funnel.StateCarted:     types.EventAddToCart,
	funnel.StateCheckedOut: types.EventCheckout,
	funnel.StatePurchased:  types.EventPurchase,
}

// Summarize computes the digest of res against the targets in cfg.
func Summarize(res *generator.Result, cfg *config.Config) Summary {
	s := Summary{
		Users:            len(res.Users),
		Sessions:         len(res.Sessions),
		Events:           len(res.Events),
		Orders:           len(res.Orders),
		Loyalty:          make(map[types.LoyaltyTier]int),
		EventCounts:      make(map[types.EventType]int),
		SessionsReaching: make(map[types.EventType]int),
		DeviceMix:        make(map[types.Device]float64),
		SourceMix:        make(map[types.Source]float64),
		OrdersByCategory: make(map[string]int),
		AB:               make(map[types.Variant]Arm),
		DuplicateRate:    res.Noise.DuplicateRate(),
		TargetSessions:   cfg.Sessions.Target,
		TargetEvents:     cfg.Targets.Events,
		TargetOrders:     cfg.Targets.Orders,
	}

	for _, u := range res.Users {
		s.Loyalty[u.LoyaltyTier]++
		if u.IsBot {
			s.Bots++
		}
		s.DeviceMix[u.Device]++
	}
	normalize(s.DeviceMix, len(res.Users))

	for _, sess := range res.Sessions {
		s.SourceMix[sess.Source]++
	}
	normalize(s.SourceMix, len(res.Sessions))

	for state, n := range res.States {
		for st := funnel.StateVisited; st <= state; st++ {
			s.SessionsReaching[stageFor[st]] += n
		}
	}
	stages := types.EventTypes()
	for i := 1; i < len(stages); i++ {
		s.Steps = append(s.Steps, Step{
			From: stages[i-1],
			To:   stages[i],
			Rate: ratio(s.SessionsReaching[stages[i]], s.SessionsReaching[stages[i-1]]),
		})
	}

	missing := 0
	for _, e := range res.Events {
		s.EventCounts[e.EventType]++
		if e.SessionID == nil {
			missing++
		}
		if e.Variant == nil {
			continue
		}
		arm := s.AB[*e.Variant]
		switch e.EventType {
		case types.EventCheckout:
			arm.Checkouts++
		case types.EventPurchase:
			arm.Purchases++
		}
		s.AB[*e.Variant] = arm
	}
	for v, arm := range s.AB {
		arm.Rate = ratio(arm.Purchases, arm.Checkouts)
		s.AB[v] = arm
	}
	s.MissingSessionRate = ratio(missing, len(res.Events))

	var values []float64
	for _, o := range res.Orders {
		s.OrdersByCategory[types.CategoryFor(o.ProductID)]++
		if o.PaymentStatus != types.PaymentSuccess {
			s.FailedOrders++
			continue
		}
		v := OrderValue(o)
		values = append(values, v)
		s.Revenue += v
	}
	s.Revenue = types.RoundCents(s.Revenue)
	if len(values) > 0 {
		s.AOV = types.RoundCents(s.Revenue / float64(len(values)))
		s.MedianOrderValue = median(values)
	}
	return s
}

// OrderValue is the net unit price times quantity.
func OrderValue(o types.Order) float64 {
	return types.RoundCents(o.NetPrice() * float64(o.Quantity))
}

func normalize[K comparable](m map[K]float64, total int) {
	for k, v := range m {
		m[k] = ratio(int(v), total)
	}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return types.RoundCents((sorted[n/2-1] + sorted[n/2]) / 2)
}

// Write renders the summary as aligned text.
func (s Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ROWS\t\t")
	fmt.Fprintf(tw, "  users\t%d\t(bots %d)\n", s.Users, s.Bots)
	fmt.Fprintf(tw, "  sessions\t%d\t(target %d)\n", s.Sessions, s.TargetSessions)
	fmt.Fprintf(tw, "  events\t%d\t(target %d)\n", s.Events, s.TargetEvents)
	fmt.Fprintf(tw, "  orders\t%d\t(target %d)\n", s.Orders, s.TargetOrders)

	fmt.Fprintln(tw, "LOYALTY\t\t")
	for _, t := range types.LoyaltyTiers() {
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", t, s.Loyalty[t], 100*ratio(s.Loyalty[t], s.Users))
	}

	fmt.Fprintln(tw, "FUNNEL\t\t")
	for _, et := range types.EventTypes() {
		fmt.Fprintf(tw, "  %s\t%d events\t%d sessions\n", et, s.EventCounts[et], s.SessionsReaching[et])
	}
	for _, st := range s.Steps {
		fmt.Fprintf(tw, "  %s -> %s\t%.1f%%\t\n", st.From, st.To, 100*st.Rate)
	}

	fmt.Fprintln(tw, "MIX\t\t")
	for _, d := range types.Devices() {
		fmt.Fprintf(tw, "  device %s\t%.1f%%\t\n", d, 100*s.DeviceMix[d])
	}
	for _, src := range types.Sources() {
		fmt.Fprintf(tw, "  source %s\t%.1f%%\t\n", src, 100*s.SourceMix[src])
	}

	fmt.Fprintln(tw, "ORDERS\t\t")
	fmt.Fprintf(tw, "  revenue\t%.2f\t\n", s.Revenue)
	fmt.Fprintf(tw, "  aov\t%.2f\t\n", s.AOV)
	fmt.Fprintf(tw, "  median\t%.2f\t\n", s.MedianOrderValue)
	fmt.Fprintf(tw, "  failed\t%d\t\n", s.FailedOrders)
	for _, c := range types.ProductCategories {
		fmt.Fprintf(tw, "  category %s\t%d\t\n", c, s.OrdersByCategory[c])
	}

	fmt.Fprintln(tw, "A/B CHECKOUT -> PURCHASE\t\t")
	for _, v := range types.Variants() {
		arm := s.AB[v]
		fmt.Fprintf(tw, "  %s\t%d/%d\t%.1f%%\n", v, arm.Purchases, arm.Checkouts, 100*arm.Rate)
	}

	fmt.Fprintln(tw, "QUALITY\t\t")
	fmt.Fprintf(tw, "  missing session_id\t%.2f%%\t\n", 100*s.MissingSessionRate)
	fmt.Fprintf(tw, "  duplicated session_id\t%.2f%%\t\n", 100*s.DuplicateRate)

	return tw.Flush()
}
