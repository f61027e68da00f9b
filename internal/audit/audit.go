// Package audit checks generated datasets against the structural rules every
// session and order must satisfy. Checks collect every violation rather than
// stopping at the first one.
package audit

import (
	"fmt"
	"strings"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Rule names a checked property.
type Rule string

const (
	RuleSingleVisit    Rule = "single_visit"
	RuleVisitFirst     Rule = "visit_first"
	RuleTimestampOrder Rule = "timestamp_order"
	RuleStageGating    Rule = "stage_gating"
	RuleBotStops       Rule = "bot_stops"
	RuleABFields       Rule = "ab_fields"
	RuleCategory       Rule = "product_category"
	RuleSessionOwner   Rule = "session_owner"
	RulePriceFloor     Rule = "price_floor"
	RuleQuantity       Rule = "quantity"
	RuleOrderLineage   Rule = "order_lineage"
)

// Violation is a single broken rule.
type Violation struct {
	Rule    Rule
	Key     string
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s [%s]: %s", v.Rule, v.Key, v.Message)
}

// Violations is a collection of violations.
type Violations []*Violation

func (v Violations) Error() string {
	if len(v) == 0 {
		return "no violations"
	}
	if len(v) == 1 {
		return v[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d violations:\n", len(v)))
	for i, err := range v {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Err returns v as an error, or nil when empty.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ByRule counts violations per rule.
func (v Violations) ByRule() map[Rule]int {
	counts := make(map[Rule]int)
	for _, x := range v {
		counts[x.Rule]++
	}
	return counts
}

func (v *Violations) add(rule Rule, key, format string, args ...any) {
	*v = append(*v, &Violation{Rule: rule, Key: key, Message: fmt.Sprintf(format, args...)})
}

// Sessions groups events by session id, keeping emission order. Events with
// a missing session id are skipped.
func Sessions(events []types.Event) (order []string, groups map[string][]types.Event) {
	groups = make(map[string][]types.Event)
	for _, e := range events {
		key := e.SessionKey()
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}
	return order, groups
}

// CheckEvents verifies the per-session funnel rules. It must run on events
// before noise injection, since duplicated ids merge unrelated sessions.
func CheckEvents(events []types.Event, users []types.User) Violations {
	bots := make(map[int64]bool)
	for _, u := range users {
		if u.IsBot {
			bots[u.UserID] = true
		}
	}

	var out Violations
	order, groups := Sessions(events)
	for _, key := range order {
		checkSession(&out, key, groups[key], bots)
	}
	return out
}

func checkSession(out *Violations, key string, events []types.Event, bots map[int64]bool) {
	var counts [types.EventPurchase + 1]int
	owner := events[0].UserID

	for i, e := range events {
		counts[e.EventType]++

		if e.UserID != owner {
			out.add(RuleSessionOwner, key, "event %s belongs to user %d, session owner is %d", e.EventID, e.UserID, owner)
		}
		if i > 0 && e.TS.Before(events[i-1].TS) {
			out.add(RuleTimestampOrder, key, "event %d at %s precedes event %d at %s",
				i, e.TS.Format(types.TimestampLayout), i-1, events[i-1].TS.Format(types.TimestampLayout))
		}
		if e.ProductID != nil {
			want := types.CategoryFor(*e.ProductID)
			if e.ProductCategory == nil || *e.ProductCategory != want {
				out.add(RuleCategory, key, "product %d should map to %q", *e.ProductID, want)
			}
		}

		abStage := e.EventType == types.EventCheckout || e.EventType == types.EventPurchase
		if hasAB := e.ABTestID != nil && e.Variant != nil; hasAB != abStage || (abStage && bots[e.UserID]) {
			out.add(RuleABFields, key, "%s event has ab fields=%v", e.EventType, hasAB)
		}
	}

	if counts[types.EventVisit] != 1 {
		out.add(RuleSingleVisit, key, "found %d visit events", counts[types.EventVisit])
	}
	if events[0].EventType != types.EventVisit {
		out.add(RuleVisitFirst, key, "first event is %s", events[0].EventType)
	}
	for _, e := range events[1:] {
		if e.TS.Before(events[0].TS) {
			out.add(RuleVisitFirst, key, "%s event precedes the visit", e.EventType)
		}
	}

	if counts[types.EventAddToCart] > 0 && counts[types.EventProductView] == 0 {
		out.add(RuleStageGating, key, "add_to_cart without product_view")
	}
	if counts[types.EventCheckout] > 0 && counts[types.EventAddToCart] == 0 {
		out.add(RuleStageGating, key, "checkout without add_to_cart")
	}
	if counts[types.EventCheckout] > 1 {
		out.add(RuleStageGating, key, "%d checkout events", counts[types.EventCheckout])
	}
	if counts[types.EventPurchase] > 0 && counts[types.EventCheckout] != 1 {
		out.add(RuleStageGating, key, "purchase with %d checkout events", counts[types.EventCheckout])
	}
	if counts[types.EventPurchase] > 1 {
		out.add(RuleStageGating, key, "%d purchase events", counts[types.EventPurchase])
	}

	if bots[owner] && counts[types.EventAddToCart]+counts[types.EventCheckout]+counts[types.EventPurchase] > 0 {
		out.add(RuleBotStops, key, "bot session progressed past product_view")
	}
}

// CheckOrders verifies per-order value rules.
func CheckOrders(orders []types.Order, floor float64, maxQuantity int) Violations {
	var out Violations
	floorCents := types.ToCents(floor)
	for _, o := range orders {
		if types.ToCents(o.Price)-types.ToCents(o.DiscountAmount) < floorCents || o.Price-o.DiscountAmount < floor {
			out.add(RulePriceFloor, o.OrderID, "net price %.2f below floor %.2f", o.NetPrice(), floor)
		}
		if o.DiscountAmount < 0 {
			out.add(RulePriceFloor, o.OrderID, "negative discount %.2f", o.DiscountAmount)
		}
		if o.Quantity < 1 || o.Quantity > maxQuantity {
			out.add(RuleQuantity, o.OrderID, "quantity %d outside [1,%d]", o.Quantity, maxQuantity)
		}
	}
	return out
}

// CheckLineage verifies orders map 1:1, in order, onto purchase events.
func CheckLineage(orders []types.Order, events []types.Event) Violations {
	var out Violations
	i := 0
	for _, e := range events {
		if e.EventType != types.EventPurchase {
			continue
		}
		if i >= len(orders) {
			out.add(RuleOrderLineage, e.EventID, "purchase has no order")
			i++
			continue
		}
		o := orders[i]
		i++
		if o.UserID != e.UserID || !o.TS.Equal(e.TS) || e.ProductID == nil || o.ProductID != *e.ProductID {
			out.add(RuleOrderLineage, o.OrderID, "order does not match purchase %s", e.EventID)
		}
	}
	if i < len(orders) {
		out.add(RuleOrderLineage, "", "%d orders without a purchase event", len(orders)-i)
	}
	return out
}
