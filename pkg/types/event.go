package types

import (
	"fmt"
	"time"
)

// EventType is a funnel stage. The numeric order is the funnel order.
type EventType int

const (
	EventVisit EventType = iota
	EventProductView
	EventAddToCart
	EventCheckout
	EventPurchase
)

var eventTypeNames = [...]string{"visit", "product_view", "add_to_cart", "checkout", "purchase"}

// EventTypes returns every stage in funnel order.
func EventTypes() []EventType {
	return []EventType{EventVisit, EventProductView, EventAddToCart, EventCheckout, EventPurchase}
}

func (t EventType) String() string {
	if t < EventVisit || t > EventPurchase {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return eventTypeNames[t]
}

// ParseEventType maps the wire name back to the stage.
func ParseEventType(s string) (EventType, error) {
	for i, name := range eventTypeNames {
		if name == s {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(b []byte) error {
	v, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Event is a single clickstream row.
type Event struct {
	// EventID is a ULID string, time-ordered by TS.
	EventID string `json:"event_id"`

	UserID int64 `json:"user_id"`

	// SessionID is nil when the noise injector dropped it.
	SessionID *string `json:"session_id"`

	EventType EventType `json:"event_type"`
	Page      Page      `json:"page"`

	// ProductID and ProductCategory are nil on visit and checkout events.
	ProductID       *int64  `json:"product_id"`
	ProductCategory *string `json:"product_category"`

	TS     time.Time `json:"ts"`
	Source Source    `json:"source"`
	Device Device    `json:"device"`

	// ABTestID and Variant are only set on checkout/purchase events of non-bot sessions.
	ABTestID *string  `json:"ab_test_id"`
	Variant  *Variant `json:"variant"`
}

// SessionKey returns the session id or "" when it is missing.
func (e *Event) SessionKey() string {
	if e.SessionID == nil {
		return ""
	}
	return *e.SessionID
}

// Clone returns a deep copy so nullable fields are not shared.
func (e Event) Clone() Event {
	c := e
	c.SessionID = clonePtr(e.SessionID)
	c.ProductID = clonePtr(e.ProductID)
	c.ProductCategory = clonePtr(e.ProductCategory)
	c.ABTestID = clonePtr(e.ABTestID)
	c.Variant = clonePtr(e.Variant)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
