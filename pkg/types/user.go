package types

import "time"

// User is one member of the synthetic population.
type User struct {
	// UserID is dense and starts at 1.
	UserID int64 `json:"user_id"`

	// SignupDate is truncated to midnight UTC.
	SignupDate time.Time `json:"signup_date"`

	Device  Device  `json:"device"`
	Country Country `json:"country"`
	IsBot   bool    `json:"is_bot"`

	// LoyaltyTier is derived from signup rank, never sampled.
	LoyaltyTier LoyaltyTier `json:"loyalty_tier"`

	// ABVariant is a pure function of UserID (see VariantFor).
	ABVariant Variant `json:"ab_variant"`
}

// Session is a scheduled visit that seeds one funnel run.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	Source    Source    `json:"source"`
}

// Order is the commercial record of one purchase event. Price and
// DiscountAmount are whole cents; Price-DiscountAmount never falls below the
// configured price floor, in float64 as well as in cents.
type Order struct {
	OrderID        string        `json:"order_id"`
	UserID         int64         `json:"user_id"`
	ProductID      int64         `json:"product_id"`
	Price          float64       `json:"price"`
	Quantity       int           `json:"quantity"`
	DiscountAmount float64       `json:"discount_amount"`
	TS             time.Time     `json:"ts"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
}

// NetPrice is the unit price after discount, rounded to cents.
func (o Order) NetPrice() float64 {
	return RoundCents(o.Price - o.DiscountAmount)
}

// Dataset is the full output of one generator run.
type Dataset struct {
	Users    []User    `json:"users"`
	Sessions []Session `json:"sessions"`
	Events   []Event   `json:"events"`
	Orders   []Order   `json:"orders"`
}
