package types

import "fmt"

// Device is the client form factor a user browses with.
type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceDesktop Device = "desktop"
	DeviceTablet  Device = "tablet"
)

// Devices returns every Device in canonical sampling order.
func Devices() []Device {
	return []Device{DeviceMobile, DeviceDesktop, DeviceTablet}
}

// Country is the ISO-like market code of a user.
type Country string

const (
	CountryUS Country = "US"
	CountryIN Country = "IN"
	CountryUK Country = "UK"
	CountryDE Country = "DE"
	CountryAU Country = "AU"
)

// Countries returns every Country in canonical sampling order.
func Countries() []Country {
	return []Country{CountryUS, CountryIN, CountryUK, CountryDE, CountryAU}
}

// Source is the traffic acquisition channel of a session.
type Source string

const (
	SourceOrganic  Source = "organic"
	SourcePaid     Source = "paid"
	SourceEmail    Source = "email"
	SourceReferral Source = "referral"
)

// Sources returns every Source in canonical sampling order.
func Sources() []Source {
	return []Source{SourceOrganic, SourcePaid, SourceEmail, SourceReferral}
}

// LoyaltyTier is the tenure band derived from signup order.
type LoyaltyTier string

const (
	TierBronze   LoyaltyTier = "bronze"
	TierSilver   LoyaltyTier = "silver"
	TierGold     LoyaltyTier = "gold"
	TierPlatinum LoyaltyTier = "platinum"
)

// LoyaltyTiers returns every tier from highest to lowest, which is also the
// order bands are assigned over the signup-sorted population.
func LoyaltyTiers() []LoyaltyTier {
	return []LoyaltyTier{TierPlatinum, TierGold, TierSilver, TierBronze}
}

// Premium reports whether the tier receives the add-to-cart boost.
func (t LoyaltyTier) Premium() bool {
	return t == TierGold || t == TierPlatinum
}

// Variant is the A/B arm a user is assigned to.
type Variant string

const (
	VariantControl Variant = "control"
	VariantTest    Variant = "variant"
)

// Variants returns both arms.
func Variants() []Variant {
	return []Variant{VariantControl, VariantTest}
}

// VariantFor assigns the arm from user id parity: even ids get the test arm.
func VariantFor(userID int64) Variant {
	if userID%2 == 0 {
		return VariantTest
	}
	return VariantControl
}

// PaymentStatus is the settlement outcome of an order.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Page is the site area an event was recorded on.
type Page string

const (
	PageHome     Page = "home"
	PageProduct  Page = "product"
	PageCheckout Page = "checkout"
)

// Enum is satisfied by the closed string enumerations above.
type Enum interface {
	~string
}

// Contains reports whether v is one of values.
func Contains[K comparable](values []K, v K) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ParseEnum validates s against the closed set values.
func ParseEnum[K Enum](values []K, s string) (K, error) {
	k := K(s)
	if !Contains(values, k) {
		var zero K
		return zero, fmt.Errorf("unknown value %q (allowed: %v)", s, values)
	}
	return k, nil
}
