package orders

import (
	"encoding/json"
	"time"
)

type Fulfillment string

const (
	FulfillmentShip   Fulfillment = "ship"
	FulfillmentPickup Fulfillment = "pickup"
)

func (f Fulfillment) Valid() bool {
	return f == FulfillmentShip || f == FulfillmentPickup
}

type Order struct {
	ID                string
	TenantID          string
	UserID            string // empty for guest checkout
	Status            Status
	Fulfillment       Fulfillment
	FulfillmentStatus FulfillmentStatus
	SubtotalCents     int64
	ShippingCents     int64
	TaxCents          int64
	TotalCents        int64
	CartHash          string
	IdempotencyKey    string
	PaymentSessionRef string
	PaymentIntentRef  string
	TrackingNumber    string
	ShippingCarrier   string
	ShippingAddress   *Address
	CustomerEmail     string
	ExpiresAt         time.Time
	PaidAt            *time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Expired reports whether a pending order has passed its reuse window.
func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

type OrderItem struct {
	OrderID        string
	ProductID      string
	VariantID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
	UnitCostCents  int64
	RefundedAt     *time.Time
}

type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type TimelineEvent struct {
	EventType string          `json:"event_type"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// LedgerEntry maps a client idempotency key to the order it created and a
// fingerprint of the cart it was created for.
type LedgerEntry struct {
	Key       string
	OrderID   string
	CartHash  string
	CreatedAt time.Time
}
