package fulfillment

import (
	"strings"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

// CarrierUpdate is a carrier webhook payload after the handler has pulled
// it out of its carrier-specific envelope.
type CarrierUpdate struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status"`
	TrackingURL    string `json:"trackingUrl"`
}

type normalizer func(status string) (orders.FulfillmentStatus, bool)

// One normalization function per carrier, each funneling into the internal
// two-state vocabulary. Transitional or unknown statuses are ignored, not
// guessed.
var normalizers = map[string]normalizer{
	"ups":    normalizeUPS,
	"usps":   normalizeUSPS,
	"fedex":  normalizeFedEx,
	"shippo": normalizeShippo,
}

// Normalize maps a carrier status to the internal vocabulary; ok is false
// when the event carries no actionable transition.
func Normalize(carrier, status string) (orders.FulfillmentStatus, bool) {
	n, ok := normalizers[strings.ToLower(carrier)]
	if !ok {
		return "", false
	}
	return n(strings.ToLower(strings.TrimSpace(status)))
}

func normalizeUPS(status string) (orders.FulfillmentStatus, bool) {
	switch status {
	case "in_transit", "out_for_delivery":
		return orders.FulfillmentShipped, true
	case "delivered":
		return orders.FulfillmentDelivered, true
	}
	return "", false
}

func normalizeUSPS(status string) (orders.FulfillmentStatus, bool) {
	switch status {
	case "accepted", "in_transit", "out_for_delivery":
		return orders.FulfillmentShipped, true
	case "delivered":
		return orders.FulfillmentDelivered, true
	}
	return "", false
}

func normalizeFedEx(status string) (orders.FulfillmentStatus, bool) {
	switch status {
	case "picked_up", "in_transit", "out_for_delivery":
		return orders.FulfillmentShipped, true
	case "delivered":
		return orders.FulfillmentDelivered, true
	}
	return "", false
}

// Shippo aggregates many carriers behind one vocabulary.
func normalizeShippo(status string) (orders.FulfillmentStatus, bool) {
	switch status {
	case "transit", "in_transit":
		return orders.FulfillmentShipped, true
	case "delivered":
		return orders.FulfillmentDelivered, true
	}
	return "", false
}
