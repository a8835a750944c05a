package fulfillment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushinski/rdk-webstore-sub003/internal/fulfillment"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		carrier, status string
		want            orders.FulfillmentStatus
		ok              bool
	}{
		{"ups", "in_transit", orders.FulfillmentShipped, true},
		{"ups", "out_for_delivery", orders.FulfillmentShipped, true},
		{"ups", "delivered", orders.FulfillmentDelivered, true},
		{"usps", "accepted", orders.FulfillmentShipped, true},
		{"fedex", "picked_up", orders.FulfillmentShipped, true},
		{"shippo", "transit", orders.FulfillmentShipped, true},
		{"shippo", "delivered", orders.FulfillmentDelivered, true},

		// case and whitespace are normalized
		{"UPS", "In_Transit", orders.FulfillmentShipped, true},
		{"usps", " delivered ", orders.FulfillmentDelivered, true},

		// transitional or unknown statuses carry no transition
		{"ups", "label_created", "", false},
		{"ups", "exception", "", false},
		{"fedex", "", "", false},

		// unknown carriers are ignored entirely
		{"dhl", "delivered", "", false},
	}
	for _, c := range cases {
		got, ok := fulfillment.Normalize(c.carrier, c.status)
		assert.Equal(t, c.ok, ok, "%s/%s", c.carrier, c.status)
		assert.Equal(t, c.want, got, "%s/%s", c.carrier, c.status)
	}
}
