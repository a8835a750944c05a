package orders_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to orders.Status
		want     bool
	}{
		{orders.StatusPending, orders.StatusPaid, true},
		{orders.StatusPending, orders.StatusCancelled, true},
		{orders.StatusPending, orders.StatusExpired, true},
		{orders.StatusPaid, orders.StatusShipped, true},
		{orders.StatusPaid, orders.StatusDelivered, true},
		{orders.StatusShipped, orders.StatusDelivered, true},
		{orders.StatusDelivered, orders.StatusRefunded, true},
		{orders.StatusPartiallyRefunded, orders.StatusRefunded, true},

		{orders.StatusPaid, orders.StatusPending, false},
		{orders.StatusShipped, orders.StatusPaid, false},
		{orders.StatusPending, orders.StatusShipped, false},
		{orders.StatusRefunded, orders.StatusPaid, false},
		{orders.StatusCancelled, orders.StatusPaid, false},
		{orders.StatusExpired, orders.StatusPaid, false},
		{orders.StatusPaid, orders.StatusPaid, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, orders.CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestFulfillmentAdvances(t *testing.T) {
	assert.True(t, orders.FulfillmentAdvances(orders.FulfillmentUnfulfilled, orders.FulfillmentShipped))
	assert.True(t, orders.FulfillmentAdvances(orders.FulfillmentUnfulfilled, orders.FulfillmentDelivered))
	assert.True(t, orders.FulfillmentAdvances(orders.FulfillmentShipped, orders.FulfillmentDelivered))

	// repeats and regressions are ignored
	assert.False(t, orders.FulfillmentAdvances(orders.FulfillmentShipped, orders.FulfillmentShipped))
	assert.False(t, orders.FulfillmentAdvances(orders.FulfillmentDelivered, orders.FulfillmentShipped))
	assert.False(t, orders.FulfillmentAdvances(orders.FulfillmentDelivered, orders.FulfillmentDelivered))
}
