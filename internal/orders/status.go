package orders

type Status string

const (
	StatusPending           Status = "pending"
	StatusPaid              Status = "paid"
	StatusShipped           Status = "shipped"
	StatusDelivered         Status = "delivered"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusCancelled         Status = "cancelled"
	StatusExpired           Status = "expired"
)

// Status only moves forward; refunds are the one backward-looking branch.
var validNext = map[Status]map[Status]bool{
	StatusPending:           {StatusPaid: true, StatusCancelled: true, StatusExpired: true},
	StatusPaid:              {StatusShipped: true, StatusDelivered: true, StatusRefunded: true, StatusPartiallyRefunded: true},
	StatusShipped:           {StatusDelivered: true, StatusRefunded: true, StatusPartiallyRefunded: true},
	StatusDelivered:         {StatusRefunded: true, StatusPartiallyRefunded: true},
	StatusPartiallyRefunded: {StatusRefunded: true},
	StatusRefunded:          {},
	StatusCancelled:         {},
	StatusExpired:           {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentDelivered   FulfillmentStatus = "delivered"
)

var fulfillmentRank = map[FulfillmentStatus]int{
	FulfillmentUnfulfilled: 0,
	FulfillmentShipped:     1,
	FulfillmentDelivered:   2,
}

// FulfillmentAdvances reports whether moving to the given state is a real
// forward transition. Repeats and out-of-order carrier events rank lower or
// equal and must be ignored.
func FulfillmentAdvances(from, to FulfillmentStatus) bool {
	return fulfillmentRank[to] > fulfillmentRank[from]
}
