package redisx

import "time"

const (
	// Cache order read responses: order_status:{tenant_id}:{order_id}
	KeyOrderStatus = "order_status:%s:%s"

	// Dedup event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Product cache, invalidated when a paid order touches its variants:
	// product:{product_id}
	KeyProduct = "product:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
