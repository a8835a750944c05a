package orders

import (
	"encoding/json"
	"time"
)

const (
	TopicOrderPaid      = "order.paid"
	TopicOrderShipped   = "order.shipped"
	TopicOrderDelivered = "order.delivered"
)

const (
	EventOrderPaid      = "OrderPaid"
	EventOrderShipped   = "OrderShipped"
	EventOrderDelivered = "OrderDelivered"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPaidPayload struct {
	OrderID    string   `json:"order_id"`
	TenantID   string   `json:"tenant_id"`
	Email      string   `json:"email,omitempty"`
	TotalCents int64    `json:"total_cents"`
	ProductIDs []string `json:"product_ids"`
}

type OrderShippedPayload struct {
	OrderID        string `json:"order_id"`
	TenantID       string `json:"tenant_id"`
	Email          string `json:"email,omitempty"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
}

type OrderDeliveredPayload struct {
	OrderID        string `json:"order_id"`
	TenantID       string `json:"tenant_id"`
	Email          string `json:"email,omitempty"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier,omitempty"`
}
