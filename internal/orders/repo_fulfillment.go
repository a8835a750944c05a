package orders

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	kafkax "github.com/rushinski/rdk-webstore-sub003/internal/kafka"
	"github.com/rushinski/rdk-webstore-sub003/internal/outbox"
)

// FindOrderByTracking resolves a carrier callback to an order. Only ship
// orders carry tracking numbers; pickup orders never receive carrier
// webhooks.
func (r *Repo) FindOrderByTracking(ctx context.Context, trackingNumber string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tracking_number=$1 AND fulfillment='ship'`, trackingNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// AdvanceFulfillment moves fulfillment_status forward and, where the order
// state machine allows, the order status with it. The outbox notification
// is written in the same transaction, so each transition notifies exactly
// once. Repeated or regressive carrier states return ErrNoTransition and
// change nothing.
func (r *Repo) AdvanceFulfillment(ctx context.Context, orderID string, to FulfillmentStatus, carrier, trackingURL string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	var current FulfillmentStatus
	var tenantID, email, trackingNumber, storedCarrier string
	err = tx.QueryRow(ctx, `
		SELECT status, fulfillment_status, tenant_id, COALESCE(customer_email,''),
			COALESCE(tracking_number,''), COALESCE(shipping_carrier,'')
		FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &current, &tenantID, &email, &trackingNumber, &storedCarrier)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if !FulfillmentAdvances(current, to) {
		return ErrNoTransition
	}

	newStatus := status
	var target Status
	switch to {
	case FulfillmentShipped:
		target = StatusShipped
	case FulfillmentDelivered:
		target = StatusDelivered
	}
	if CanTransition(status, target) {
		newStatus = target
	}

	stamp := "shipped_at"
	if to == FulfillmentDelivered {
		stamp = "delivered_at"
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET fulfillment_status=$2, status=$3,
			shipping_carrier = COALESCE(NULLIF($4,''), shipping_carrier),
			`+stamp+` = now(), updated_at = now()
		WHERE id=$1`, orderID, to, newStatus, carrier); err != nil {
		return err
	}

	if carrier == "" {
		carrier = storedCarrier
	}
	detail, _ := json.Marshal(map[string]string{"carrier": carrier, "tracking_number": trackingNumber})
	if _, err := tx.Exec(ctx,
		`INSERT INTO order_events(order_id, event_type, detail) VALUES ($1,$2,$3)`,
		orderID, string(to), detail); err != nil {
		return err
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderShipped,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderID,
	}
	topic := TopicOrderShipped
	if to == FulfillmentDelivered {
		env.EventType = EventOrderDelivered
		topic = TopicOrderDelivered
		env.Payload = kafkax.MustMarshal(OrderDeliveredPayload{
			OrderID:        orderID,
			TenantID:       tenantID,
			Email:          email,
			TrackingNumber: trackingNumber,
			Carrier:        carrier,
		})
	} else {
		env.Payload = kafkax.MustMarshal(OrderShippedPayload{
			OrderID:        orderID,
			TenantID:       tenantID,
			Email:          email,
			TrackingNumber: trackingNumber,
			Carrier:        carrier,
			TrackingURL:    trackingURL,
		})
	}
	if err := outbox.Insert(ctx, tx, env.EventID, topic, orderID, env); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
