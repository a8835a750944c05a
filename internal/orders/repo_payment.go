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

// EventProcessed reports whether a processor event id has already been
// durably handled. The ledger row, not arrival order, is the idempotency
// truth for payment side effects.
func (r *Repo) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_payment_events WHERE event_id=$1)`, eventID).Scan(&exists)
	return exists, err
}

// RecordProcessed appends the event to the ledger. Concurrent duplicates
// race to a single winner on the primary key.
func (r *Repo) RecordProcessed(ctx context.Context, eventID, orderID string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO processed_payment_events(event_id, order_id)
		VALUES ($1, NULLIF($2,''))
		ON CONFLICT (event_id) DO NOTHING`, eventID, orderID)
	return err
}

func (r *Repo) FindOrderBySession(ctx context.Context, sessionRef string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_session_ref=$1`, sessionRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// FinalizePaid performs the pending->paid transition as one atomic unit:
// conditional stock decrement for every line item, status flip, payment
// intent reference, shipping address snapshot, timeline entry and the
// order.paid outbox row. Any variant whose resulting stock would go
// negative aborts the whole transaction and the order stays pending.
func (r *Repo) FinalizePaid(ctx context.Context, orderID, intentRef string, addr *Address, email string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	var fulfillment Fulfillment
	var tenantID, storedEmail string
	var totalCents int64
	err = tx.QueryRow(ctx, `
		SELECT status, fulfillment, tenant_id, COALESCE(customer_email,''), total_cents
		FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&status, &fulfillment, &tenantID, &storedEmail, &totalCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if status != StatusPending {
		return ErrAlreadyPaid
	}

	// variant order fixes the row-lock acquisition order, so two concurrent
	// finalizes over overlapping variants cannot deadlock
	rows, err := tx.Query(ctx,
		`SELECT product_id, variant_id, quantity FROM order_items WHERE order_id=$1 ORDER BY variant_id`, orderID)
	if err != nil {
		return err
	}
	type line struct {
		productID string
		variantID string
		qty       int
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.variantID, &l.qty); err != nil {
			rows.Close()
			return err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// "decrement by N where resulting value >= 0": losing this condition on
	// any line means a concurrent sale won the unit; never oversell.
	for _, l := range lines {
		ct, err := tx.Exec(ctx, `
			UPDATE variants SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, l.variantID, l.qty)
		if err != nil {
			return err
		}
		if ct.RowsAffected() != 1 {
			return ErrInsufficientStock
		}
	}

	var addrJSON []byte
	if fulfillment == FulfillmentShip && addr != nil {
		addrJSON, err = json.Marshal(addr)
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_intent_ref=$3, paid_at=now(), updated_at=now(),
			shipping_address = COALESCE($4, shipping_address),
			customer_email = COALESCE(NULLIF($5,''), customer_email)
		WHERE id=$1`, orderID, StatusPaid, intentRef, addrJSON, email); err != nil {
		return err
	}

	detail, _ := json.Marshal(map[string]string{"payment_intent_ref": intentRef})
	if _, err := tx.Exec(ctx,
		`INSERT INTO order_events(order_id, event_type, detail) VALUES ($1,'paid',$2)`, orderID, detail); err != nil {
		return err
	}

	if email == "" {
		email = storedEmail
	}
	productIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.productID)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderID,
	}
	env.Payload = kafkax.MustMarshal(OrderPaidPayload{
		OrderID:    orderID,
		TenantID:   tenantID,
		Email:      email,
		TotalCents: totalCents,
		ProductIDs: productIDs,
	})
	if err := outbox.Insert(ctx, tx, env.EventID, TopicOrderPaid, orderID, env); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
