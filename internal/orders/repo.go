package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the durable home of orders, their items, the idempotency ledger
// and the order event timeline. Service names the event producer on
// outbox rows.
type Repo struct {
	DB      *pgxpool.Pool
	Service string
}

const orderColumns = `id, tenant_id, COALESCE(user_id,''), status, fulfillment, fulfillment_status,
	subtotal_cents, shipping_cents, tax_cents, total_cents, cart_hash, idempotency_key,
	COALESCE(payment_session_ref,''), COALESCE(payment_intent_ref,''),
	COALESCE(tracking_number,''), COALESCE(shipping_carrier,''),
	shipping_address, COALESCE(customer_email,''),
	expires_at, paid_at, shipped_at, delivered_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var addr []byte
	err := row.Scan(&o.ID, &o.TenantID, &o.UserID, &o.Status, &o.Fulfillment, &o.FulfillmentStatus,
		&o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.TotalCents, &o.CartHash, &o.IdempotencyKey,
		&o.PaymentSessionRef, &o.PaymentIntentRef, &o.TrackingNumber, &o.ShippingCarrier,
		&addr, &o.CustomerEmail,
		&o.ExpiresAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		var a Address
		if err := json.Unmarshal(addr, &a); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
		o.ShippingAddress = &a
	}
	return &o, nil
}

// FindLedger returns the ledger entry for an idempotency key, or nil when
// the key has never been used.
func (r *Repo) FindLedger(ctx context.Context, key string) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.DB.QueryRow(ctx,
		`SELECT key, order_id, cart_hash, created_at FROM idempotency_keys WHERE key=$1`, key).
		Scan(&e.Key, &e.OrderID, &e.CartHash, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) Items(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `SELECT order_id, product_id, variant_id, name, quantity,
		unit_price_cents, unit_cost_cents, refunded_at FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.VariantID, &it.Name, &it.Quantity,
			&it.UnitPriceCents, &it.UnitCostCents, &it.RefundedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Timeline(ctx context.Context, orderID string) ([]TimelineEvent, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT event_type, detail, created_at FROM order_events WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelineEvent
	for rows.Next() {
		var ev TimelineEvent
		if err := rows.Scan(&ev.EventType, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CreateOrder persists the order, its items, the timeline head and the
// idempotency ledger row in one transaction. A concurrent request holding
// the same key loses the unique insert and gets ErrIdempotencyConflict;
// the caller re-reads the winner.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, items []OrderItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, tenant_id, user_id, status, fulfillment, fulfillment_status,
			subtotal_cents, shipping_cents, tax_cents, total_cents, cart_hash, idempotency_key,
			customer_email, expires_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13,''),$14)`,
		o.ID, o.TenantID, o.UserID, o.Status, o.Fulfillment, o.FulfillmentStatus,
		o.SubtotalCents, o.ShippingCents, o.TaxCents, o.TotalCents, o.CartHash, o.IdempotencyKey,
		o.CustomerEmail, o.ExpiresAt)
	if err != nil {
		return err
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, variant_id, name, quantity, unit_price_cents, unit_cost_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, it.ProductID, it.VariantID, it.Name, it.Quantity, it.UnitPriceCents, it.UnitCostCents); err != nil {
			return err
		}
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys(key, order_id, cart_hash)
		VALUES ($1,$2,$3)
		ON CONFLICT (key) DO NOTHING`, o.IdempotencyKey, o.ID, o.CartHash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO order_events(order_id, event_type) VALUES ($1,'created')`, o.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetPaymentSession records the processor session opened for a pending
// order and appends the timeline entry.
func (r *Repo) SetPaymentSession(ctx context.Context, orderID, sessionRef string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET payment_session_ref=$2, updated_at=now() WHERE id=$1`, orderID, sessionRef); err != nil {
		return err
	}
	detail, _ := json.Marshal(map[string]string{"session_ref": sessionRef})
	if _, err := tx.Exec(ctx,
		`INSERT INTO order_events(order_id, event_type, detail) VALUES ($1,'payment_session_opened',$2)`,
		orderID, detail); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
