package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/catalog"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/payments"
)

// Store is the slice of the order repository the orchestrator needs.
type Store interface {
	FindLedger(ctx context.Context, key string) (*orders.LedgerEntry, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	Items(ctx context.Context, orderID string) ([]orders.OrderItem, error)
	CreateOrder(ctx context.Context, o *orders.Order, items []orders.OrderItem) error
	SetPaymentSession(ctx context.Context, orderID, sessionRef string) error
}

type CartResolver interface {
	Resolve(ctx context.Context, items []orders.CartItem) ([]catalog.PricedItem, error)
}

// TaxCalculator is the narrow seam to the external tax subsystem.
type TaxCalculator interface {
	Tax(ctx context.Context, tenantID string, subtotalCents, shippingCents int64) (int64, error)
}

// FlatRateTax applies a configured flat rate in basis points.
type FlatRateTax struct {
	BasisPoints int64
}

func (t FlatRateTax) Tax(_ context.Context, _ string, subtotalCents, shippingCents int64) (int64, error) {
	return (subtotalCents + shippingCents) * t.BasisPoints / 10000, nil
}

// Service turns a client cart into a pending order plus an open payment
// session, idempotently under retries.
type Service struct {
	Store      Store
	Catalog    CartResolver
	Provider   payments.Provider
	Tax        TaxCalculator
	Log        *zap.Logger
	Currency   string
	PendingTTL time.Duration
	Now        func() time.Time
}

type CreateSessionInput struct {
	TenantID       string
	UserID         string
	Email          string
	Items          []orders.CartItem
	Fulfillment    orders.Fulfillment
	IdempotencyKey string
}

type SessionResult struct {
	OrderID string
	URL     string
	Reused  bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*SessionResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	hash := orders.CartHash(in.Items, in.Fulfillment)

	entry, err := s.Store.FindLedger(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	if entry != nil {
		return s.reuse(ctx, in, entry, hash)
	}

	priced, err := s.Catalog.Resolve(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	// demand is summed per variant; a cart may carry the same variant on
	// several lines
	demand := make(map[string]int, len(priced))
	for _, p := range priced {
		demand[p.VariantID] += p.Quantity
	}
	for _, p := range priced {
		if demand[p.VariantID] > p.Stock {
			return nil, fmt.Errorf("%w: variant %s has %d available", orders.ErrInsufficientStock, p.VariantID, p.Stock)
		}
	}

	var subtotal int64
	for _, p := range priced {
		subtotal += p.UnitPriceCents * int64(p.Quantity)
	}
	shipping := shippingCost(in.Fulfillment, priced)
	tax, err := s.Tax.Tax(ctx, in.TenantID, subtotal, shipping)
	if err != nil {
		return nil, fmt.Errorf("compute tax: %w", err)
	}

	now := s.now()
	order := &orders.Order{
		ID:                uuid.NewString(),
		TenantID:          in.TenantID,
		UserID:            in.UserID,
		Status:            orders.StatusPending,
		Fulfillment:       in.Fulfillment,
		FulfillmentStatus: orders.FulfillmentUnfulfilled,
		SubtotalCents:     subtotal,
		ShippingCents:     shipping,
		TaxCents:          tax,
		TotalCents:        subtotal + shipping + tax,
		CartHash:          hash,
		IdempotencyKey:    in.IdempotencyKey,
		CustomerEmail:     in.Email,
		ExpiresAt:         now.Add(s.PendingTTL),
	}
	items := make([]orders.OrderItem, 0, len(priced))
	for _, p := range priced {
		items = append(items, orders.OrderItem{
			OrderID:        order.ID,
			ProductID:      p.ProductID,
			VariantID:      p.VariantID,
			Name:           p.Name,
			Quantity:       p.Quantity,
			UnitPriceCents: p.UnitPriceCents,
			UnitCostCents:  p.UnitCostCents,
		})
	}

	err = s.Store.CreateOrder(ctx, order, items)
	if errors.Is(err, orders.ErrIdempotencyConflict) {
		// lost the unique insert race to a concurrent retry; serve the winner
		entry, lerr := s.Store.FindLedger(ctx, in.IdempotencyKey)
		if lerr != nil || entry == nil {
			return nil, fmt.Errorf("ledger re-read after conflict: %w", lerr)
		}
		return s.reuse(ctx, in, entry, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	url, err := s.openSession(ctx, order, items)
	if err != nil {
		// Order row stays pending and reusable; a retry with the same key
		// opens the session without creating a second order.
		return nil, err
	}
	s.Log.Info("checkout session created",
		zap.String("order_id", order.ID),
		zap.String("tenant_id", order.TenantID),
		zap.Int64("total_cents", order.TotalCents))
	return &SessionResult{OrderID: order.ID, URL: url}, nil
}

func (s *Service) reuse(ctx context.Context, in CreateSessionInput, entry *orders.LedgerEntry, hash string) (*SessionResult, error) {
	if entry.CartHash != hash {
		return nil, orders.ErrCartMismatch
	}
	order, err := s.Store.GetOrder(ctx, entry.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load order for key reuse: %w", err)
	}
	if order.Status != orders.StatusPending {
		// session already consumed (or the order moved on); the key cannot
		// produce a second charge
		return nil, orders.ErrIdempotencyKeyExpired
	}
	if order.Expired(s.now()) {
		return nil, orders.ErrIdempotencyKeyExpired
	}

	if order.PaymentSessionRef == "" {
		// earlier attempt created the order but died before the processor
		// call; finish the job now
		items, err := s.Store.Items(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("load items for key reuse: %w", err)
		}
		url, err := s.openSession(ctx, order, items)
		if err != nil {
			return nil, err
		}
		return &SessionResult{OrderID: order.ID, URL: url, Reused: true}, nil
	}

	status, err := s.Provider.GetSession(ctx, order.PaymentSessionRef)
	if err != nil {
		return nil, err
	}
	switch status.State {
	case payments.SessionOpen:
		return &SessionResult{OrderID: order.ID, URL: status.URL, Reused: true}, nil
	default:
		// stale at the processor, or already consumed
		return nil, orders.ErrIdempotencyKeyExpired
	}
}

func (s *Service) openSession(ctx context.Context, order *orders.Order, items []orders.OrderItem) (string, error) {
	req := payments.SessionRequest{
		OrderID:        order.ID,
		IdempotencyKey: order.IdempotencyKey,
		Currency:       s.Currency,
		Email:          order.CustomerEmail,
		ShippingCents:  order.ShippingCents,
		TaxCents:       order.TaxCents,
		ExpiresAt:      order.ExpiresAt,
	}
	for _, it := range items {
		req.Lines = append(req.Lines, payments.SessionLine{
			Name:       it.Name,
			UnitAmount: it.UnitPriceCents,
			Quantity:   int64(it.Quantity),
		})
	}
	sess, err := s.Provider.CreateSession(ctx, req)
	if err != nil {
		s.Log.Warn("payment session creation failed, order stays pending",
			zap.String("order_id", order.ID), zap.Error(err))
		return "", err
	}
	if err := s.Store.SetPaymentSession(ctx, order.ID, sess.ID); err != nil {
		return "", fmt.Errorf("persist session ref: %w", err)
	}
	return sess.URL, nil
}

// Shipping is the maximum of the distinct category flat rates in the cart,
// not their sum; pickup is always free.
func shippingCost(f orders.Fulfillment, priced []catalog.PricedItem) int64 {
	if f != orders.FulfillmentShip {
		return 0
	}
	var max int64
	for _, p := range priced {
		if p.ShippingCents > max {
			max = p.ShippingCents
		}
	}
	return max
}

func validate(in CreateSessionInput) error {
	if in.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", orders.ErrInvalidCart)
	}
	if !in.Fulfillment.Valid() {
		return fmt.Errorf("%w: fulfillment must be ship or pickup", orders.ErrInvalidCart)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", orders.ErrInvalidCart)
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.VariantID == "" {
			return fmt.Errorf("%w: item is missing product or variant id", orders.ErrInvalidCart)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for variant %s", orders.ErrInvalidCart, it.VariantID)
		}
	}
	return nil
}
