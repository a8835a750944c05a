package payments

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

// Store is the slice of the order repository the processor needs.
type Store interface {
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	RecordProcessed(ctx context.Context, eventID, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	FindOrderBySession(ctx context.Context, sessionRef string) (*orders.Order, error)
	FinalizePaid(ctx context.Context, orderID, intentRef string, addr *orders.Address, email string) error
}

// Dedup is a best-effort fast path in front of the durable event ledger.
type Dedup interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Processor applies payment-completion events exactly once. At-least-once
// delivery collapses to at-most-once effect through the event ledger and
// the conditional pending->paid transition.
type Processor struct {
	Store Store
	Dedup Dedup
	Log   *zap.Logger
}

func (p *Processor) HandleCompleted(ctx context.Context, ev CompletedEvent) error {
	if p.Dedup != nil {
		if seen, err := p.Dedup.Seen(ctx, ev.EventID); err == nil && seen {
			return nil
		}
	}
	processed, err := p.Store.EventProcessed(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("check event ledger: %w", err)
	}
	if processed {
		p.mark(ctx, ev.EventID)
		return nil
	}

	ord, err := p.resolveOrder(ctx, ev)
	if err != nil {
		return err
	}
	if ord == nil {
		// Record so the processor stops retrying, then leave a trail for
		// manual investigation.
		if err := p.Store.RecordProcessed(ctx, ev.EventID, ""); err != nil {
			return fmt.Errorf("record orphan event: %w", err)
		}
		p.Log.Warn("payment event references unknown order",
			zap.String("event_id", ev.EventID),
			zap.String("order_ref", ev.OrderID),
			zap.String("session_ref", ev.SessionRef))
		p.mark(ctx, ev.EventID)
		return nil
	}

	err = p.Store.FinalizePaid(ctx, ord.ID, ev.IntentRef, ev.ShippingAddress, ev.Email)
	switch {
	case err == nil:
	case errors.Is(err, orders.ErrAlreadyPaid):
		// duplicate success notification for the same order under a new
		// event id
		p.Log.Info("order already paid, acknowledging duplicate",
			zap.String("event_id", ev.EventID),
			zap.String("order_id", ord.ID))
	case errors.Is(err, orders.ErrInsufficientStock):
		// A concurrent sale won the last units. The order stays unpaid and
		// the event unrecorded; a redelivery after manual restock resolves
		// it. Never overcommit silently.
		p.Log.Error("stock exhausted during payment finalization, manual resolution required",
			zap.String("event_id", ev.EventID),
			zap.String("order_id", ord.ID))
		return err
	default:
		return fmt.Errorf("finalize order %s: %w", ord.ID, err)
	}

	if err := p.Store.RecordProcessed(ctx, ev.EventID, ord.ID); err != nil {
		return fmt.Errorf("record processed event: %w", err)
	}
	p.mark(ctx, ev.EventID)
	return nil
}

func (p *Processor) resolveOrder(ctx context.Context, ev CompletedEvent) (*orders.Order, error) {
	if ev.OrderID != "" {
		ord, err := p.Store.GetOrder(ctx, ev.OrderID)
		if err == nil {
			return ord, nil
		}
		if !errors.Is(err, orders.ErrOrderNotFound) {
			return nil, fmt.Errorf("resolve order %s: %w", ev.OrderID, err)
		}
	}
	if ev.SessionRef != "" {
		ord, err := p.Store.FindOrderBySession(ctx, ev.SessionRef)
		if err == nil {
			return ord, nil
		}
		if !errors.Is(err, orders.ErrOrderNotFound) {
			return nil, fmt.Errorf("resolve order by session %s: %w", ev.SessionRef, err)
		}
	}
	return nil, nil
}

func (p *Processor) mark(ctx context.Context, eventID string) {
	if p.Dedup == nil {
		return
	}
	if err := p.Dedup.Mark(ctx, eventID); err != nil {
		p.Log.Debug("dedup cache mark failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
