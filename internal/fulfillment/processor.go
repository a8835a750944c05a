package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

type Store interface {
	FindOrderByTracking(ctx context.Context, trackingNumber string) (*orders.Order, error)
	AdvanceFulfillment(ctx context.Context, orderID string, to orders.FulfillmentStatus, carrier, trackingURL string) error
}

// Processor drives the fulfillment state machine from carrier callbacks.
// Everything that is not a clean forward transition is acknowledged
// without effect so carriers never retry indefinitely.
type Processor struct {
	Store Store
	Log   *zap.Logger
}

func (p *Processor) HandleTrackingUpdate(ctx context.Context, upd CarrierUpdate) error {
	if upd.TrackingNumber == "" {
		p.Log.Debug("carrier event without tracking number", zap.String("carrier", upd.Carrier))
		return nil
	}

	to, ok := Normalize(upd.Carrier, upd.Status)
	if !ok {
		p.Log.Debug("ignoring unmapped carrier status",
			zap.String("carrier", upd.Carrier),
			zap.String("status", upd.Status))
		return nil
	}

	order, err := p.Store.FindOrderByTracking(ctx, upd.TrackingNumber)
	if errors.Is(err, orders.ErrOrderNotFound) {
		// may belong to another system, or the tracking number is not
		// recorded yet
		p.Log.Info("no order for tracking number",
			zap.String("tracking_number", upd.TrackingNumber),
			zap.String("carrier", upd.Carrier))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve tracking %s: %w", upd.TrackingNumber, err)
	}

	err = p.Store.AdvanceFulfillment(ctx, order.ID, to, upd.Carrier, upd.TrackingURL)
	if errors.Is(err, orders.ErrNoTransition) {
		return nil // repeated or out-of-order event
	}
	if err != nil {
		return fmt.Errorf("advance order %s to %s: %w", order.ID, to, err)
	}
	p.Log.Info("fulfillment advanced",
		zap.String("order_id", order.ID),
		zap.String("fulfillment_status", string(to)),
		zap.String("carrier", upd.Carrier))
	return nil
}
