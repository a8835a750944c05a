package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/rushinski/rdk-webstore-sub003/internal/kafka"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

// Cache is the slice of Redis the notifier needs: event dedup plus
// invalidation of read-side keys.
type Cache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service is the downstream side of the notification pipeline: emails and
// cache invalidation. Everything here is best effort; failures are logged
// and never ripple back into the financial state.
type Service struct {
	Cache  Cache
	Mailer Mailer
	Log    *zap.Logger
}

// HandleEvent is installed as the consumer handler for all order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("malformed notification envelope", zap.Error(err))
		return nil // never requeue garbage
	}

	if s.seen(ctx, env.EventID) {
		return nil
	}

	switch env.EventType {
	case orders.EventOrderPaid:
		p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
		if err != nil {
			s.Log.Warn("bad order.paid payload", zap.Error(err))
			return nil
		}
		s.orderPaid(ctx, p)
	case orders.EventOrderShipped:
		p, err := kafkax.UnwrapPayload[orders.OrderShippedPayload](env.Payload)
		if err != nil {
			s.Log.Warn("bad order.shipped payload", zap.Error(err))
			return nil
		}
		s.orderShipped(ctx, p)
	case orders.EventOrderDelivered:
		p, err := kafkax.UnwrapPayload[orders.OrderDeliveredPayload](env.Payload)
		if err != nil {
			s.Log.Warn("bad order.delivered payload", zap.Error(err))
			return nil
		}
		s.orderDelivered(ctx, p)
	default:
		return nil
	}

	s.mark(ctx, env.EventID)
	return nil
}

func (s *Service) orderPaid(ctx context.Context, p orders.OrderPaidPayload) {
	s.email(p.Email, "Your order is confirmed",
		fmt.Sprintf("Order %s is confirmed. Total: %d.%02d", p.OrderID, p.TotalCents/100, p.TotalCents%100))

	// stock changed; bust the cached product views and the status blob
	keys := []string{fmt.Sprintf(redisx.KeyOrderStatus, p.TenantID, p.OrderID)}
	for _, pid := range p.ProductIDs {
		keys = append(keys, fmt.Sprintf(redisx.KeyProduct, pid))
	}
	s.invalidate(ctx, p.OrderID, keys)
}

func (s *Service) orderShipped(ctx context.Context, p orders.OrderShippedPayload) {
	body := fmt.Sprintf("Order %s has shipped.", p.OrderID)
	if p.TrackingURL != "" {
		body += " Track it at " + p.TrackingURL
	} else if p.TrackingNumber != "" {
		body += " Tracking number: " + p.TrackingNumber
	}
	s.email(p.Email, "Your order has shipped", body)
	s.invalidate(ctx, p.OrderID, []string{fmt.Sprintf(redisx.KeyOrderStatus, p.TenantID, p.OrderID)})
}

func (s *Service) orderDelivered(ctx context.Context, p orders.OrderDeliveredPayload) {
	s.email(p.Email, "Your order was delivered",
		fmt.Sprintf("Order %s was delivered.", p.OrderID))
	s.invalidate(ctx, p.OrderID, []string{fmt.Sprintf(redisx.KeyOrderStatus, p.TenantID, p.OrderID)})
}

func (s *Service) email(to, subject, body string) {
	if to == "" {
		return
	}
	if err := s.Mailer.Send(to, subject, body); err != nil {
		s.Log.Warn("email send failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, orderID string, keys []string) {
	if err := s.Cache.Invalidate(ctx, keys...); err != nil {
		s.Log.Warn("cache invalidation failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) seen(ctx context.Context, eventID string) bool {
	ok, err := s.Cache.Seen(ctx, eventID)
	return err == nil && ok
}

func (s *Service) mark(ctx context.Context, eventID string) {
	if err := s.Cache.Mark(ctx, eventID); err != nil {
		s.Log.Debug("dedup mark failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
