package notify_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/notify"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

type memCache struct {
	seen        map[string]bool
	invalidated []string
}

func newMemCache() *memCache { return &memCache{seen: map[string]bool{}} }

func (c *memCache) Seen(_ context.Context, id string) (bool, error) { return c.seen[id], nil }
func (c *memCache) Mark(_ context.Context, id string) error {
	c.seen[id] = true
	return nil
}
func (c *memCache) Invalidate(_ context.Context, keys ...string) error {
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

type sentMail struct{ to, subject string }

type memMailer struct{ sent []sentMail }

func (m *memMailer) Send(to, subject, _ string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

func newService(cache *memCache, mailer *memMailer) *notify.Service {
	return &notify.Service{Cache: cache, Mailer: mailer, Log: zap.NewNop()}
}

func message(t *testing.T, eventID, eventType string, payload any) kafkago.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      raw,
	}
	value, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: value}
}

func TestHandleEventPaidInvalidatesStatusAndProducts(t *testing.T) {
	cache := newMemCache()
	mailer := &memMailer{}
	svc := newService(cache, mailer)

	m := message(t, "evt_1", orders.EventOrderPaid, orders.OrderPaidPayload{
		OrderID:    "o1",
		TenantID:   "t1",
		Email:      "buyer@example.com",
		TotalCents: 4200,
		ProductIDs: []string{"p1", "p2"},
	})
	require.NoError(t, svc.HandleEvent(context.Background(), m))

	assert.Equal(t, []string{
		fmt.Sprintf(redisx.KeyOrderStatus, "t1", "o1"),
		fmt.Sprintf(redisx.KeyProduct, "p1"),
		fmt.Sprintf(redisx.KeyProduct, "p2"),
	}, cache.invalidated)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "buyer@example.com", mailer.sent[0].to)
}

func TestHandleEventShippedInvalidatesStatus(t *testing.T) {
	cache := newMemCache()
	mailer := &memMailer{}
	svc := newService(cache, mailer)

	m := message(t, "evt_2", orders.EventOrderShipped, orders.OrderShippedPayload{
		OrderID:        "o1",
		TenantID:       "t1",
		Email:          "buyer@example.com",
		TrackingNumber: "1Z999",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), m))

	// the cached read blob still says paid; it must go
	assert.Equal(t, []string{fmt.Sprintf(redisx.KeyOrderStatus, "t1", "o1")}, cache.invalidated)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Your order has shipped", mailer.sent[0].subject)
}

func TestHandleEventDeliveredInvalidatesStatus(t *testing.T) {
	cache := newMemCache()
	mailer := &memMailer{}
	svc := newService(cache, mailer)

	m := message(t, "evt_3", orders.EventOrderDelivered, orders.OrderDeliveredPayload{
		OrderID:  "o1",
		TenantID: "t1",
		Email:    "buyer@example.com",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), m))
	assert.Equal(t, []string{fmt.Sprintf(redisx.KeyOrderStatus, "t1", "o1")}, cache.invalidated)
}

func TestHandleEventDedupsByEventID(t *testing.T) {
	cache := newMemCache()
	mailer := &memMailer{}
	svc := newService(cache, mailer)

	m := message(t, "evt_4", orders.EventOrderDelivered, orders.OrderDeliveredPayload{
		OrderID: "o1", TenantID: "t1", Email: "buyer@example.com",
	})
	require.NoError(t, svc.HandleEvent(context.Background(), m))
	require.NoError(t, svc.HandleEvent(context.Background(), m))
	assert.Len(t, mailer.sent, 1)
}

func TestHandleEventNeverRequeuesGarbage(t *testing.T) {
	cache := newMemCache()
	mailer := &memMailer{}
	svc := newService(cache, mailer)

	assert.NoError(t, svc.HandleEvent(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, svc.HandleEvent(context.Background(), message(t, "evt_5", "SomethingElse", map[string]string{})))
	assert.Empty(t, mailer.sent)
	assert.Empty(t, cache.invalidated)
}
