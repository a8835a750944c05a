package payments_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/payments"
)

// ---- in-memory store ----

type memStore struct {
	processed map[string]string
	byID      map[string]*orders.Order
	bySession map[string]*orders.Order
	stock     map[string]int // variant -> units, drained on finalize
	demand    map[string]int
	finalized []string
}

func newMemStore() *memStore {
	return &memStore{
		processed: map[string]string{},
		byID:      map[string]*orders.Order{},
		bySession: map[string]*orders.Order{},
		stock:     map[string]int{},
		demand:    map[string]int{},
	}
}

func (s *memStore) addOrder(o *orders.Order) {
	s.byID[o.ID] = o
	if o.PaymentSessionRef != "" {
		s.bySession[o.PaymentSessionRef] = o
	}
}

func (s *memStore) EventProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *memStore) RecordProcessed(_ context.Context, eventID, orderID string) error {
	s.processed[eventID] = orderID
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) FindOrderBySession(_ context.Context, ref string) (*orders.Order, error) {
	o, ok := s.bySession[ref]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) FinalizePaid(_ context.Context, orderID, intentRef string, addr *orders.Address, email string) error {
	o := s.byID[orderID]
	if o.Status != orders.StatusPending {
		return orders.ErrAlreadyPaid
	}
	for v, q := range s.demand {
		if s.stock[v] < q {
			return orders.ErrInsufficientStock
		}
	}
	for v, q := range s.demand {
		s.stock[v] -= q
	}
	o.Status = orders.StatusPaid
	o.PaymentIntentRef = intentRef
	if addr != nil {
		o.ShippingAddress = addr
	}
	s.finalized = append(s.finalized, orderID)
	return nil
}

// ---- fake cache dedup ----

type memDedup struct{ seen map[string]bool }

func (d *memDedup) Seen(_ context.Context, id string) (bool, error) { return d.seen[id], nil }
func (d *memDedup) Mark(_ context.Context, id string) error {
	d.seen[id] = true
	return nil
}

func newProcessor(store *memStore) *payments.Processor {
	return &payments.Processor{
		Store: store,
		Dedup: &memDedup{seen: map[string]bool{}},
		Log:   zap.NewNop(),
	}
}

func pendingOrder(id, session string) *orders.Order {
	return &orders.Order{ID: id, TenantID: "t1", Status: orders.StatusPending, PaymentSessionRef: session}
}

func TestHandleCompletedFinalizesOnce(t *testing.T) {
	store := newMemStore()
	store.addOrder(pendingOrder("o1", "cs_1"))
	store.stock["v1"] = 3
	store.demand["v1"] = 2
	proc := newProcessor(store)

	ev := payments.CompletedEvent{EventID: "evt_1", OrderID: "o1", SessionRef: "cs_1", IntentRef: "pi_1"}
	for i := 0; i < 5; i++ {
		require.NoError(t, proc.HandleCompleted(context.Background(), ev))
	}

	assert.Equal(t, []string{"o1"}, store.finalized)
	assert.Equal(t, 1, store.stock["v1"])
	assert.Equal(t, orders.StatusPaid, store.byID["o1"].Status)
	assert.Equal(t, "pi_1", store.byID["o1"].PaymentIntentRef)
}

func TestHandleCompletedDuplicateEventIDsSameOrder(t *testing.T) {
	store := newMemStore()
	store.addOrder(pendingOrder("o1", "cs_1"))
	proc := newProcessor(store)

	// the processor sometimes re-notifies with a fresh event id
	require.NoError(t, proc.HandleCompleted(context.Background(), payments.CompletedEvent{EventID: "evt_1", OrderID: "o1"}))
	require.NoError(t, proc.HandleCompleted(context.Background(), payments.CompletedEvent{EventID: "evt_2", OrderID: "o1"}))

	assert.Equal(t, []string{"o1"}, store.finalized)
}

func TestHandleCompletedResolvesBySessionRef(t *testing.T) {
	store := newMemStore()
	store.addOrder(pendingOrder("o1", "cs_1"))
	proc := newProcessor(store)

	ev := payments.CompletedEvent{EventID: "evt_1", SessionRef: "cs_1", IntentRef: "pi_1"}
	require.NoError(t, proc.HandleCompleted(context.Background(), ev))
	assert.Equal(t, orders.StatusPaid, store.byID["o1"].Status)
}

func TestHandleCompletedUnknownOrderAcked(t *testing.T) {
	store := newMemStore()
	proc := newProcessor(store)

	ev := payments.CompletedEvent{EventID: "evt_9", OrderID: "missing", SessionRef: "cs_missing"}
	require.NoError(t, proc.HandleCompleted(context.Background(), ev))

	// recorded so the processor stops retrying, but nothing finalized
	assert.Empty(t, store.finalized)
	processed, err := store.EventProcessed(context.Background(), "evt_9")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestHandleCompletedInsufficientStockLeftForRedelivery(t *testing.T) {
	store := newMemStore()
	store.addOrder(pendingOrder("o1", "cs_1"))
	store.stock["v1"] = 1
	store.demand["v1"] = 2
	proc := newProcessor(store)

	ev := payments.CompletedEvent{EventID: "evt_1", OrderID: "o1"}
	err := proc.HandleCompleted(context.Background(), ev)
	assert.ErrorIs(t, err, orders.ErrInsufficientStock)
	assert.Equal(t, orders.StatusPending, store.byID["o1"].Status)

	// manual restock, then redelivery succeeds with the same event id
	store.stock["v1"] = 2
	require.NoError(t, proc.HandleCompleted(context.Background(), ev))
	assert.Equal(t, orders.StatusPaid, store.byID["o1"].Status)
}

func TestHandleCompletedFillsAddressAndEmail(t *testing.T) {
	store := newMemStore()
	store.addOrder(pendingOrder("o1", "cs_1"))
	proc := newProcessor(store)

	addr := &orders.Address{Line1: "1 Main St", City: "Springfield", Country: "US"}
	ev := payments.CompletedEvent{EventID: "evt_1", OrderID: "o1", ShippingAddress: addr, Email: "buyer@example.com"}
	require.NoError(t, proc.HandleCompleted(context.Background(), ev))
	assert.Equal(t, addr, store.byID["o1"].ShippingAddress)
}
