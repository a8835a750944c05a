package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/fulfillment"
	"github.com/rushinski/rdk-webstore-sub003/internal/httpx"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/payments"
)

type fakeProvider struct {
	ev  *payments.WebhookEvent
	err error
}

func (f *fakeProvider) CreateSession(context.Context, payments.SessionRequest) (*payments.Session, error) {
	return nil, errors.New("not used")
}
func (f *fakeProvider) GetSession(context.Context, string) (*payments.SessionStatus, error) {
	return nil, errors.New("not used")
}
func (f *fakeProvider) ParseEvent([]byte, string) (*payments.WebhookEvent, error) {
	return f.ev, f.err
}

type fakePaymentStore struct {
	finalized int
}

func (s *fakePaymentStore) EventProcessed(context.Context, string) (bool, error) { return false, nil }
func (s *fakePaymentStore) RecordProcessed(context.Context, string, string) error {
	return nil
}
func (s *fakePaymentStore) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	return &orders.Order{ID: id, Status: orders.StatusPending}, nil
}
func (s *fakePaymentStore) FindOrderBySession(context.Context, string) (*orders.Order, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *fakePaymentStore) FinalizePaid(context.Context, string, string, *orders.Address, string) error {
	s.finalized++
	return nil
}

type fakeFulfillStore struct{}

func (s *fakeFulfillStore) FindOrderByTracking(context.Context, string) (*orders.Order, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *fakeFulfillStore) AdvanceFulfillment(context.Context, string, orders.FulfillmentStatus, string, string) error {
	return nil
}

func newServer(t *testing.T, prov payments.Provider, payStore *fakePaymentStore) *httptest.Server {
	t.Helper()
	router := httpx.NewRouter(nil)
	h := &httpx.WebhooksHandler{
		Provider:     prov,
		Payments:     &payments.Processor{Store: payStore, Log: zap.NewNop()},
		Fulfillment:  &fulfillment.Processor{Store: &fakeFulfillStore{}, Log: zap.NewNop()},
		CarrierToken: "sekrit",
		Log:          zap.NewNop(),
	}
	h.Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	srv := newServer(t, &fakeProvider{err: errors.New("signature mismatch")}, &fakePaymentStore{})

	resp, err := http.Post(srv.URL+"/webhooks/payment", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentWebhookAcksNonCompletionEvents(t *testing.T) {
	srv := newServer(t, &fakeProvider{ev: &payments.WebhookEvent{ID: "evt_1", Type: "charge.updated"}}, &fakePaymentStore{})

	resp, err := http.Post(srv.URL+"/webhooks/payment", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPaymentWebhookProcessesCompletion(t *testing.T) {
	store := &fakePaymentStore{}
	srv := newServer(t, &fakeProvider{ev: &payments.WebhookEvent{
		ID:        "evt_1",
		Type:      "checkout.session.completed",
		Completed: &payments.CompletedEvent{EventID: "evt_1", OrderID: "o1", IntentRef: "pi_1"},
	}}, store)

	resp, err := http.Post(srv.URL+"/webhooks/payment", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, store.finalized)
}

func TestCarrierWebhookRequiresToken(t *testing.T) {
	srv := newServer(t, &fakeProvider{}, &fakePaymentStore{})

	body := `{"trackingNumber":"1Z999","status":"delivered"}`
	resp, err := http.Post(srv.URL+"/webhooks/carrier/ups?token=wrong", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/webhooks/carrier/ups?token=sekrit", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
