package payments

import (
	"context"
	"time"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

// SessionLine is one display line of the hosted payment page, priced in
// minor currency units.
type SessionLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	OrderID        string
	IdempotencyKey string
	Currency       string
	Email          string
	Lines          []SessionLine
	ShippingCents  int64
	TaxCents       int64
	ExpiresAt      time.Time
}

type Session struct {
	ID  string
	URL string
}

type SessionState string

const (
	SessionOpen     SessionState = "open"
	SessionComplete SessionState = "complete"
	SessionExpired  SessionState = "expired"
)

// SessionStatus is the current state of a previously opened session; URL
// is populated while the session is still payable.
type SessionStatus struct {
	State SessionState
	URL   string
}

// CompletedEvent is the processor-neutral shape of a payment-completion
// notification.
type CompletedEvent struct {
	EventID         string
	OrderID         string // from session metadata, may be empty
	SessionRef      string
	IntentRef       string
	Email           string
	ShippingAddress *orders.Address
}

// WebhookEvent is a verified processor event. Completed is non-nil only
// for payment-completion events; everything else is acknowledged and
// ignored by the caller.
type WebhookEvent struct {
	ID        string
	Type      string
	Completed *CompletedEvent
}

// Provider abstracts the external payment processor so tests substitute a
// fake. Implementations hold their own configuration; nothing is ambient.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	ParseEvent(payload []byte, signature string) (*WebhookEvent, error)
}
