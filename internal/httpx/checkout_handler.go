package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rushinski/rdk-webstore-sub003/internal/checkout"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

type CheckoutHandler struct {
	Service       *checkout.Service
	DefaultTenant string
}

type CreateSessionReq struct {
	Items          []orders.CartItem  `json:"items"`
	Fulfillment    orders.Fulfillment `json:"fulfillment"`
	IdempotencyKey string             `json:"idempotencyKey"`
	Email          string             `json:"email,omitempty"`
	UserID         string             `json:"userId,omitempty"`
}

type CreateSessionResp struct {
	OrderID    string `json:"orderId"`
	URL        string `json:"url"`
	Idempotent bool   `json:"idempotent"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout/session", h.createSession)
}

func (h *CheckoutHandler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Code: "INVALID_JSON", Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Service.CreateSession(ctx, checkout.CreateSessionInput{
		TenantID:       tenantFrom(r, h.DefaultTenant),
		UserID:         req.UserID,
		Email:          req.Email,
		Items:          req.Items,
		Fulfillment:    req.Fulfillment,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateSessionResp{OrderID: res.OrderID, URL: res.URL, Idempotent: res.Reused})
}
