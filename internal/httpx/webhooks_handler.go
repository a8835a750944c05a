package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/fulfillment"
	"github.com/rushinski/rdk-webstore-sub003/internal/payments"
)

const maxWebhookBody = 1 << 20

// WebhooksHandler terminates inbound notifications from the payment
// processor and the shipping carriers. Payment webhooks are authenticated
// by signature, carrier webhooks by a shared token.
type WebhooksHandler struct {
	Provider     payments.Provider
	Payments     *payments.Processor
	Fulfillment  *fulfillment.Processor
	CarrierToken string
	Log          *zap.Logger
}

func (h *WebhooksHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.payment)
	r.Post("/webhooks/carrier/{carrier}", h.carrier)
}

func (h *WebhooksHandler) payment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Code: "INVALID_PAYLOAD", Message: "unreadable body"})
		return
	}

	ev, err := h.Provider.ParseEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Log.Warn("rejected payment webhook", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errResp{Code: "INVALID_SIGNATURE", Message: "signature verification failed"})
		return
	}
	if ev.Completed == nil {
		// verified but not a completion; ack so the processor stops retrying
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Payments.HandleCompleted(ctx, *ev.Completed); err != nil {
		// non-2xx makes the processor redeliver, which is safe under dedup
		h.Log.Error("payment completion failed, awaiting redelivery",
			zap.String("event_id", ev.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{Code: "INTERNAL", Message: "processing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (h *WebhooksHandler) carrier(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.CarrierToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errResp{Code: "UNAUTHORIZED", Message: "bad webhook token"})
		return
	}

	var upd fulfillment.CarrierUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Code: "INVALID_PAYLOAD", Message: "invalid json"})
		return
	}
	// the route segment is authoritative over whatever the payload claims
	if c := chi.URLParam(r, "carrier"); c != "" {
		upd.Carrier = c
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Fulfillment.HandleTrackingUpdate(ctx, upd); err != nil {
		h.Log.Error("carrier update failed, awaiting redelivery",
			zap.String("carrier", upd.Carrier),
			zap.String("tracking_number", upd.TrackingNumber),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errResp{Code: "INTERNAL", Message: "processing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
