package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

func NewRouter(m *ServerMetrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", MetricsHandler())
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeErr maps domain error codes onto HTTP statuses. Conflicts with an
// existing idempotency ledger are 409 so the caller knows to mint a new key;
// provider outages are 502 so the caller can retry the same key.
func writeErr(w http.ResponseWriter, err error) {
	var de *orders.Error
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, errResp{Code: "INTERNAL", Message: "internal error"})
		return
	}
	status := http.StatusInternalServerError
	switch de.Code {
	case orders.ErrCartMismatch.Code, orders.ErrIdempotencyKeyExpired.Code:
		status = http.StatusConflict
	case orders.ErrInvalidCart.Code, orders.ErrInsufficientStock.Code:
		status = http.StatusBadRequest
	case orders.ErrProviderUnavailable.Code:
		status = http.StatusBadGateway
	case orders.ErrOrderNotFound.Code:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errResp{Code: de.Code, Message: de.Message})
}

func tenantFrom(r *http.Request, def string) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return def
}
