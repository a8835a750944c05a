package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

type OrdersHandler struct {
	Repo          *orders.Repo
	Redis         *redis.Client
	DefaultTenant string
}

type OrderItemResp struct {
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type OrderResp struct {
	OrderID           string                   `json:"order_id"`
	Status            orders.Status            `json:"status"`
	Fulfillment       orders.Fulfillment       `json:"fulfillment"`
	FulfillmentStatus orders.FulfillmentStatus `json:"fulfillment_status"`
	SubtotalCents     int64                    `json:"subtotal_cents"`
	ShippingCents     int64                    `json:"shipping_cents"`
	TaxCents          int64                    `json:"tax_cents"`
	TotalCents        int64                    `json:"total_cents"`
	TrackingNumber    string                   `json:"tracking_number,omitempty"`
	ShippingCarrier   string                   `json:"shipping_carrier,omitempty"`
	Items             []OrderItemResp          `json:"items"`
	Timeline          []orders.TimelineEvent   `json:"timeline"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, errResp{Code: "INVALID_REQUEST", Message: "missing id"})
		return
	}
	tenant := tenantFrom(r, h.DefaultTenant)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first; the event consumer invalidates on state changes
	key := fmt.Sprintf(redisx.KeyOrderStatus, tenant, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Repo.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if o.TenantID != tenant {
		writeErr(w, orders.ErrOrderNotFound)
		return
	}
	items, err := h.Repo.Items(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	timeline, err := h.Repo.Timeline(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := OrderResp{
		OrderID:           o.ID,
		Status:            o.Status,
		Fulfillment:       o.Fulfillment,
		FulfillmentStatus: o.FulfillmentStatus,
		SubtotalCents:     o.SubtotalCents,
		ShippingCents:     o.ShippingCents,
		TaxCents:          o.TaxCents,
		TotalCents:        o.TotalCents,
		TrackingNumber:    o.TrackingNumber,
		ShippingCarrier:   o.ShippingCarrier,
		Items:             make([]OrderItemResp, 0, len(items)),
		Timeline:          timeline,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResp{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	b, _ := json.Marshal(resp)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
