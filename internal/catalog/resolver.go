package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
)

// Resolver re-prices a cart from current catalog data. Client-submitted
// prices are never consulted.
type Resolver struct {
	DB *pgxpool.Pool
}

// PricedItem is one cart line with server-side price, cost, availability
// and the flat shipping rate of the product's category.
type PricedItem struct {
	ProductID      string
	VariantID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
	UnitCostCents  int64
	Stock          int
	CategoryID     string
	ShippingCents  int64
}

func (r *Resolver) Resolve(ctx context.Context, items []orders.CartItem) ([]PricedItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT v.id, v.product_id, p.name || CASE WHEN v.name <> '' THEN ' (' || v.name || ')' ELSE '' END,
		       v.stock, v.price_cents, v.cost_cents, p.category_id, c.shipping_cents
		FROM variants v
		JOIN products p ON p.id = v.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE v.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type variant struct {
		productID     string
		name          string
		stock         int
		priceCents    int64
		costCents     int64
		categoryID    string
		shippingCents int64
	}
	byID := map[string]variant{}
	for rows.Next() {
		var id string
		var v variant
		if err := rows.Scan(&id, &v.productID, &v.name, &v.stock, &v.priceCents, &v.costCents, &v.categoryID, &v.shippingCents); err != nil {
			return nil, err
		}
		byID[id] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]PricedItem, 0, len(items))
	for _, it := range items {
		v, ok := byID[it.VariantID]
		if !ok {
			return nil, fmt.Errorf("%w: variant not found: %s", orders.ErrInvalidCart, it.VariantID)
		}
		if v.productID != it.ProductID {
			return nil, fmt.Errorf("%w: variant %s does not belong to product %s", orders.ErrInvalidCart, it.VariantID, it.ProductID)
		}
		out = append(out, PricedItem{
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Name:           v.name,
			Quantity:       it.Quantity,
			UnitPriceCents: v.priceCents,
			UnitCostCents:  v.costCents,
			Stock:          v.stock,
			CategoryID:     v.categoryID,
			ShippingCents:  v.shippingCents,
		})
	}
	return out, nil
}
