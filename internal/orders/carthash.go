package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

type CartItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// CartHash fingerprints normalized cart contents plus the fulfillment
// method. Quantities are merged per (product, variant) and the merged
// lines sorted, so client-side reordering or splitting of a line never
// changes the hash.
func CartHash(items []CartItem, fulfillment Fulfillment) string {
	type lineKey struct {
		productID string
		variantID string
	}
	qty := make(map[lineKey]int, len(items))
	for _, it := range items {
		qty[lineKey{it.ProductID, it.VariantID}] += it.Quantity
	}

	keys := make([]lineKey, 0, len(qty))
	for k := range qty {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID < keys[j].productID
		}
		return keys[i].variantID < keys[j].variantID
	})

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s|%s|%d\n", k.productID, k.variantID, qty[k])
	}
	b.WriteString(string(fulfillment))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
