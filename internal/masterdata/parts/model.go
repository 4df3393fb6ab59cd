package parts

// Part is a catalog item referenced by requisitions, RFQs and order lines.
// Catalog editing lives outside the engine.
type Part struct {
	ID       int64  `json:"id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
