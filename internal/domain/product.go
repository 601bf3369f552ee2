package domain

type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Product is a catalog entry as seen by the cart. Price is in the smallest
// currency unit. A nil Inventory means stock is unlimited.
type Product struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Price           int64  `json:"price"`
	Inventory       *int   `json:"inventory"`
	RequiresAddress bool   `json:"requiresAddress"`
	Shop            Shop   `json:"shop"`
}

// Clone returns a copy that shares no memory with p.
func (p Product) Clone() Product {
	if p.Inventory != nil {
		inv := *p.Inventory
		p.Inventory = &inv
	}
	return p
}

// ClampQuantity caps quantity at the product's inventory when it is limited.
func (p Product) ClampQuantity(quantity int) int {
	if p.Inventory != nil && quantity > *p.Inventory {
		return *p.Inventory
	}
	return quantity
}
