package domain

import "time"

type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

// Cart keeps lines in insertion order. Total is derived; call RecomputeTotal
// after every change to Items.
type Cart struct {
	Items []CartLine `json:"items"`
	Total int64      `json:"total"`
}

func (c *Cart) RecomputeTotal() {
	var total int64
	for _, line := range c.Items {
		total += line.Subtotal()
	}
	c.Total = total
}

// IndexOf returns the position of the line for productID, or -1.
func (c *Cart) IndexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) ItemCount() int {
	n := 0
	for _, line := range c.Items {
		n += line.Quantity
	}
	return n
}

// Clone deep-copies the cart, product snapshots included.
func (c Cart) Clone() Cart {
	out := Cart{Total: c.Total, Items: make([]CartLine, len(c.Items))}
	for i, line := range c.Items {
		out.Items[i] = CartLine{Product: line.Product.Clone(), Quantity: line.Quantity}
	}
	return out
}

// RequiresAddress reports whether any line needs a shipping address.
func (c Cart) RequiresAddress() bool {
	for _, line := range c.Items {
		if line.Product.RequiresAddress {
			return true
		}
	}
	return false
}

// LastRemovedItem is the single-slot undo buffer of the cart store.
type LastRemovedItem struct {
	Product   Product   `json:"product"`
	Quantity  int       `json:"quantity"`
	RemovedAt time.Time `json:"removedAt"`
}
