package domain

import "time"

const (
	PaymentMethodOnline = "online"
	PaymentMethodCOD    = "cash_on_delivery"
)

type CustomerData struct {
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email,omitempty"`
}

// OrderSubmission is the payload sent to the order collaborator. Every line
// belongs to SellerID. Line prices and Total are what the shopper saw; the
// collaborator recomputes both from its catalog and rejects stale carts.
type OrderSubmission struct {
	CustomerData    CustomerData     `json:"customerData"`
	CartItems       []CartLine       `json:"cartItems"`
	Total           int64            `json:"total"`
	SellerID        string           `json:"sellerId"`
	PaymentMethod   string           `json:"paymentMethod"`
	UserID          string           `json:"userId"`
	ShippingAddress *DeliveryAddress `json:"shippingAddress,omitempty"`
	CustomerNotes   string           `json:"customerNotes,omitempty"`
	IsExistingUser  bool             `json:"isExistingUser"`
}

type OrderReceipt struct {
	OrderNumber string `json:"orderNumber"`
}

// OrderPlaced is emitted once an order submission has been accepted.
type OrderPlaced struct {
	OrderNumber string     `json:"order_number"`
	SellerID    string     `json:"seller_id"`
	UserID      string     `json:"user_id"`
	Items       []CartLine `json:"items"`
	Total       int64      `json:"total"`
	PlacedAt    time.Time  `json:"placed_at"`
}
