package domain

// DeliveryAddress belongs to the customer account. ID is empty for drafts
// that were never saved.
type DeliveryAddress struct {
	ID         string `json:"id,omitempty"`
	FullName   string `json:"fullName"`
	Mobile     string `json:"mobile"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

// Customer is the authenticated account holder. Mobile is the verified
// account number, which may differ from a delivery mobile.
type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email,omitempty"`
}
