package http

import (
	"encoding/json"
	"net/http"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

type AddItemRequestDTO struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items       []domain.CartLine       `json:"items"`
	Total       int64                   `json:"total"`
	ItemCount   int                     `json:"itemCount"`
	LastRemoved *domain.LastRemovedItem `json:"lastRemoved,omitempty"`
}

func toCartResponse(c domain.Cart, last *domain.LastRemovedItem) CartResponseDTO {
	items := c.Items
	if items == nil {
		items = []domain.CartLine{}
	}
	return CartResponseDTO{Items: items, Total: c.Total, ItemCount: c.ItemCount(), LastRemoved: last}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondJSON(w, http.StatusOK, toCartResponse(domain.Cart{}, nil))
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(s.Cart.Snapshot(), s.Cart.LastRemoved()))
}

// POST /api/v1/cart/items
//
// The product body is the storefront's display snapshot. The first add pins
// it for the line and later adds only change the quantity. Prices and the
// shipping flag are advisory: the order service re-prices every line from its
// own catalog when the order is placed.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product.id is required")
		return
	}
	if req.Product.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "product.price must not be negative")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	c := s.Cart.AddToCart(r.Context(), req.Product, req.Quantity)
	respondJSON(w, http.StatusCreated, toCartResponse(c, s.Cart.LastRemoved()))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	// zero removes the line
	if req.Quantity < 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	c := s.Cart.UpdateQuantity(r.Context(), productID, req.Quantity)
	respondJSON(w, http.StatusOK, toCartResponse(c, s.Cart.LastRemoved()))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	c := s.Cart.RemoveFromCart(r.Context(), productID)
	respondJSON(w, http.StatusOK, toCartResponse(c, s.Cart.LastRemoved()))
}

// POST /api/v1/cart/undo
func (h *CartHandler) UndoRemove(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}
	c := s.Cart.UndoRemove(r.Context())
	respondJSON(w, http.StatusOK, toCartResponse(c, s.Cart.LastRemoved()))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}
	c := s.Cart.ClearCart(r.Context())
	respondJSON(w, http.StatusOK, toCartResponse(c, nil))
}
