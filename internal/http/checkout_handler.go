package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/checkout"
	"github.com/apada-appleid/biosell-sub000/internal/client"
	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	logger *zap.Logger
}

func NewCheckoutHandler(logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{logger: logger}
}

type CustomerDTO struct {
	FullName string `json:"fullName"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email"`
}

type CheckoutRequestDTO struct {
	Customer      CustomerDTO            `json:"customer"`
	Address       domain.DeliveryAddress `json:"address"`
	SaveAddress   bool                   `json:"saveAddress"`
	PaymentMethod string                 `json:"paymentMethod"`
	Notes         string                 `json:"notes"`
}

type WarningDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CheckoutResponseDTO struct {
	Status      string                  `json:"status"`
	OrderNumber string                  `json:"orderNumber"`
	Address     *domain.DeliveryAddress `json:"address,omitempty"`
	Warnings    []WarningDTO            `json:"warnings,omitempty"`
}

type LastOrderResponseDTO struct {
	OrderNumber string `json:"orderNumber"`
	PlacedAt    string `json:"placedAt"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "missing session")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	switch req.PaymentMethod {
	case "", domain.PaymentMethodOnline, domain.PaymentMethodCOD:
	default:
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "paymentMethod must be online or cash_on_delivery")
		return
	}

	var customer *domain.Customer
	if id := getCustomerID(r.Context()); id != "" {
		customer = &domain.Customer{
			ID:       id,
			FullName: req.Customer.FullName,
			Mobile:   req.Customer.Mobile,
			Email:    req.Customer.Email,
		}
	}

	res, err := s.Checkout.Checkout(r.Context(), checkout.Request{
		Customer:      customer,
		Address:       req.Address,
		SaveAddress:   req.SaveAddress,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	resp := CheckoutResponseDTO{
		Status:      res.Status.String(),
		OrderNumber: res.OrderNumber,
		Address:     res.Address,
	}
	for _, warn := range res.Warnings {
		resp.Warnings = append(resp.Warnings, WarningDTO{Code: kindCode(warn.Kind), Message: checkout.UserMessage(warn)})
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/orders/last
func (h *CheckoutHandler) LastOrder(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	if s == nil {
		respondError(w, http.StatusNotFound, "not_found", "no order has been placed in this session")
		return
	}

	conf, err := s.Confirmations.Last(r.Context())
	if err != nil {
		h.logger.Error("last order lookup failed", zap.String("session_id", s.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if conf == nil {
		respondError(w, http.StatusNotFound, "not_found", "no order has been placed in this session")
		return
	}
	respondJSON(w, http.StatusOK, LastOrderResponseDTO{
		OrderNumber: conf.OrderNumber,
		PlacedAt:    conf.PlacedAt.UTC().Format(time.RFC3339),
	})
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	if errors.Is(err, checkout.ErrInProgress) {
		respondError(w, http.StatusConflict, "checkout_in_progress", checkout.UserMessage(err))
		return
	}

	var e *checkout.Error
	if !errors.As(err, &e) {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var httpStatus int
	switch e.Kind {
	case checkout.KindUnauthenticated:
		httpStatus = http.StatusUnauthorized
	case checkout.KindEmptyCart, checkout.KindIncompleteAddress, checkout.KindInvalidPostalCode, checkout.KindMixedSellerCart:
		httpStatus = http.StatusUnprocessableEntity
	case checkout.KindIdentityConflict:
		httpStatus = http.StatusConflict
	case checkout.KindSubmissionRejected:
		httpStatus = http.StatusUnprocessableEntity
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
			httpStatus = http.StatusBadGateway
		}
	case checkout.KindMalformedResponse:
		httpStatus = http.StatusBadGateway
	case checkout.KindNetworkError:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error:   checkout.UserMessage(err),
		Code:    kindCode(e.Kind),
		Details: strings.Join(e.Fields, ","),
	})
}

// kindCode turns a kind like "InvalidPostalCode" into "invalid_postal_code".
func kindCode(k checkout.Kind) string {
	var b strings.Builder
	for i, r := range string(k) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
