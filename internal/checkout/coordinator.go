// Package checkout turns the current cart plus delivery details into an
// order submission and resolves the cart according to the outcome.
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/client"
	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSubmitTimeout = 15 * time.Second

type Cart interface {
	Snapshot() domain.Cart
	ClearOrdered(ctx context.Context, ordered []domain.CartLine) domain.Cart
}

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type AddressSaver interface {
	CreateAddress(ctx context.Context, token string, addr domain.DeliveryAddress) (*domain.DeliveryAddress, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, token, idempotencyKey string, sub domain.OrderSubmission) (*domain.OrderReceipt, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderPlaced) error
}

type Request struct {
	Customer *domain.Customer
	Address  domain.DeliveryAddress
	// SaveAddress asks for a draft address (one without ID) to be stored on
	// the account before the order is sent.
	SaveAddress   bool
	PaymentMethod string
	Notes         string
}

type Result struct {
	Status      domain.CheckoutStatus
	OrderNumber string
	// Address is the saved address when one was persisted in this attempt.
	Address  *domain.DeliveryAddress
	Warnings []*Error
}

type Coordinator struct {
	cart          Cart
	tokens        TokenSource
	addresses     AddressSaver
	orders        OrderSubmitter
	confirmations *Confirmations
	publisher     EventPublisher

	logger        *zap.Logger
	submitTimeout time.Duration
	newKey        func() string
	now           func() time.Time

	submitting atomic.Bool
	mu         sync.Mutex
	status     domain.CheckoutStatus

	// pendingKey survives an attempt whose outcome is unknown so a retry of
	// the same cart is collapsed by the backend. Only touched while
	// submitting is held.
	pendingKey  string
	pendingCart string
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithConfirmations(conf *Confirmations) Option {
	return func(c *Coordinator) { c.confirmations = conf }
}

func WithPublisher(p EventPublisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithSubmitTimeout bounds the order submission call.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.submitTimeout = d }
}

// WithIdempotencyKeys replaces the per-attempt key generator.
func WithIdempotencyKeys(gen func() string) Option {
	return func(c *Coordinator) { c.newKey = gen }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(cart Cart, tokens TokenSource, addresses AddressSaver, orders OrderSubmitter, opts ...Option) *Coordinator {
	c := &Coordinator{
		cart:          cart,
		tokens:        tokens,
		addresses:     addresses,
		orders:        orders,
		logger:        zap.NewNop(),
		submitTimeout: defaultSubmitTimeout,
		newKey:        uuid.NewString,
		now:           time.Now,
		status:        domain.CheckoutStatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status is the state of the current or most recent attempt.
func (c *Coordinator) Status() domain.CheckoutStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// InProgress reports whether an attempt is running.
func (c *Coordinator) InProgress() bool {
	return c.submitting.Load()
}

// Checkout runs one attempt. While an attempt is running, further calls fail
// with ErrInProgress and a nil Result. Otherwise the Result is always
// non-nil and the error, if any, is an *Error. The cart is cleared only when
// the order is confirmed with an order number.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (*Result, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrInProgress
	}
	defer c.submitting.Store(false)

	c.setStatus(domain.CheckoutStatusIdle)
	c.transition(domain.CheckoutStatusValidating)
	res := &Result{}

	snapshot := c.cart.Snapshot()
	token := c.token(ctx)
	v, err := validate(snapshot, req.Customer, token, req.Address)
	if err != nil {
		return c.fail(res, domain.CheckoutStatusValidationFailed, err)
	}

	addr := v.address
	if v.requiresAddress && req.SaveAddress && addr.ID == "" {
		c.transition(domain.CheckoutStatusAddressPersisting)
		saved, err := c.saveAddress(ctx, token, addr)
		if err != nil {
			res.Warnings = append(res.Warnings, err)
		} else {
			addr.ID = saved.ID
			res.Address = saved
		}
	}

	c.transition(domain.CheckoutStatusSubmitting)
	sub := buildSubmission(snapshot, req, v, addr)
	receipt, err := c.submit(ctx, token, sub)
	if err != nil {
		return c.fail(res, domain.CheckoutStatusFailed, err)
	}

	c.cart.ClearOrdered(ctx, snapshot.Items)
	res.OrderNumber = receipt.OrderNumber
	c.afterSuccess(ctx, sub, receipt.OrderNumber)
	c.transition(domain.CheckoutStatusSucceeded)
	res.Status = domain.CheckoutStatusSucceeded

	c.logger.Info("order placed",
		zap.String("order_number", receipt.OrderNumber),
		zap.String("seller_id", sub.SellerID),
		zap.Int64("total", sub.Total))
	return res, nil
}

func (c *Coordinator) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.logger.Warn("auth token unavailable", zap.Error(err))
		return ""
	}
	return token
}

func (c *Coordinator) saveAddress(ctx context.Context, token string, addr domain.DeliveryAddress) (*domain.DeliveryAddress, *Error) {
	saved, err := c.addresses.CreateAddress(ctx, token, addr)
	if err == nil && saved != nil {
		return saved, nil
	}
	if err == nil {
		err = client.ErrMalformedResponse
	}
	warning := newError(ErrAddressSaveFailed, err)
	c.logger.Warn("address save failed, continuing with order",
		zap.String("kind", string(warning.Kind)),
		zap.Error(err))
	return nil, warning
}

func (c *Coordinator) submit(ctx context.Context, token string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	key := c.idempotencyKey(sub)
	receipt, err := c.orders.SubmitOrder(ctx, token, key, sub)
	if err == nil && (receipt == nil || receipt.OrderNumber == "") {
		err = client.ErrMalformedResponse
	}
	if err != nil {
		e := classify(err)
		if e.Kind == KindNetworkError || e.Kind == KindMalformedResponse {
			// the order may exist server side
			c.logger.Info("keeping idempotency key for retry", zap.String("kind", string(e.Kind)))
		} else {
			c.pendingKey, c.pendingCart = "", ""
		}
		return nil, e
	}
	c.pendingKey, c.pendingCart = "", ""
	return receipt, nil
}

// idempotencyKey reuses the key of an unresolved attempt while the cart is
// unchanged, and otherwise starts a new one.
func (c *Coordinator) idempotencyKey(sub domain.OrderSubmission) string {
	fp := cartFingerprint(sub)
	if c.pendingKey == "" || c.pendingCart != fp {
		c.pendingKey, c.pendingCart = c.newKey(), fp
	}
	return c.pendingKey
}

func cartFingerprint(sub domain.OrderSubmission) string {
	data, err := json.Marshal(struct {
		Items    []domain.CartLine `json:"items"`
		Total    int64             `json:"total"`
		SellerID string            `json:"sellerId"`
	}{sub.CartItems, sub.Total, sub.SellerID})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func classify(err error) *Error {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.IsDuplicateCustomer() {
			return newError(ErrIdentityConflict, err)
		}
		return &Error{Kind: KindSubmissionRejected, Message: apiErr.Message, Err: err}
	case errors.Is(err, client.ErrMalformedResponse):
		return newError(ErrMalformedResponse, err)
	default:
		return newError(ErrNetworkError, err)
	}
}

func (c *Coordinator) afterSuccess(ctx context.Context, sub domain.OrderSubmission, orderNumber string) {
	placedAt := c.now()
	if c.confirmations != nil {
		err := c.confirmations.Save(ctx, Confirmation{OrderNumber: orderNumber, PlacedAt: placedAt})
		if err != nil {
			c.logger.Warn("order confirmation not persisted", zap.String("order_number", orderNumber), zap.Error(err))
		}
	}
	if c.publisher != nil {
		err := c.publisher.PublishOrderPlaced(ctx, domain.OrderPlaced{
			OrderNumber: orderNumber,
			SellerID:    sub.SellerID,
			UserID:      sub.UserID,
			Items:       sub.CartItems,
			Total:       sub.Total,
			PlacedAt:    placedAt,
		})
		if err != nil {
			c.logger.Warn("order placed event not published", zap.String("order_number", orderNumber), zap.Error(err))
		}
	}
}

func (c *Coordinator) fail(res *Result, status domain.CheckoutStatus, err error) (*Result, error) {
	c.transition(status)
	res.Status = status

	var e *Error
	if errors.As(err, &e) && !isExpected(e.Kind) {
		fields := []zap.Field{zap.String("kind", string(e.Kind)), zap.String("status", status.String())}
		if e.Err != nil {
			fields = append(fields, zap.Error(e.Err))
		}
		if e.Kind == KindNetworkError {
			c.logger.Error("checkout failed", fields...)
		} else {
			c.logger.Warn("checkout failed", fields...)
		}
	}
	return res, err
}

func (c *Coordinator) setStatus(s domain.CheckoutStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

func (c *Coordinator) transition(to domain.CheckoutStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !domain.CanTransitionTo(c.status, to) {
		c.logger.Error("illegal checkout transition", zap.String("from", c.status.String()), zap.String("to", to.String()))
	}
	c.status = to
}

func buildSubmission(cart domain.Cart, req Request, v *validated, addr domain.DeliveryAddress) domain.OrderSubmission {
	customer := req.Customer
	fullName := customer.FullName
	if fullName == "" {
		fullName = addr.FullName
	}
	payment := req.PaymentMethod
	if payment == "" {
		payment = domain.PaymentMethodOnline
	}

	sub := domain.OrderSubmission{
		CustomerData: domain.CustomerData{
			FullName: fullName,
			Mobile:   customer.Mobile,
			Email:    customer.Email,
		},
		CartItems:      cart.Items,
		Total:          cart.Total,
		SellerID:       v.sellerID,
		PaymentMethod:  payment,
		UserID:         customer.ID,
		CustomerNotes:  req.Notes,
		IsExistingUser: true,
	}
	if v.requiresAddress {
		sub.ShippingAddress = &addr
	}
	return sub
}
