package checkout

import (
	"errors"
	"strings"
)

type Kind string

// Local validation kinds never reach the network.
const (
	KindEmptyCart         Kind = "EmptyCart"
	KindUnauthenticated   Kind = "Unauthenticated"
	KindIncompleteAddress Kind = "IncompleteAddress"
	KindInvalidPostalCode Kind = "InvalidPostalCode"
	KindMixedSellerCart   Kind = "MixedSellerCart"
)

// KindAddressSaveFailed is only ever reported as a warning.
const KindAddressSaveFailed Kind = "AddressSaveFailed"

// Submission-phase kinds end the current attempt.
const (
	KindMalformedResponse  Kind = "MalformedResponse"
	KindIdentityConflict   Kind = "IdentityConflict"
	KindSubmissionRejected Kind = "SubmissionRejected"
	KindNetworkError       Kind = "NetworkError"
)

// Error is a checkout failure or warning. Fields names the offending input
// fields for validation kinds.
type Error struct {
	Kind    Kind
	Fields  []string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyCart)
// works regardless of message or fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyCart          = &Error{Kind: KindEmptyCart, Message: "cart is empty, nothing to checkout"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "customer is not signed in"}
	ErrIncompleteAddress  = &Error{Kind: KindIncompleteAddress, Message: "delivery address is incomplete"}
	ErrInvalidPostalCode  = &Error{Kind: KindInvalidPostalCode, Message: "postal code must be exactly 10 digits"}
	ErrMixedSellerCart    = &Error{Kind: KindMixedSellerCart, Message: "cart holds products from more than one seller"}
	ErrAddressSaveFailed  = &Error{Kind: KindAddressSaveFailed, Message: "address could not be saved"}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse, Message: "order service returned an unexpected response"}
	ErrIdentityConflict   = &Error{Kind: KindIdentityConflict, Message: "customer record conflict"}
	ErrSubmissionRejected = &Error{Kind: KindSubmissionRejected, Message: "order was rejected"}
	ErrNetworkError       = &Error{Kind: KindNetworkError, Message: "order service unreachable"}
)

// ErrInProgress is returned while another attempt on the same cart has not
// resolved yet.
var ErrInProgress = errors.New("checkout already in progress")

// KindOf returns the kind carried by err, or "" when err is not a checkout
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidationKind reports kinds resolved entirely before any network call.
func IsValidationKind(k Kind) bool {
	switch k {
	case KindEmptyCart, KindUnauthenticated, KindIncompleteAddress, KindInvalidPostalCode, KindMixedSellerCart:
		return true
	}
	return false
}

// isExpected marks user-correctable input errors that are not logged.
func isExpected(k Kind) bool {
	return k == KindEmptyCart || k == KindIncompleteAddress || k == KindInvalidPostalCode
}

// UserMessage maps an error to the single message shown to the customer.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		if errors.Is(err, ErrInProgress) {
			return "Your order is already being submitted."
		}
		return "Something went wrong. Please try again."
	}
	switch e.Kind {
	case KindEmptyCart:
		return "Your cart is empty."
	case KindUnauthenticated:
		return "Please sign in to place your order."
	case KindIncompleteAddress:
		return "Please complete your delivery address."
	case KindInvalidPostalCode:
		return "Postal code must be 10 digits."
	case KindMixedSellerCart:
		return "Items from different shops must be ordered separately."
	case KindAddressSaveFailed:
		return "We could not save your address, but your order will still be placed."
	case KindIdentityConflict:
		return "There is a problem with your account. Please contact support."
	case KindSubmissionRejected:
		if e.Message != "" {
			return e.Message
		}
		return "Your order could not be placed."
	case KindMalformedResponse:
		return "We could not confirm your order. Please check your orders before retrying."
	case KindNetworkError:
		return "Connection problem. Your cart is saved, please try again."
	}
	return "Something went wrong. Please try again."
}

func newError(base *Error, err error, fields ...string) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Fields: fields, Err: err}
}
