package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle              CheckoutStatus = "IDLE"
	CheckoutStatusValidating        CheckoutStatus = "VALIDATING"
	CheckoutStatusValidationFailed  CheckoutStatus = "VALIDATION_FAILED"
	CheckoutStatusAddressPersisting CheckoutStatus = "ADDRESS_PERSISTING"
	CheckoutStatusSubmitting        CheckoutStatus = "SUBMITTING"
	CheckoutStatusSucceeded         CheckoutStatus = "SUCCEEDED"
	CheckoutStatusFailed            CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:              {CheckoutStatusValidating},
	CheckoutStatusValidating:        {CheckoutStatusValidationFailed, CheckoutStatusAddressPersisting, CheckoutStatusSubmitting},
	CheckoutStatusAddressPersisting: {CheckoutStatusSubmitting},
	CheckoutStatusSubmitting:        {CheckoutStatusSucceeded, CheckoutStatusFailed},
}

// IsTerminal reports whether an attempt has resolved. A new attempt always
// starts again from Idle.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusValidationFailed || s == CheckoutStatusSucceeded || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
