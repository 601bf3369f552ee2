package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse means the collaborator answered 2xx with a body that
// does not carry what the contract promises.
var ErrMalformedResponse = errors.New("malformed response")

// CodeDuplicateCustomer is the machine-readable code the order collaborator
// uses when the customer record it tried to create already exists.
const CodeDuplicateCustomer = "duplicate_customer"

// duplicateCustomerMessage is matched only when a response has no code.
const duplicateCustomerMessage = "customer with this email or mobile already exists"

type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) IsDuplicateCustomer() bool {
	if e.Code != "" {
		return e.Code == CodeDuplicateCustomer
	}
	return strings.Contains(strings.ToLower(e.Message), duplicateCustomerMessage)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func parseAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
