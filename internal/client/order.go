package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"go.uber.org/zap"
)

const ordersPath = "/api/orders"

type OrderClient struct {
	t *transport
}

func NewOrderClient(cfg Config, logger *zap.Logger) *OrderClient {
	return &OrderClient{t: newTransport("order-collaborator", cfg, logger)}
}

// SubmitOrder posts the submission. idempotencyKey lets the backend collapse
// retries of the same attempt.
func (c *OrderClient) SubmitOrder(ctx context.Context, token, idempotencyKey string, sub domain.OrderSubmission) (*domain.OrderReceipt, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	data, err := c.t.postJSON(ctx, ordersPath, token, headers, sub)
	if err != nil {
		return nil, err
	}

	var receipt domain.OrderReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if receipt.OrderNumber == "" {
		return nil, fmt.Errorf("%w: missing order number", ErrMalformedResponse)
	}
	return &receipt, nil
}
