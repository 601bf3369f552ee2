package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"go.uber.org/zap"
)

const addressesPath = "/api/customer/addresses"

type AddressClient struct {
	t *transport
}

func NewAddressClient(cfg Config, logger *zap.Logger) *AddressClient {
	return &AddressClient{t: newTransport("address-collaborator", cfg, logger)}
}

type addressRequest struct {
	FullName   string `json:"fullName"`
	Mobile     string `json:"mobile"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"`
	IsDefault  bool   `json:"isDefault"`
}

type addressResponse struct {
	Address *domain.DeliveryAddress `json:"address"`
}

// CreateAddress saves addr on the customer account and returns the stored
// copy with its identifier.
func (c *AddressClient) CreateAddress(ctx context.Context, token string, addr domain.DeliveryAddress) (*domain.DeliveryAddress, error) {
	data, err := c.t.postJSON(ctx, addressesPath, token, nil, addressRequest{
		FullName:   addr.FullName,
		Mobile:     addr.Mobile,
		Province:   addr.Province,
		City:       addr.City,
		Address:    addr.Address,
		PostalCode: addr.PostalCode,
		IsDefault:  addr.IsDefault,
	})
	if err != nil {
		return nil, err
	}

	var resp addressResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Address == nil || resp.Address.ID == "" {
		return nil, fmt.Errorf("%w: missing address id", ErrMalformedResponse)
	}
	return resp.Address, nil
}
