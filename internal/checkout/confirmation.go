package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/storage"
)

type Confirmation struct {
	OrderNumber string    `json:"orderNumber"`
	PlacedAt    time.Time `json:"placedAt"`
}

// Confirmations keeps the last placed order for the confirmation view.
type Confirmations struct {
	storage storage.Storage
}

func NewConfirmations(s storage.Storage) *Confirmations {
	return &Confirmations{storage: s}
}

func (c *Confirmations) Save(ctx context.Context, conf Confirmation) error {
	data, err := json.Marshal(conf)
	if err != nil {
		return fmt.Errorf("marshal confirmation failed: %w", err)
	}
	if err := c.storage.Save(ctx, storage.LastOrderKey, data); err != nil {
		return fmt.Errorf("save confirmation failed: %w", err)
	}
	return nil
}

// Last returns the last confirmation, or nil when no order was placed.
func (c *Confirmations) Last(ctx context.Context) (*Confirmation, error) {
	data, err := c.storage.Load(ctx, storage.LastOrderKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load confirmation failed: %w", err)
	}
	var conf Confirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation failed: %w", err)
	}
	return &conf, nil
}
