package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
)

const envelopeVersion = 0

// envelope mirrors the persisted layout {state: {cart: {items, total}}, version}.
type envelope struct {
	State   envelopeState `json:"state"`
	Version int           `json:"version"`
}

type envelopeState struct {
	Cart *domain.Cart `json:"cart"`
}

var errMalformedSnapshot = errors.New("malformed cart snapshot")

func encodeSnapshot(c domain.Cart) ([]byte, error) {
	if c.Items == nil {
		c.Items = []domain.CartLine{}
	}
	return json.Marshal(envelope{State: envelopeState{Cart: &c}, Version: envelopeVersion})
}

// decodeSnapshot rejects snapshots that would break cart invariants. The
// stored total is ignored and recomputed.
func decodeSnapshot(data []byte) (domain.Cart, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %v", errMalformedSnapshot, err)
	}
	if env.State.Cart == nil {
		return domain.Cart{}, fmt.Errorf("%w: missing state.cart", errMalformedSnapshot)
	}

	c := *env.State.Cart
	seen := make(map[string]struct{}, len(c.Items))
	for _, line := range c.Items {
		if line.Product.ID == "" {
			return domain.Cart{}, fmt.Errorf("%w: line without product id", errMalformedSnapshot)
		}
		if line.Quantity < 1 {
			return domain.Cart{}, fmt.Errorf("%w: product %s has quantity %d", errMalformedSnapshot, line.Product.ID, line.Quantity)
		}
		if _, dup := seen[line.Product.ID]; dup {
			return domain.Cart{}, fmt.Errorf("%w: duplicate line for product %s", errMalformedSnapshot, line.Product.ID)
		}
		seen[line.Product.ID] = struct{}{}
	}
	c.RecomputeTotal()
	return c, nil
}
