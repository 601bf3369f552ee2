package checkout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
)

const (
	postalCodeLength = 10
	maxStreetRunes   = 500
)

type validated struct {
	requiresAddress bool
	sellerID        string
	address         domain.DeliveryAddress
}

// validate applies the checkout rules in order and stops at the first
// failure.
func validate(cart domain.Cart, customer *domain.Customer, token string, addr domain.DeliveryAddress) (*validated, error) {
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if customer == nil || strings.TrimSpace(customer.ID) == "" || token == "" {
		return nil, ErrUnauthenticated
	}

	v := &validated{requiresAddress: cart.RequiresAddress()}
	if v.requiresAddress {
		addr = normalizeAddress(addr)
		if missing := missingAddressFields(addr); len(missing) > 0 {
			return nil, newError(ErrIncompleteAddress, nil, missing...)
		}
		if utf8.RuneCountInString(addr.Address) > maxStreetRunes {
			return nil, newError(ErrIncompleteAddress, nil, "address")
		}
		if !isPostalCode(addr.PostalCode) {
			return nil, newError(ErrInvalidPostalCode, nil, "postalCode")
		}
		v.address = addr
	}

	sellerID, err := singleSeller(cart)
	if err != nil {
		return nil, err
	}
	v.sellerID = sellerID
	return v, nil
}

func normalizeAddress(a domain.DeliveryAddress) domain.DeliveryAddress {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Mobile = strings.ReplaceAll(strings.TrimSpace(a.Mobile), " ", "")
	a.Province = strings.TrimSpace(a.Province)
	a.City = strings.TrimSpace(a.City)
	a.Address = strings.TrimSpace(a.Address)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	return a
}

func missingAddressFields(a domain.DeliveryAddress) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"mobile", a.Mobile},
		{"province", a.Province},
		{"city", a.City},
		{"address", a.Address},
		{"postalCode", a.PostalCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// isPostalCode accepts exactly ten ASCII digits.
func isPostalCode(s string) bool {
	if len(s) != postalCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func singleSeller(cart domain.Cart) (string, error) {
	sellerID := cart.Items[0].Product.Shop.ID
	for _, line := range cart.Items {
		id := line.Product.Shop.ID
		if id == "" {
			return "", &Error{Kind: KindMixedSellerCart, Message: fmt.Sprintf("product %s has no seller", line.Product.ID)}
		}
		if id != sellerID {
			return "", ErrMixedSellerCart
		}
	}
	return sellerID, nil
}
