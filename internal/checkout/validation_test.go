package checkout

import (
	"strings"
	"testing"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartOf(lines ...domain.CartLine) domain.Cart {
	c := domain.Cart{Items: lines}
	c.RecomputeTotal()
	return c
}

func TestValidate_Order(t *testing.T) {
	customer := &domain.Customer{ID: "cust-1"}
	physicalLine := domain.CartLine{Product: physical("p1", "shop-1", 100), Quantity: 1}

	tests := []struct {
		name     string
		cart     domain.Cart
		customer *domain.Customer
		token    string
		addr     domain.DeliveryAddress
		want     *Error
	}{
		{"empty cart wins over missing auth", domain.Cart{}, nil, "", domain.DeliveryAddress{}, ErrEmptyCart},
		{"auth before address", cartOf(physicalLine), nil, "tok", domain.DeliveryAddress{}, ErrUnauthenticated},
		{"blank customer id", cartOf(physicalLine), &domain.Customer{ID: "  "}, "tok", validAddress(), ErrUnauthenticated},
		{"missing token", cartOf(physicalLine), customer, "", validAddress(), ErrUnauthenticated},
		{"whitespace fields are missing", cartOf(physicalLine), customer, "tok", domain.DeliveryAddress{FullName: "   "}, ErrIncompleteAddress},
		{"postal code with letters", cartOf(physicalLine), customer, "tok", func() domain.DeliveryAddress {
			a := validAddress()
			a.PostalCode = "12345678ab"
			return a
		}(), ErrInvalidPostalCode},
		{"postal code with eleven digits", cartOf(physicalLine), customer, "tok", func() domain.DeliveryAddress {
			a := validAddress()
			a.PostalCode = "12345678901"
			return a
		}(), ErrInvalidPostalCode},
		{"missing seller", cartOf(domain.CartLine{Product: digital("p1", "", 100), Quantity: 1}), customer, "tok", domain.DeliveryAddress{}, ErrMixedSellerCart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(tt.cart, tt.customer, tt.token, tt.addr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ReportsEveryMissingField(t *testing.T) {
	c := cartOf(domain.CartLine{Product: physical("p1", "shop-1", 100), Quantity: 1})
	addr := domain.DeliveryAddress{FullName: "Sara", City: "Shiraz"}

	_, err := validate(c, &domain.Customer{ID: "c"}, "tok", addr)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"mobile", "province", "address", "postalCode"}, e.Fields)
}

func TestValidate_StreetTooLong(t *testing.T) {
	c := cartOf(domain.CartLine{Product: physical("p1", "shop-1", 100), Quantity: 1})
	addr := validAddress()
	addr.Address = strings.Repeat("خ", maxStreetRunes+1)

	_, err := validate(c, &domain.Customer{ID: "c"}, "tok", addr)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindIncompleteAddress, e.Kind)
	assert.Equal(t, []string{"address"}, e.Fields)

	addr.Address = strings.Repeat("خ", maxStreetRunes)
	_, err = validate(c, &domain.Customer{ID: "c"}, "tok", addr)
	assert.NoError(t, err)
}

func TestValidate_NormalizesAddress(t *testing.T) {
	c := cartOf(domain.CartLine{Product: physical("p1", "shop-1", 100), Quantity: 1})
	addr := validAddress()
	addr.City = "  Tabriz "
	addr.PostalCode = " 1234567890 "

	v, err := validate(c, &domain.Customer{ID: "c"}, "tok", addr)

	require.NoError(t, err)
	assert.True(t, v.requiresAddress)
	assert.Equal(t, "shop-1", v.sellerID)
	assert.Equal(t, "Tabriz", v.address.City)
	assert.Equal(t, "1234567890", v.address.PostalCode)
	assert.Equal(t, "09121111111", v.address.Mobile)
}

func TestValidate_DigitalCartIgnoresAddress(t *testing.T) {
	c := cartOf(
		domain.CartLine{Product: digital("a", "shop-1", 100), Quantity: 1},
		domain.CartLine{Product: digital("b", "shop-1", 200), Quantity: 3},
	)

	v, err := validate(c, &domain.Customer{ID: "c"}, "tok", domain.DeliveryAddress{PostalCode: "bad"})

	require.NoError(t, err)
	assert.False(t, v.requiresAddress)
	assert.Equal(t, domain.DeliveryAddress{}, v.address)
}
