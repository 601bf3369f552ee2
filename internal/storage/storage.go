package storage

import (
	"context"
	"errors"
)

// Keys used inside a session namespace.
const (
	CartKey      = "cart-storage"
	AuthTokenKey = "auth_token"
	LastOrderKey = "last-order"
)

// Storage is the durable key-value port behind the cart store and its
// neighbours. Load returns ErrNotFound for absent keys.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("storage: key not found")

type namespaced struct {
	prefix string
	inner  Storage
}

// Namespaced scopes every key of s under prefix.
func Namespaced(s Storage, prefix string) Storage {
	return namespaced{prefix: prefix, inner: s}
}

func (n namespaced) Load(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Load(ctx, n.prefix+key)
}

func (n namespaced) Save(ctx context.Context, key string, value []byte) error {
	return n.inner.Save(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

// SessionPrefix is the namespace of a storefront session.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
