package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apada-appleid/biosell-sub000/internal/storage"
)

// TokenStore keeps the session's bearer token next to, but separate from,
// the persisted cart.
type TokenStore struct {
	storage storage.Storage
}

func NewTokenStore(s storage.Storage) *TokenStore {
	return &TokenStore{storage: s}
}

// Token returns the stored token, or "" when the session has none.
func (t *TokenStore) Token(ctx context.Context) (string, error) {
	data, err := t.storage.Load(ctx, storage.AuthTokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load auth token: %w", err)
	}
	return string(data), nil
}

func (t *TokenStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return t.Clear(ctx)
	}
	if err := t.storage.Save(ctx, storage.AuthTokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to save auth token: %w", err)
	}
	return nil
}

func (t *TokenStore) Clear(ctx context.Context) error {
	return t.storage.Delete(ctx, storage.AuthTokenKey)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
