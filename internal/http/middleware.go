package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/apada-appleid/biosell-sub000/internal/auth"
	"github.com/apada-appleid/biosell-sub000/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderSessionID  = "X-Session-ID"
	HeaderCustomerID = "X-Customer-ID"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	customerIDKey
)

// SessionMiddleware resolves the storefront session from X-Session-ID. A
// new id is minted only for requests that change state; reads without the
// header run without a session. The id is echoed back so the browser can
// keep it.
func SessionMiddleware(registry *session.Registry, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderSessionID))
			if id == "" {
				if isSafeMethod(r.Method) {
					next.ServeHTTP(w, r)
					return
				}
				id = uuid.NewString()
			}

			s, err := registry.Get(r.Context(), id)
			if err != nil {
				logger.Error("session lookup failed", zap.String("session_id", id), zap.Error(err))
				respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			w.Header().Set(HeaderSessionID, id)
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthMiddleware stores a presented bearer token for the session and
// records the caller's customer id. Requests without credentials pass
// through as guests.
func AuthMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if s := getSession(ctx); s != nil {
				if token := auth.BearerToken(r.Header.Get("Authorization")); token != "" {
					if err := s.Tokens.SetToken(ctx, token); err != nil {
						logger.Warn("auth token not persisted", zap.String("session_id", s.ID), zap.Error(err))
					}
				}
			}
			if id := strings.TrimSpace(r.Header.Get(HeaderCustomerID)); id != "" {
				ctx = context.WithValue(ctx, customerIDKey, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func getSession(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

func getCustomerID(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey).(string)
	return id
}
