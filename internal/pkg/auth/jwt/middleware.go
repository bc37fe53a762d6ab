package jwt

import (
	"context"
	"net/http"
	"strings"

	"relaychat/internal/pkg/logx"
)

type contextKey string

// ContextAuthPayloadKey stores the parsed session Payload in the request
// context.
const ContextAuthPayloadKey contextKey = "auth_payload"

// IdentityExtractorMiddleware extracts and validates a Bearer token and
// injects the Payload into the context. It never interrupts the request:
// a missing or invalid token leaves the request anonymous and handlers
// decide whether that is acceptable.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Invalid or expired session token, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext returns the authenticated Payload, or nil for an
// anonymous request.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}

	return payload
}
