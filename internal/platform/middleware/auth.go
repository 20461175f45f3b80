package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "botica/pkg/domain-errors"
	"botica/pkg/platform/httputil"
)

// TokenValidator validates a bearer token presented by a POS terminal.
// Token issuance belongs to the back-office system; the core only verifies.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TerminalClaims, error)
}

// TerminalClaims identifies the authenticated POS terminal and cashier.
type TerminalClaims struct {
	TerminalID string
	CashierID  string
}

type contextKeyTerminalID struct{}
type contextKeyCashierID struct{}

var (
	ContextKeyTerminalID = contextKeyTerminalID{}
	ContextKeyCashierID  = contextKeyCashierID{}
)

// TerminalID retrieves the authenticated terminal ID from the context.
func TerminalID(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyTerminalID).(string)
	if !ok {
		return ""
	}
	return v
}

// CashierID retrieves the authenticated cashier ID from the context.
func CashierID(ctx context.Context) string {
	v, ok := ctx.Value(ContextKeyCashierID).(string)
	if !ok {
		return ""
	}
	return v
}

// RequireAuth rejects requests without a valid terminal bearer token and
// stores the claims in the request context for handlers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "terminal token rejected",
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyTerminalID, claims.TerminalID)
			ctx = context.WithValue(ctx, ContextKeyCashierID, claims.CashierID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
