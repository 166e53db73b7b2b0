package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mhakimsaputra17/discount-voucher-management/internal/auth"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/http/respond"
	"github.com/mhakimsaputra17/discount-voucher-management/internal/logging"
)

type Verifier interface {
	Verify(raw string) (*auth.Claims, error)
}

type claimsKey struct{}

// ClaimsFrom returns the claims BearerAuth stored on the request context.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
func BearerAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respond.Message(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				logging.FromContext(r.Context()).Warn("auth: rejected token",
					"path", r.URL.Path,
					"error", err,
				)
				respond.Message(w, r, http.StatusUnauthorized, "invalid or expired token")

				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
