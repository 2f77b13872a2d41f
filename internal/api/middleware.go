package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MendesCorporation/automata/internal/apierr"
	"github.com/MendesCorporation/automata/internal/identity"
)

type ctxKey int

const claimsCtxKey ctxKey = iota

// requireAuth extracts and verifies the bearer session token, rejecting
// requests that lack one, carry an invalid one, or whose role does not
// match requiredType (§4.6's authorization matrix).
func (h *Handler) requireAuth(requiredType identity.CallerType, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, apierr.New(apierr.AuthRequired, "missing bearer token"))
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := h.issuer.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}
		if claims.Type != requiredType {
			writeError(w, apierr.New(apierr.Forbidden, "token does not authorize this operation"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFromContext(ctx context.Context) *identity.SessionClaims {
	claims, _ := ctx.Value(claimsCtxKey).(*identity.SessionClaims)
	return claims
}

// requestTimeout bounds every external-facing handler to a request-scoped
// deadline, per §5 (suggested 10s).
const requestTimeout = 10 * time.Second

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
