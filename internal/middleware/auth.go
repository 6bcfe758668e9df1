package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/ledger-be/internal/auth"
	"github.com/hongminglow/ledger-be/internal/http/respond"
	applog "github.com/hongminglow/ledger-be/internal/log"
)

// TokenVerifier resolves a bearer token to the user it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// RequireAuth rejects requests without a valid bearer token and otherwise
// attaches the token's user ID to the request context.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "authorization token required")
				return
			}
			userID, err := tokens.Verify(r.Context(), raw)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldUserID, userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
