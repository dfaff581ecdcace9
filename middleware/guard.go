// Package middleware provides net/http middleware for guarding routes
// with access tokens.
package middleware

import (
	"context"
	"net/http"
	"strings"

	centralhub "github.com/haitrieu1811/central-hub-server"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the identity stashed by [Guard].
func AuthResultFromContext(ctx context.Context) (*centralhub.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*centralhub.AuthResult)
	return res, ok
}

// Guard validates the bearer access token on each request and stores the
// resulting identity in the request context. Requests without a valid
// token get a plain 401.
func Guard(engine *centralhub.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.ValidateAccess(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
