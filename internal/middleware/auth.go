package middleware

import (
	"net/http"
	"strings"

	"github.com/commercekit/zaver-gateway/internal/auth"
)

// Authenticate validates the Bearer token on management endpoints and
// stores the acting representative in the request context. Requests without
// a valid access token get a 401.
func Authenticate(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				unauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil || claims.Type != auth.TokenTypeAccess {
				unauthorized(w, r, "invalid or expired token")
				return
			}

			rep := claims.Representative
			if rep == "" {
				rep = claims.Subject
			}
			ctx := SetRepresentative(r.Context(), rep)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	ctx := SetErrorCode(r.Context(), "auth_failed")
	UpdateResponseContext(w, ctx)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"auth_failed","message":"` + message + `"}}`))
}
