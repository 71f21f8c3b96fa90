package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tably/resto-core/pkg/logger"
)

// Claims carried in the access token issued by the upstream auth service
type Claims struct {
	UserID       string `json:"user_id"`
	GuestToken   string `json:"guest_token"`
	Role         string `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	jwt.RegisteredClaims
}

// Middleware resolves the bearer token into an Actor and attaches it to the
// request context. The token is already issued and scoped upstream; we verify
// the signature and trust the claims.
type Middleware struct {
	secret []byte
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(secret string) *Middleware {
	return &Middleware{secret: []byte(secret)}
}

// Handler wraps an http.Handler with actor resolution
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, `{"success":false,"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			logger.Warn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Invalid access token")
			http.Error(w, `{"success":false,"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		actor := Actor{
			UserID:       claims.UserID,
			GuestToken:   claims.GuestToken,
			Role:         claims.Role,
			RestaurantID: claims.RestaurantID,
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}
