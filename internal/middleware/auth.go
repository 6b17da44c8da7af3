package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKeyCustomer struct{}

// Claims are the access-token claims issued by the identity provider.
type Claims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	AppMetadata  AppMetadata  `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserMetadata holds profile fields embedded in the token.
type UserMetadata struct {
	FullName string `json:"full_name"`
}

// AppMetadata holds provider-managed fields the user cannot edit.
type AppMetadata struct {
	Role string `json:"role"`
}

// JWTAuth requires a valid HS256 bearer token whose subject is the user's UUID.
func JWTAuth(secret []byte, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				logger.Debug().Str("path", r.URL.Path).Msg("missing bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message)
				return
			}
			tokenStr := strings.TrimPrefix(auth, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("invalid bearer token")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.Warn().Str("path", r.URL.Path).Msg("token subject is not a user id")
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message)
				return
			}

			ctx := ContextWithCustomer(r.Context(), model.Customer{
				ID:       userID,
				Email:    claims.Email,
				FullName: claims.UserMetadata.FullName,
				Role:     claims.AppMetadata.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only callers whose token carries role. It must run after
// JWTAuth.
func RequireRole(role string, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CustomerFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message)
				return
			}
			if !c.HasRole(role) {
				logger.Warn().
					Str("user_id", c.ID.String()).
					Str("required_role", role).
					Str("path", r.URL.Path).
					Msg("caller lacks required role")
				writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, model.ErrForbidden.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CustomerFromContext returns the authenticated caller, if any.
func CustomerFromContext(ctx context.Context) (model.Customer, bool) {
	c, ok := ctx.Value(ctxKeyCustomer{}).(model.Customer)
	return c, ok
}

// ContextWithCustomer attaches an authenticated caller to ctx.
func ContextWithCustomer(ctx context.Context, c model.Customer) context.Context {
	return context.WithValue(ctx, ctxKeyCustomer{}, c)
}
