package middleware

import (
	"context"
	"net/http"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
	"github.com/saolinek/kaloricka-kalkulacka/internal/services"
)

type contextKey string

const userContextKey contextKey = "user"

// WithIdentity attaches the signed-in user to the request context when a
// valid session exists. It never rejects: a signed-out user has full access
// to the tracker, identity is for display only.
func WithIdentity(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := authService.GetCurrentUser(r); err == nil {
				ctx := context.WithValue(r.Context(), userContextKey, user)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser returns the request's identity, if any.
func GetUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}
