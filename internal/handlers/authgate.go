package handlers

import (
	"context"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the authenticated user attached by the gate, if any.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(currentUserKey).(models.User)
	return user, ok
}

// Authenticator is the per-request authentication gate for protected routes:
// it extracts the access token, validates it, resolves the user, and rejects
// the request before the downstream handler runs on any failure.
type Authenticator struct {
	Tokens TokenIssuer
	Users  UserStore
}

// Require wraps a handler so it only runs for authenticated requests.
func (a Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, ok := a.resolve(r)
		if !ok {
			respondError(ctx, w, http.StatusUnauthorized, "unauthorized access")
			return
		}

		next(w, r.WithContext(context.WithValue(ctx, currentUserKey, user)))
	}
}

// Optional wraps a handler so the user is attached when a valid token is
// presented, but anonymous requests pass through untouched.
func (a Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, ok := a.resolve(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), currentUserKey, user))
		}
		next(w, r)
	}
}

func (a Authenticator) resolve(r *http.Request) (models.User, bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := accessTokenFromRequest(r)
	if token == "" {
		return models.User{}, false
	}

	claims, err := a.Tokens.ParseAccess(token)
	if err != nil {
		logger.Warn("access token rejected", "error", err)
		return models.User{}, false
	}

	user, err := a.Users.FindByID(ctx, claims.Subject)
	if err != nil {
		logger.Warn("access token user lookup failed", "userId", claims.Subject, "error", err)
		return models.User{}, false
	}

	// Secret fields never travel on the request context.
	user.Password = ""
	user.RefreshToken = ""

	return user, true
}
