package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/serendipity/internal/api/problem"
	"github.com/Togather-Foundation/serendipity/internal/auth"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
)

const (
	msgTokenMissing = "Token is missing"
	msgTokenInvalid = "Token is invalid"
	msgUserNotFound = "User not found"
)

// TokenVerifier is satisfied by *auth.TokenService.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup is satisfied by *users.Service.
type UserLookup interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Authenticate resolves the bearer token to a user and binds it to the
// request context. The handler runs only when that succeeds. OPTIONS requests
// are answered with an empty 200 before any token check.
func Authenticate(tokens TokenVerifier, lookup UserLookup, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			raw, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				msg := msgTokenMissing
				if errors.Is(err, auth.ErrInvalidToken) {
					msg = msgTokenInvalid
				}
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, env,
					problem.WithMessage(msg))
				return
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, env,
					problem.WithMessage(msgTokenInvalid))
				return
			}

			user, err := lookup.Get(r.Context(), userID)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, env,
						problem.WithMessage(msgUserNotFound))
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal server error", err, env)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = LoggerFromContext(ctx).With().Str("user_id", user.ID).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser binds user to ctx. Exposed for handler tests.
func WithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// CurrentUser returns the user bound by Authenticate, or nil.
func CurrentUser(ctx context.Context) *users.User {
	user, _ := ctx.Value(currentUserKey).(*users.User)
	return user
}
