// Package auth carries the caller's identity through request contexts.
// Sign-in happens upstream; requests arrive with a trusted user header.
package auth

import (
	"context"
	"net/http"
	"strings"
)

const UserHeader = "X-User-Email"

type ctxKey string

const userContextKey ctxKey = "harkflow.auth.user"

type User struct {
	Email string `json:"email"`
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok
}

// FromHeader attaches the user named by the X-User-Email header, if present.
func FromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(UserHeader)))
		if email != "" {
			r = r.WithContext(WithUser(r.Context(), User{Email: email}))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects API calls without an identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing ` + UserHeader + ` header"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
