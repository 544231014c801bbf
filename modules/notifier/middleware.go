package notifier

import (
	"context"
	"net/http"
)

// UserHeader is the trusted header the fronting proxy sets after
// authenticating the caller.
const UserHeader = "X-User-ID"

type ctxKey struct{}

// RequireUser rejects requests without a caller identity and stashes
// the user id in the request context for the handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}
