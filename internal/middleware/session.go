package middleware

import (
	"context"
	"net/http"

	"github.com/bugreport/internal/model"
)

const SessionCookieName = "session"

type contextKey string

const (
	contextKeySessionID contextKey = "sessionID"
	contextKeyIdentity  contextKey = "identity"
)

// SessionReader resolves a session ID to the signed-in identity.
type SessionReader interface {
	Get(ctx context.Context, sessionID string) (*model.Identity, error)
}

// Session resolves the session cookie and stores the session ID and identity
// on the request context. Requests without a live session continue
// anonymously with an empty session ID.
func Session(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeySessionID, cookie.Value)
			ctx = context.WithValue(ctx, contextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the live session ID, or "" for anonymous
// requests.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeySessionID).(string)
	return v
}

// IdentityFromContext returns the signed-in identity, or nil.
func IdentityFromContext(ctx context.Context) *model.Identity {
	v, _ := ctx.Value(contextKeyIdentity).(*model.Identity)
	return v
}
