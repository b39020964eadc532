package middleware

import "net/http"

// RequireIdentity allows only requests carrying a live session. Returns 401
// with an empty JSON failure envelope otherwise.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"data":"not_signed_in"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
