// internal/middleware/login.go
//
// Caller-identity middleware.
//
// Context
// -------
// The admin API sits behind an authenticating proxy that forwards the
// caller's login in `X-Metrica-Login`.  `Login` copies it into the request
// context under an unexported key; handlers read it back with
// `LoginFrom`.  An absent header means a super-user call with no access
// filtering.
//
// Notes
// -----
// • The header is trusted as-is.  Never expose the API without the proxy.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"context"
	"net/http"
	"strings"
)

// LoginHeader carries the caller's login.
const LoginHeader = "X-Metrica-Login"

type ctxKey struct{}

// Login stores the trimmed LoginHeader value in the request context.
func Login(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if login := strings.TrimSpace(r.Header.Get(LoginHeader)); login != "" {
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, login))
		}
		next.ServeHTTP(w, r)
	})
}

// LoginFrom returns the caller's login, or "" for a super-user call.
func LoginFrom(ctx context.Context) string {
	login, _ := ctx.Value(ctxKey{}).(string)
	return login
}
