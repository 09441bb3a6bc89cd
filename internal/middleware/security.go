// internal/middleware/security.go
//
// Security-header middleware for JSON endpoints.
//
// Injects headers on every response:
//
//   • Content-Security-Policy   –  nothing may load, nothing may frame
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  no Referer at all
//   • Cache-Control             –  site lists are per-login, never cache
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; once a handler writes the
//   status line later additions are lost.  A handler may still override
//   any of them.
// • HSTS is omitted: the admin API is expected to listen on loopback or
//   behind a TLS-terminating proxy that sets it.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

var securityHeaders = [...][2]string{
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}
