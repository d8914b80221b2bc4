// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  self-only, plus the postcode widget hosts
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features
//
// Notes
// -----
// • Headers are set before next runs; a handler may overwrite any of them.
// • The application page loads the Daum/Kakao postcode script and embeds
//   its search layer, so those hosts are allowed for script and frame.

package middleware

import "net/http"

// Postcode widget origins allowed by the default policy.
const postcodeHosts = "https://t1.daumcdn.net https://t1.kakaocdn.net " +
	"https://postcode.map.daum.net https://postcode.map.kakao.com"

// DefaultCSP is the Content-Security-Policy applied when a handler sets
// none.
const DefaultCSP = "default-src 'self'; " +
	"script-src 'self' " + postcodeHosts + "; " +
	"frame-src " + postcodeHosts + "; " +
	"img-src 'self' data: https://t1.daumcdn.net; " +
	"style-src 'self'; object-src 'none'; base-uri 'self'; " +
	"form-action 'self'; frame-ancestors 'none'"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	headers := [...][2]string{
		{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"},
		{"Content-Security-Policy", DefaultCSP},
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range headers {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}
