// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits after chi's RealIP and RequestID middleware and before
the form component.  For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Takes the client IP from r.RemoteAddr, which RealIP has already
     rewritten from X-Forwarded-For / X-Real-IP when a proxy is present.
  3. Performs a GeoLite2 country lookup.
  4. Stores a `*RequestInfo` in the request context, so the CRM
     repository can record it without reparsing.

Instrumentation
---------------
At debug level each invocation logs client IP, country, browser, device,
bot flag, and path.
*/
package requestinfo

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich wraps an http.Handler, attaches *RequestInfo, and forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			UA:        ParseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:       lookupGeo(clientIP(r)),
			URL:       r.URL,
			Timestamp: time.Now().UTC(),
		}

		zap.S().Debugw("request info",
			"ip", info.Geo.IP,
			"country", info.Geo.CountryISO,
			"browser", info.UA.Browser,
			"device", info.UA.Device,
			"bot", info.UA.IsBot,
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP parses r.RemoteAddr, which is "ip:port" from net/http or a bare
// IP after RealIP.
func clientIP(r *http.Request) net.IP {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
