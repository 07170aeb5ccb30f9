package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	AllowedOrigins []string // "*", exact origins, or "https://*.example.com"
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // seconds a preflight answer may be cached
}

// DefaultCORSConfig allows any origin with the methods and headers the API uses.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}
}

// CORS sets the Access-Control-* headers and answers preflight requests.
//
// PREFLIGHT:
// Before a cross-origin POST with a JSON body, the browser sends
// OPTIONS with Origin and Access-Control-Request-Method. We answer 204 with
// the allowed methods/headers and never reach the router.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)
	wildcard := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := originAllowed(origin, cfg.AllowedOrigins)

			if allowed {
				h := w.Header()
				if wildcard {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					h := w.Header()
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					if cfg.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed matches an Origin header against the allow list.
// An empty origin (same-origin or non-browser client) needs no CORS headers.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		switch {
		case a == "*" || a == origin:
			return true
		case strings.Contains(a, "*."):
			// "https://*.example.com" matches "https://shop.example.com" but not
			// "https://example.com".
			i := strings.Index(a, "*.")
			prefix, suffix := a[:i], a[i+1:]
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) &&
				len(origin) > len(prefix)+len(suffix) {
				return true
			}
		}
	}
	return false
}
