package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig holds CORS configuration. An AllowedOrigins entry of "*"
// admits any origin, without credentials.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration // How long browsers may cache a preflight
}

// DefaultCORSConfig returns the settings for a local review UI: read the
// ledger, apply candidates, delete matches.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         10 * time.Minute,
	}
}

type cors struct {
	origins   map[string]bool
	anyOrigin bool
	methods   string
	headers   string
	maxAge    string
}

// CORS returns middleware that handles CORS headers. Simple requests from
// origins outside the list pass through without CORS headers; preflights
// from them are refused with 403.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	c := &cors{
		origins: make(map[string]bool, len(cfg.AllowedOrigins)),
		methods: strings.Join(cfg.AllowedMethods, ", "),
		headers: strings.Join(cfg.AllowedHeaders, ", "),
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.anyOrigin = true
			continue
		}
		c.origins[strings.TrimSuffix(origin, "/")] = true
	}
	if cfg.MaxAge > 0 {
		c.maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			origin := r.Header.Get("Origin")
			allowed := origin != "" && c.allow(w, origin)

			if !isPreflight(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", c.methods)
			w.Header().Set("Access-Control-Allow-Headers", c.headers)
			if c.maxAge != "" {
				w.Header().Set("Access-Control-Max-Age", c.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// allow writes the origin headers and reports whether origin is admitted
func (c *cors) allow(w http.ResponseWriter, origin string) bool {
	switch {
	case c.origins[origin]:
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		return true
	case c.anyOrigin:
		w.Header().Set("Access-Control-Allow-Origin", "*")
		return true
	default:
		return false
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
