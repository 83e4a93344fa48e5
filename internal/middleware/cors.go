package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions configures CORS.
type CORSOptions struct {
	AllowedMethods []string
	ExposedHeaders []string
	MaxAge         int // seconds
}

// DefaultCORSOptions are the settings the API ships with.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
			http.MethodPatch, http.MethodOptions, http.MethodHead,
		},
		ExposedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	}
}

// CORS allows cross-origin calls from any origin with credentials.
//
// Browsers refuse "*" together with credentials, so the request's Origin is
// reflected instead. Requested headers are mirrored back on preflight.
// Every OPTIONS request is answered here with 204 and never reaches the
// router.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.AllowedMethods, ", ")
	exposed := strings.Join(opts.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" {
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Access-Control-Allow-Methods", methods)
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
