package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets the response headers a JSON API should always send.
// HSTS is skipped in development so plain-HTTP local servers keep working.
func SecurityHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	headers := map[string]string{
		"X-Frame-Options":                   "DENY",
		"X-Content-Type-Options":            "nosniff",
		"Referrer-Policy":                   "no-referrer",
		"Cache-Control":                     "no-store",
		"X-Permitted-Cross-Domain-Policies": "none",
		"Content-Security-Policy": strings.Join([]string{
			"default-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'none'",
			"form-action 'none'",
		}, "; "),
		"Permissions-Policy": strings.Join([]string{
			"geolocation=()", "microphone=()", "camera=()", "payment=()",
			"usb=()", "magnetometer=()", "gyroscope=()", "accelerometer=()",
		}, ", "),
	}
	if !isDevelopment {
		headers["Strict-Transport-Security"] = "max-age=31536000; includeSubDomains; preload"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
