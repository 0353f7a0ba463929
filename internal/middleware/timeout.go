package middleware

import (
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Timeout bounds request handling, except for requests whose path ends in one
// of the exempt suffixes. Uploads wait on background removal, which carries
// its own deadline.
func Timeout(d time.Duration, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := chiMiddleware.Timeout(d)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, suffix := range exempt {
				if strings.HasSuffix(r.URL.Path, suffix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			bounded.ServeHTTP(w, r)
		})
	}
}
