package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ReadOnlyMiddleware rejects every method other than GET and HEAD
func ReadOnlyMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusMethodNotAllowed)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": fmt.Sprintf("Method %s not allowed", r.Method),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
