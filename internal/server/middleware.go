package server

import (
	"net/http"

	"github.com/leslieo2/go-asset-reload/internal/server/middleware"
)

// applyMiddleware applies the middleware chain to the handler
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = middleware.ReadOnlyMiddleware()(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	return handler
}
