package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/hotreload"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

// AssetsResponse is the body of the assets endpoint
type AssetsResponse struct {
	Assets       []asset.Asset           `json:"assets"`
	TotalBytes   int64                   `json:"total_bytes"`
	HotReload    *hotreload.Status       `json:"hot_reload,omitempty"`
	WatchedFiles []hotreload.WatchedFile `json:"watched_files,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	health := observability.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Checks: map[string]bool{
			"registry": s.assets.IsInitialized(),
		},
	}
	if s.reloads != nil {
		status := s.reloads.Status()
		health.Metrics = map[string]interface{}{
			"watched_files":   status.WatchedFiles,
			"pending_reloads": status.Pending,
		}
	}

	code := http.StatusOK
	if !health.Healthy() {
		health.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

// readinessHandler reports ready once the registry is initialized
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	ready := s.assets.IsInitialized()
	if ready {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}

	s.logger.Debug("Readiness check completed", zap.Bool("ready", ready))
}

func (s *Server) assetsHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "assets_snapshot")
	defer span.End()

	resp := AssetsResponse{
		Assets:     s.assets.Snapshot(),
		TotalBytes: s.assets.TotalMemoryUsage(),
	}
	if resp.Assets == nil {
		resp.Assets = []asset.Asset{}
	}
	if s.reloads != nil {
		status := s.reloads.Status()
		resp.HotReload = &status
		resp.WatchedFiles = s.reloads.WatchedFiles()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
