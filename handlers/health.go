package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nijaru/vidscribe/config"
	"github.com/nijaru/vidscribe/fetcher"
	"github.com/nijaru/vidscribe/models"
)

// handleHealth reports liveness only. It never touches the model or the
// network, so it answers while transcriptions are running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:             "healthy",
		Service:            config.ServiceName,
		Version:            s.config.Version,
		Model:              s.service.Model(),
		Uptime:             time.Since(s.startTime).Round(time.Second).String(),
		SupportedPlatforms: fetcher.SupportedPlatforms(),
	}

	if s.config.Debug {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		resp.Debug = map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"allocated": m.Alloc,
				"total":     m.TotalAlloc,
				"system":    m.Sys,
				"gc_cycles": m.NumGC,
			},
		}
	}

	respondJSON(w, r, http.StatusOK, resp)
}
