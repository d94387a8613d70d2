package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/web/views"
)

// handleIndex renders the import/export landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params := views.UploadPageParams{
		Title:        "User import / export",
		MaxFileSize:  core.FormatSize(s.cfg.Upload.MaxFileSize),
		Roles:        core.Roles(),
		Instructions: core.Instructions(s.cfg.Upload.MaxFileSize),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.UploadPage(params).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Uploads core.UploadLimiterStatus `json:"uploads"`
}

// handleHealth pings the store and reports upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Store: "ok", Uploads: s.limiter.Status()}
	status := http.StatusOK
	if err := s.users.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
