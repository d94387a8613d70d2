package web

import (
	"net/http"

	"github.com/JonMunkholm/userimport/internal/core"
)

// parseExportFilter reads ?role= and ?activeOnly=. A known role takes
// precedence over activeOnly; an unknown role is ignored.
func parseExportFilter(r *http.Request) core.ExportFilter {
	q := r.URL.Query()
	if role, ok := core.ParseRole(q.Get("role")); ok {
		return core.ExportFilter{Role: &role}
	}
	return core.ExportFilter{ActiveOnly: q.Get("activeOnly") == "true"}
}

// handleExportCSV streams the filtered users as a CSV attachment.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter := parseExportFilter(r)

	result, err := s.exporter.Export(r.Context(), filter)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.ObserveExport(result.Rows)

	writeCSV(w, core.ExportFileName(filter, s.now()), result.Content)
}

// handleExportPreview returns the header and first rows of an export.
func (s *Server) handleExportPreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.exporter.Preview(r.Context(), parseExportFilter(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// An unrecognized role filters nothing but is echoed back as requested.
	if raw := r.URL.Query().Get("role"); raw != "" && preview.Filters.Role == nil {
		role := core.Role(raw)
		preview.Filters.Role = &role
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleExportStats returns user counts in total and per role.
func (s *Server) handleExportStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.users.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
