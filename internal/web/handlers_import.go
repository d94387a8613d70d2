package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/logging"
	"github.com/JonMunkholm/userimport/internal/web/views"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file size cap.
const multipartOverhead = 64 << 10

// uploadWriteGrace is the time left to write a response after the upload
// deadline fires.
const uploadWriteGrace = 30 * time.Second

// ImportResponse is the JSON body of an import. Code and Error are set
// only when the import was interrupted.
type ImportResponse struct {
	*core.ImportOutcome
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// uploadWriteDeadline extends the connection's write deadline past the
// upload deadline, so an import that runs longer than SERVER_WRITE_TIMEOUT
// can still deliver its outcome.
func (s *Server) uploadWriteDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline := time.Now().Add(s.cfg.UploadDeadline() + uploadWriteGrace)
		if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil &&
			!errors.Is(err, http.ErrNotSupported) {
			logging.FromContext(r.Context()).Warn("extend write deadline", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// readUpload extracts the "file" part of a multipart request as text.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return "", fmt.Errorf("%w: limit is %s", core.ErrFileTooLarge, core.FormatSize(maxSize))
		case errors.Is(err, http.ErrNotMultipart):
			return "", core.ErrNoFile
		default:
			return "", fmt.Errorf("parse upload form: %w", err)
		}
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", core.ErrNoFile
	}
	defer file.Close()

	return core.ReadUpload(file, header.Filename, header.Header.Get("Content-Type"), maxSize)
}

// handleImportCSV imports users from an uploaded CSV file.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	text, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	start := s.now()
	outcome, err := s.importer.Import(ctx, text)
	if outcome == nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.ObserveImport(outcome, time.Since(start))
	if outcome.Success+outcome.Updated > 0 {
		// Rows may have been written by an import whose context is already done.
		s.users.InvalidateStats(context.WithoutCancel(ctx))
	}
	if err != nil {
		s.respondInterrupted(w, r, outcome, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = views.ImportSummary(outcome).Render(ctx, w)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		ImportOutcome: outcome,
		Message: fmt.Sprintf("Import completed: %d created, %d updated, %d failed",
			outcome.Success, outcome.Updated, outcome.Failed),
	})
}

// respondInterrupted reports an import cut short by its deadline or a
// disconnect. The counted rows were written; Pending rows were not.
func (s *Server) respondInterrupted(w http.ResponseWriter, r *http.Request, outcome *core.ImportOutcome, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Warn("import interrupted",
		"error", err.Error(),
		"code", userMsg.Code,
		"success", outcome.Success,
		"updated", outcome.Updated,
		"failed", outcome.Failed,
		"pending", outcome.Pending,
	)

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = views.ImportSummary(outcome).Render(r.Context(), w)
		_ = views.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
		return
	}

	writeJSON(w, status, ImportResponse{
		ImportOutcome: outcome,
		Message: fmt.Sprintf("Import interrupted: %d created, %d updated, %d failed, %d not processed",
			outcome.Success, outcome.Updated, outcome.Failed, outcome.Pending),
		Code:  userMsg.Code,
		Error: err.Error(),
	})
}

// handleValidateCSV checks an uploaded CSV file without importing it.
func (s *Server) handleValidateCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	text, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.importer.Validate(ctx, text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleImportTemplate serves the import template as a CSV attachment.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	name := core.TemplateFileName(s.now().Format("20060102_150405"))
	writeCSV(w, name, core.Template())
}

// handleImportInstructions describes the expected columns and import rules.
func (s *Server) handleImportInstructions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Instructions(s.cfg.Upload.MaxFileSize))
}

// writeCSV sends content as a downloadable, uncached CSV file.
func writeCSV(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
