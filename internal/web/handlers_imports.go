package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/logging"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// defaultPreviewRecords is the preview size when ?n is not given.
const defaultPreviewRecords = 20

// mappingRequest is the body of PUT /imports/{id}/mappings.
type mappingRequest struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"`
}

// importRequest is the optional body of POST /imports/{id}/import.
type importRequest struct {
	SiteID string `json:"siteId"`
}

// handleListFields returns the field registry.
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Fields())
}

// handleStartImport decodes an uploaded file and opens a session in the
// validate stage.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, fmt.Errorf("%w: limit %d bytes", errFileTooLarge, maxBytes.Limit))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	var format core.Format
	if raw := r.FormValue("format"); raw != "" {
		format, err = core.ParseFormat(raw)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	ctx := WithRequestMetadata(r.Context(), r)
	view, err := s.service.StartImport(ctx, header.Filename, file, format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// handleGetSession returns the current state of a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Session(sessionID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSetMapping changes the target of one column.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SourceColumn) == "" || strings.TrimSpace(req.TargetField) == "" {
		respondError(w, r, fmt.Errorf("%w: sourceColumn and targetField are required", errMappingRequest))
		return
	}

	view, err := s.service.SetMapping(r.Context(), sessionID(r), req.SourceColumn, strings.TrimSpace(req.TargetField))
	s.respondStep(w, r, view, err)
}

// handleRevalidate re-runs validation with the current mappings.
func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Revalidate(r.Context(), sessionID(r))
	s.respondStep(w, r, view, err)
}

// handleNext advances the session one stage.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Next(r.Context(), sessionID(r))
	s.respondStep(w, r, view, err)
}

// handlePrevious moves the session back one stage.
func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Previous(r.Context(), sessionID(r))
	s.respondStep(w, r, view, err)
}

// respondStep writes the session view, or the error with the view attached.
func (s *Server) respondStep(w http.ResponseWriter, r *http.Request, view core.SessionView, err error) {
	if err != nil {
		respondSessionError(w, r, view, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePreview returns the first n transformed records without persisting.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	n := parseIntParam(r, "n", defaultPreviewRecords)
	records, err := s.service.Preview(sessionID(r), n)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.DomainRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// handleImport persists the session's records.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	id := sessionID(r)
	logger := logging.WithFields(r.Context(), "session_id", id, "site_id", req.SiteID)
	start := time.Now()

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Import(ctx, id, strings.TrimSpace(req.SiteID))
	if err != nil {
		// A failed import keeps the session; return it for a retry.
		view, _ := s.service.Session(id)
		respondSessionError(w, r, view, err)
		return
	}

	logger.Info("import request completed", "count", res.Count, "duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, res)
}

// handleCancelImport discards a session.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Cancel(r.Context(), sessionID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportHistory lists recent import runs, optionally for one site.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	site := strings.TrimSpace(r.URL.Query().Get("site"))
	runs, err := s.service.History(r.Context(), site, parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if runs == nil {
		runs = []core.ImportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleImportStatus reports import capacity and open sessions.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.service.SessionCount(),
		"imports":  s.service.Limiter().Status(),
	})
}

// handleHealth reports liveness, and database reachability when configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
	})
}
