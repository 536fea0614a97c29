package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/blob"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/docstore"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/ingest"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/models"
	"github.com/Techways-AI/sme-panel-staging-sub001/internal/query"
)

const maxUploadBytes = 64 << 20

// handleUpload accepts a multipart upload and schedules processing.
// The response returns 202 because indexing happens in the background.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if len(content) > maxUploadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	req := ingest.UploadRequest{
		Title:    r.FormValue("title"),
		Filename: header.Filename,
		Content:  content,
		Folder:   r.FormValue("folder"),
		Topic:    r.FormValue("topic"),
	}
	if v := r.FormValue("chunk_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.ChunkSize = n
		}
	}
	if v := r.FormValue("chunk_overlap"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.ChunkOverlap = n
		}
	}

	doc, err := s.coordinator.Upload(r.Context(), req)
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	docs, err := s.docs.List(r.Context(), offset, limit)
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.Reprocess(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// handleDocumentStatus is the polling endpoint; it only reads recorded state.
func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.coordinator.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.executor.Answer(r.Context(), &req)
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.docs.Count(r.Context())
	if err != nil {
		s.respondMappedError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents":      count,
		"cached_indexes": s.registry.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondMappedError translates domain errors into HTTP status codes.
func (s *Server) respondMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, query.ErrEmptyScope):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, query.ErrNotReady):
		s.respondError(w, http.StatusConflict, err.Error())
	case blob.IsUnavailable(err):
		s.logger.Error("blob store unavailable", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
