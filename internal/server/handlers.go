package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/auth"
	"github.com/hyperjump/bunsho/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	if err := r.ParseMultipartForm(s.config.MaxUploadSize); err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	var meta map[string]interface{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			s.respondError(w, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	s.logger.Debug("upload request",
		zap.String("tenant", tenant),
		zap.String("filename", header.Filename),
		zap.Int("size", len(content)))

	result, err := s.pipeline.Ingest(r.Context(), tenant, header.Filename, r.FormValue("title"), content, meta)
	if err != nil {
		s.logger.Error("ingestion failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	docs, err := s.storage.ListDocuments(r.Context(), tenant, (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error("list documents failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	total, err := s.storage.CountDocuments(r.Context(), tenant)
	if err != nil {
		s.logger.Error("count documents failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	s.respondJSON(w, http.StatusOK, &models.DocumentList{
		Documents: docs,
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())
	id := chi.URLParam(r, "id")

	doc, err := s.storage.GetDocument(r.Context(), tenant, id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())
	id := chi.URLParam(r, "id")

	doc, err := s.storage.GetDocument(r.Context(), tenant, id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	blob, err := s.blobs.Get(r.Context(), doc.StorageKey)
	if err != nil {
		s.logger.Error("blob fetch failed", zap.String("doc_id", id), zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	if _, err := io.Copy(w, blob); err != nil {
		s.logger.Warn("download interrupted", zap.String("doc_id", id), zap.Error(err))
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())
	id := chi.URLParam(r, "id")

	s.logger.Debug("delete document request", zap.String("tenant", tenant), zap.String("id", id))
	if err := s.pipeline.Delete(r.Context(), tenant, id); err != nil {
		s.logger.Error("deletion failed", zap.String("id", id), zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.retriever.Retrieve(r.Context(), tenant, req.Query)
	if err != nil {
		s.logger.Error("query failed", zap.String("tenant", tenant), zap.Error(err))
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	docCount, err := s.storage.CountDocuments(r.Context(), tenant)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"documents": docCount,
	}
	if usage, ok := s.blobs.(interface{ Usage() (int64, error) }); ok {
		if bytes, err := usage.Usage(); err == nil {
			resp["blob_usage_bytes"] = bytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps pipeline and storage errors to HTTP status codes.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "document not found")
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
