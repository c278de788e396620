package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/bunsho/internal/auth"
	"github.com/hyperjump/bunsho/internal/models"
)

// sseWriter frames stream events as server-sent events, flushing after each
// one so tokens reach the client as they are generated.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, f: f}, nil
}

func (s *sseWriter) send(event models.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

type chatRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	tenant, _ := auth.TenantFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("chat stream request", zap.String("tenant", tenant))
	// Failures past this point have already been reported on the stream as an
	// error event; the returned error is for the log only.
	if err := s.answerer.Answer(r.Context(), tenant, req.Query, sse.send); err != nil {
		s.logger.Error("chat stream failed", zap.String("tenant", tenant), zap.Error(err))
	}
}
