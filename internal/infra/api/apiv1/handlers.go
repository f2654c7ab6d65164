package apiv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/infra/logging"
)

type generateIDResponse struct {
	GenerationID string `json:"generation_id"`
}

type progressResponse struct {
	Status string `json:"status"`
}

type cancelRequest struct {
	GenerationID string `json:"generation_id"`
}

type cancelResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

func (s *Server) handleGenerateID(w http.ResponseWriter, r *http.Request) {
	id, err := s.uc.CreateID(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateIDResponse{GenerationID: id})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	status, err := s.uc.GetProgress(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{Status: status})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidArgument, err))
		return
	}
	id := strings.TrimSpace(req.GenerationID)
	if id == "" {
		s.writeErr(w, r, fmt.Errorf("%w: generation_id is required", domain.ErrInvalidArgument))
		return
	}
	if err := s.uc.Cancel(logging.WithGenerationID(r.Context(), id), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Acknowledged: true})
}

var errNotFinished = errors.New("generation has not finished")

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.uc.GetJob(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if job.Status != model.JobStatusDone || job.Result == nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: errNotFinished.Error()})
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.Export(&buf, job); err != nil {
		s.writeErr(w, r, fmt.Errorf("export %s: %w", id, err))
		return
	}
	w.Header().Set("Content-Type", s.exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="documentation_%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
