package apiv1

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/infra/logging"
	"ai-doc-generator/internal/infra/render"
)

const multipartMemory = 8 << 20

type uploadResponse struct {
	Success      bool   `json:"success"`
	GenerationID string `json:"generation_id"`
	HTMLPath     string `json:"htmlPath"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.intake.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.intake.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "upload too large"})
			return
		}
		s.writeErr(w, r, fmt.Errorf("%w: malformed multipart form: %v", domain.ErrInvalidArgument, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	id := strings.TrimSpace(r.FormValue("generation_id"))
	if id == "" {
		s.writeErr(w, r, fmt.Errorf("%w: generation_id is required", domain.ErrInvalidArgument))
		return
	}
	ctx := logging.WithGenerationID(r.Context(), id)

	files, skipped, err := s.readFiles(r.MultipartForm, s.extensionFilter(r.FormValue("extensions")))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if len(skipped) > 0 {
		logging.With(ctx, s.log).Info().Strs("skipped", skipped).Msg("ignored files with unsupported extensions")
	}

	if err := s.uc.StartGeneration(ctx, id, files, parseBatchSize(r.FormValue("batch_size"))); err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, uploadResponse{
		Success:      true,
		GenerationID: id,
		HTMLPath:     render.PublicPrefix + render.DocumentName(id),
	})
}

// parseBatchSize treats missing or non-integer input as "not provided".
func parseBatchSize(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// extensionFilter narrows the configured extensions to those named in raw,
// a comma or space separated list. Empty raw keeps the configured set.
func (s *Server) extensionFilter(raw string) map[string]bool {
	allowed := s.intake.allowed()
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return allowed
	}
	narrowed := make(map[string]bool)
	for _, ext := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if allowed[ext] {
			narrowed[ext] = true
		}
	}
	return narrowed
}

func (s *Server) readFiles(form *multipart.Form, allowed map[string]bool) ([]model.SourceFile, []string, error) {
	headers := make([]*multipart.FileHeader, 0, len(form.File["files[]"])+len(form.File["files"]))
	headers = append(headers, form.File["files[]"]...)
	headers = append(headers, form.File["files"]...)
	var (
		files   []model.SourceFile
		skipped []string
	)
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		if !allowed[strings.ToLower(filepath.Ext(name))] {
			skipped = append(skipped, name)
			continue
		}
		if s.intake.MaxFileBytes > 0 && fh.Size > s.intake.MaxFileBytes {
			return nil, nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidArgument, name, s.intake.MaxFileBytes)
		}
		content, err := readPart(fh)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, name, err)
		}
		files = append(files, model.SourceFile{Name: name, Content: strings.ToValidUTF8(content, "\uFFFD")})
	}
	return files, skipped, nil
}

func readPart(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
