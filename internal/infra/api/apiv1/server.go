package apiv1

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain/ports/adapter"
	"ai-doc-generator/internal/usecase"
)

// Route names used for rate-limit keys and metrics.
const (
	RouteGenerateID = "generate-id"
	RouteUpload     = "upload"
)

// Intake bounds what an upload may contain.
type Intake struct {
	AllowedExtensions []string
	MaxFileBytes      int64
	MaxUploadBytes    int64
}

func (in Intake) allowed() map[string]bool {
	set := make(map[string]bool, len(in.AllowedExtensions))
	for _, ext := range in.AllowedExtensions {
		set[strings.ToLower(ext)] = true
	}
	return set
}

// Guard wraps the handler of a named route, e.g. with a rate limiter.
type Guard func(route string) func(http.Handler) http.Handler

type Server struct {
	uc       usecase.GenerationUseCase
	exporter adapter.ResultExporter
	intake   Intake
	guard    Guard
	log      *zerolog.Logger
}

// NewServer builds the generation API. guard may be nil.
func NewServer(uc usecase.GenerationUseCase, exporter adapter.ResultExporter, intake Intake, guard Guard, logger *zerolog.Logger) *Server {
	if guard == nil {
		guard = func(string) func(http.Handler) http.Handler {
			return func(h http.Handler) http.Handler { return h }
		}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{uc: uc, exporter: exporter, intake: intake, guard: guard, log: &l}
}

// RegisterAPIV1 mounts the generation routes on r.
func RegisterAPIV1(r chi.Router, srv *Server) {
	r.With(srv.guard(RouteGenerateID)).Get("/generate-id", srv.handleGenerateID)
	r.With(srv.guard(RouteUpload)).Post("/upload", srv.handleUpload)
	r.Get("/generation-progress/{id}", srv.handleProgress)
	r.Post("/cancel-generation", srv.handleCancel)
	r.Get("/docs/{id}/export.xlsx", srv.handleExport)
}
