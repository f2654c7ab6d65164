package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-doc-generator/internal/config"
	"ai-doc-generator/internal/infra/api/apiv1"
	"ai-doc-generator/internal/infra/redis"
	"ai-doc-generator/internal/infra/render"
)

// NewRouter mounts the generation API, the rendered documents under
// render.PublicPrefix, and the health and metrics endpoints.
func NewRouter(cfg config.ServerConfig, v1 *apiv1.Server, docsDir string, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger), CORS())
	if cfg.WriteTimeout > 0 {
		r.Use(Timeout(cfg.WriteTimeout))
	}

	apiv1.RegisterAPIV1(r, v1)

	r.Handle(render.PublicPrefix+"*", http.StripPrefix(render.PublicPrefix, documents(docsDir)))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// RateLimitGuard adapts a Limiter to the per-route guard the API expects.
func RateLimitGuard(limiter redis.Limiter, logger *zerolog.Logger) apiv1.Guard {
	return func(route string) func(http.Handler) http.Handler {
		return RateLimit(limiter, route, logger)
	}
}

// documents serves files from dir without directory listings.
func documents(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func NewHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
