// Package api serves the housing research endpoints over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/housing-research/internal/config"
	"github.com/sells-group/housing-research/internal/model"
	"github.com/sells-group/housing-research/internal/monitoring"
	"github.com/sells-group/housing-research/internal/store"
)

// Store is the read surface the handlers need.
type Store interface {
	store.HousingStore
	store.Research
	Ping(ctx context.Context) error
}

// Resolver resolves a single ZIP.
type Resolver interface {
	Resolve(ctx context.Context, zip string) (*model.Resolution, error)
}

// National supplies the cached national averages.
type National interface {
	Averages(ctx context.Context) (model.NationalComparison, error)
}

// Server holds the handler dependencies.
type Server struct {
	store    Store
	resolver Resolver
	national National
	metrics  *monitoring.Metrics
	cfg      *config.Config
	log      *zap.Logger
}

// NewServer creates a Server. metrics may be nil.
func NewServer(st Store, resolver Resolver, national National, metrics *monitoring.Metrics, cfg *config.Config) *Server {
	return &Server{
		store:    st,
		resolver: resolver,
		national: national,
		metrics:  metrics,
		cfg:      cfg,
		log:      zap.L().With(zap.String("component", "api")),
	}
}

// Routes builds the full HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/research", func(r chi.Router) {
		r.Use(queryTimeout(s.cfg.Store.QueryTimeout()))

		r.Get("/stats/zip/{zip}", s.handleZipStats)
		r.Get("/stats/state/{state}", s.handleStateStats)
		r.Get("/stats/county/{county}", s.handleCountyStats)
		r.Get("/search", s.handleSearch)
		r.Post("/compare", s.handleCompare)
		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/xlsx", s.handleExportXLSX)
		r.Get("/quality/report", s.handleQualityReport)
		r.Get("/summary", s.handleSummary)
		r.Get("/list/states", s.handleListStates)
		r.Get("/list/counties", s.handleListCounties)
		r.Get("/list/zips", s.handleListZips)
	})

	if dir := s.cfg.Server.StaticDir; dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "db": "disconnected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "db": "connected"})
}
