package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/storage"
)

// ServerStore defines the storage queries the server needs.
type ServerStore interface {
	AllLatest(ctx context.Context) ([]storage.Outcome, error)
	LatestOutcome(ctx context.Context, dependency string) (*storage.Outcome, error)
	DependencyHistory(ctx context.Context, dependency string, limit, offset int) ([]storage.Outcome, int, error)
	ReadinessPercent(ctx context.Context, dependency string, last int) (float64, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	store   ServerStore
	deps    []config.Dependency
	metrics http.Handler
	router  chi.Router
	logger  *slog.Logger
}

// New creates a new Server and registers all routes. metricsHandler may be
// nil to disable the /metrics endpoint.
func New(store ServerStore, deps []config.Dependency, metricsHandler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		deps:    deps,
		metrics: metricsHandler,
		router:  chi.NewRouter(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/dependencies", s.handleListDependencies)
	r.Get("/api/dependencies/{name}", s.handleGetDependency)
	r.Get("/api/dependencies/{name}/history", s.handleGetDependencyHistory)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
}

// --- Response helpers ---

type envelope struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: msg})
}

// --- Dependency helpers ---

// depIndex returns a map from dependency name → config.Dependency.
func (s *Server) depIndex() map[string]config.Dependency {
	idx := make(map[string]config.Dependency, len(s.deps))
	for _, dep := range s.deps {
		idx[dep.Name] = dep
	}
	return idx
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type dependencyDetail struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Target       string     `json:"target"`
	Interval     string     `json:"interval"`
	Status       string     `json:"status"`
	ResponseMs   int64      `json:"response_ms"`
	ReadinessPct float64    `json:"readiness_percent"`
	LastProbed   *time.Time `json:"last_probed"`
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.AllLatest(r.Context())
	if err != nil {
		s.logger.Error("AllLatest", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	byName := make(map[string]storage.Outcome, len(latest))
	for _, o := range latest {
		byName[o.Dependency] = o
	}

	details := make([]dependencyDetail, 0, len(s.deps))
	for _, dep := range s.deps {
		d := dependencyDetail{
			Name:     dep.Name,
			Type:     dep.Type,
			Target:   dep.Target,
			Interval: dep.Interval.Duration.String(),
			Status:   "unknown",
		}
		if o, ok := byName[dep.Name]; ok {
			d.Status = o.Status
			d.ResponseMs = o.ResponseMs
			t := o.RecordedAt
			d.LastProbed = &t
			pct, _ := s.store.ReadinessPercent(r.Context(), dep.Name, 100)
			d.ReadinessPct = pct
		}
		details = append(details, d)
	}

	writeJSON(w, http.StatusOK, details)
}

type dependencyDetailResponse struct {
	dependencyDetail
	RecentOutcomes []storage.Outcome `json:"recent_outcomes"`
}

func (s *Server) handleGetDependency(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	idx := s.depIndex()
	dep, ok := idx[name]
	if !ok {
		writeError(w, http.StatusNotFound, "dependency not found")
		return
	}

	latest, err := s.store.LatestOutcome(r.Context(), name)
	if err != nil {
		s.logger.Error("LatestOutcome", "dependency", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	history, _, err := s.store.DependencyHistory(r.Context(), name, 10, 0)
	if err != nil {
		s.logger.Error("DependencyHistory", "dependency", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	pct, _ := s.store.ReadinessPercent(r.Context(), name, 100)

	d := dependencyDetail{
		Name:         dep.Name,
		Type:         dep.Type,
		Target:       dep.Target,
		Interval:     dep.Interval.Duration.String(),
		Status:       "unknown",
		ReadinessPct: pct,
	}
	if latest != nil {
		d.Status = latest.Status
		d.ResponseMs = latest.ResponseMs
		t := latest.RecordedAt
		d.LastProbed = &t
	}

	writeJSON(w, http.StatusOK, dependencyDetailResponse{
		dependencyDetail: d,
		RecentOutcomes:   history,
	})
}

type historyResponse struct {
	Outcomes []storage.Outcome `json:"outcomes"`
	Total    int               `json:"total"`
}

func (s *Server) handleGetDependencyHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	idx := s.depIndex()
	if _, ok := idx[name]; !ok {
		writeError(w, http.StatusNotFound, "dependency not found")
		return
	}

	const maxLimit = 1000

	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset parameter")
			return
		}
		offset = n
	}

	outcomes, total, err := s.store.DependencyHistory(r.Context(), name, limit, offset)
	if err != nil {
		s.logger.Error("DependencyHistory", "dependency", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Outcomes: outcomes,
		Total:    total,
	})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
