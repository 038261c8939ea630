package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	pipelineuc "github.com/safebites/menuquery/internal/usecase/pipeline"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pipeline processes chat queries end to end.
type Pipeline interface {
	Process(ctx context.Context, req pipelineuc.Request) (domain.UnifiedResponse, error)
}

// History reconstructs session context for the history endpoint.
type History interface {
	RebuildContext(ctx context.Context, sessionID string, n int) ([]domain.SessionContext, error)
	Length(ctx context.Context, sessionID string) (int64, error)
}

// Rebuilder triggers background index rebuilds.
type Rebuilder interface {
	Trigger(ctx context.Context) (<-chan error, error)
}

// IndexStatus reports vector index readiness.
type IndexStatus interface {
	Ready() bool
	Len() int
}

// Pinger checks database liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API for the menu query pipeline.
type Server struct {
	pipeline      Pipeline
	history       History
	rebuilder     Rebuilder
	index         IndexStatus
	db            Pinger
	defaultDepth  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaultDepth is the history depth
// used when the history endpoint gets no explicit limit.
func NewServer(
	pipeline Pipeline, history History, rebuilder Rebuilder,
	index IndexStatus, db Pinger, defaultDepth int, logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline:     pipeline,
		history:      history,
		rebuilder:    rebuilder,
		index:        index,
		db:           db,
		defaultDepth: defaultDepth,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, codeInvalidFilter),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrDishNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrRebuildInProgress, http.StatusConflict, codeRebuildInProgress),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, codeIndexNotReady),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, codeQuotaExceeded),
		sentinelHandler(domain.ErrOracleProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts the API handlers onto the given router.
func (s *Server) Routes(r chirouter.Router) {
	r.Post("/v1/chat/query", s.ChatQuery)
	r.Get("/v1/sessions/{session_id}/history", s.SessionHistory)
	r.Post("/v1/index/rebuild", s.RebuildIndex)
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", s.Metrics)
}

// ChatQuery handles POST /v1/chat/query.
func (s *Server) ChatQuery(w http.ResponseWriter, r *http.Request) {
	var req chatQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.pipeline.Process(r.Context(), req.toPipelineRequest())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, responseToDTO(resp))
}

// SessionHistory handles GET /v1/sessions/{session_id}/history.
func (s *Server) SessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chirouter.URLParam(r, "session_id")

	limit := s.defaultDepth
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	// An unknown session is 404, not an empty list.
	if n, err := s.history.Length(r.Context(), sessionID); err != nil {
		s.handleDomainError(w, err)
		return
	} else if n == 0 {
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrSessionNotFound.Error())
		return
	}

	entries, err := s.history.RebuildContext(r.Context(), sessionID, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contextToDTO(entries))
}

// RebuildIndex handles POST /v1/index/rebuild. The rebuild runs in the
// background; 202 means accepted, 409 means one is already running.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	// The rebuild must outlive this request.
	if _, err := s.rebuilder.Trigger(context.WithoutCancel(r.Context())); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, rebuildResponse{Status: "rebuild started"})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		Database:   "ok",
		IndexReady: s.index.Ready(),
		IndexSize:  s.index.Len(),
	}

	status := http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Warn("health check database ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidFilter,
		domain.ErrSessionNotFound,
		domain.ErrDishNotFound,
		domain.ErrNotFound,
		domain.ErrRebuildInProgress,
		domain.ErrIndexNotReady,
		domain.ErrOracleProviderError,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
