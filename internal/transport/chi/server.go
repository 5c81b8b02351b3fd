// Package chi implements the HTTP API with handwritten chi handlers.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/textdex-cloud/textdex/internal/domain"
	"github.com/textdex-cloud/textdex/internal/domain/search/request"
	documentuc "github.com/textdex-cloud/textdex/internal/usecase/document"
	healthuc "github.com/textdex-cloud/textdex/internal/usecase/health"
	indicesuc "github.com/textdex-cloud/textdex/internal/usecase/indices"
	searchuc "github.com/textdex-cloud/textdex/internal/usecase/search"
	statsuc "github.com/textdex-cloud/textdex/internal/usecase/stats"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the usecase services over HTTP.
type Server struct {
	indices       *indicesuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	indices *indicesuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		indices:   indices,
		documents: documents,
		search:    search,
		stats:     stats,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, codeIndexNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrSearchContextMissing, http.StatusNotFound, codeSearchContextMissing),
		sentinelHandler(domain.ErrIndexExists, http.StatusConflict, codeIndexAlreadyExists),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrTooManyClauses, http.StatusBadRequest, codeTooManyClauses),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrSearchRejected, http.StatusTooManyRequests, codeSearchRejected),
	}
	return s
}

// Routes mounts all API handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/indices", func(r chi.Router) {
		r.Post("/", s.createIndex)
		r.Get("/", s.listIndices)
		r.Route("/{index}", func(r chi.Router) {
			r.Get("/", s.getIndex)
			r.Delete("/", s.deleteIndex)
			r.Post("/refresh", s.refreshIndex)
			r.Post("/search", s.searchIndex)
			r.Post("/count", s.countIndex)
			r.Post("/bulk", s.bulk)
			r.Get("/stats", s.indexStats)
			r.Route("/documents/{id}", func(r chi.Router) {
				r.Put("/", s.putDocument)
				r.Get("/", s.getDocument)
				r.Delete("/", s.deleteDocument)
			})
		})
	})
	r.Post("/pit", s.openPIT)
	r.Delete("/pit/{id}", s.closePIT)
	r.Get("/stats", s.nodeStats)
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", s.metrics)
}

func (s *Server) createIndex(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	info, err := s.indices.Create(r.Context(), createParamsFromBody(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, indexToBody(info))
}

func (s *Server) listIndices(w http.ResponseWriter, r *http.Request) {
	infos := s.indices.List(r.Context())
	items := make([]indexResponse, len(infos))
	for i, info := range infos {
		items[i] = indexToBody(info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"indices": items})
}

func (s *Server) getIndex(w http.ResponseWriter, r *http.Request) {
	info, err := s.indices.Get(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToBody(info))
}

func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.indices.Delete(r.Context(), chi.URLParam(r, "index")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refreshIndex(w http.ResponseWriter, r *http.Request) {
	st, err := s.indices.Refresh(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToBody(st))
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.documents.Index(r.Context(), chi.URLParam(r, "index"), id, fields); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docWriteResponse{ID: id, Result: "indexed"})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "index"), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docGetResponse{ID: id, Source: doc})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "index"), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docWriteResponse{ID: id, Result: "deleted"})
}

func (s *Server) bulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ops := make([]documentuc.Operation, len(req.Actions))
	for i, a := range req.Actions {
		ops[i] = documentuc.Operation{
			Action: documentuc.Action(a.Action),
			ID:     a.ID,
			Fields: a.Fields,
		}
	}

	results, err := s.documents.Bulk(r.Context(), chi.URLParam(r, "index"), ops)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkToBody(results))
}

func (s *Server) searchIndex(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	res, err := s.search.Search(r.Context(), chi.URLParam(r, "index"), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToBody(res))
}

func (s *Server) countIndex(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	total, err := s.search.Count(r.Context(), chi.URLParam(r, "index"), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: total.Value, Relation: total.Relation})
}

// decodeSearch parses a search or count body. An empty body is a match-all.
func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (request.Params, bool) {
	var req searchRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
			return request.Params{}, false
		}
	}
	params, err := searchParamsFromBody(req)
	if err != nil {
		s.handleDomainError(w, err)
		return request.Params{}, false
	}
	return params, true
}

func (s *Server) openPIT(w http.ResponseWriter, r *http.Request) {
	indexName := r.URL.Query().Get("index")
	if indexName == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "index query parameter is required")
		return
	}

	var keepAlive time.Duration
	if v := r.URL.Query().Get("keep_alive"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "keep_alive must be a positive duration")
			return
		}
		keepAlive = d
	}

	id, err := s.search.OpenPIT(r.Context(), indexName, keepAlive)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pitBody{ID: id})
}

func (s *Server) closePIT(w http.ResponseWriter, r *http.Request) {
	if err := s.search.ClosePIT(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) nodeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nodeStatsToBody(s.stats.Node(r.Context())))
}

func (s *Server) indexStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.stats.Index(r.Context(), chi.URLParam(r, "index"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, indexStatsToBody(report))
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("Unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns an error message for the client without
// exposing internals. Validation wrappers keep their detail.
func safeDomainMessage(err error) string {
	detailed := []error{
		domain.ErrInvalidSchema,
		domain.ErrInvalidQuery,
		domain.ErrTooManyClauses,
	}
	for _, s := range detailed {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrIndexExists,
		domain.ErrDocumentNotFound,
		domain.ErrSearchContextMissing,
		domain.ErrSearchRejected,
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
