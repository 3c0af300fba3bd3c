// Package chi exposes the catalogue over HTTP. Handlers stay declarative:
// they decode, delegate to the usecases and map the error taxonomy onto
// status codes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/db"
	"github.com/kailas-cloud/metadex/internal/domain"
	domitem "github.com/kailas-cloud/metadex/internal/domain/item"
	"github.com/kailas-cloud/metadex/internal/logger"
	"github.com/kailas-cloud/metadex/internal/metrics"
	itemuc "github.com/kailas-cloud/metadex/internal/usecase/item"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server handles the catalogue HTTP API.
type Server struct {
	items         *itemuc.Service
	backend       db.Pinger
	logger        *zap.Logger
	apiKeys       []string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. The backend pinger feeds the health
// endpoint and may be nil.
func NewServer(items *itemuc.Service, backend db.Pinger, apiKeys []string, logger *zap.Logger) *Server {
	s := &Server{
		items:   items,
		backend: backend,
		logger:  logger,
		apiKeys: apiKeys,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, "invalid_schema"),
		sentinelHandler(domain.ErrInvalidSyntax, http.StatusBadRequest, "invalid_syntax"),
		sentinelHandler(domain.ErrDocAlreadyExists, http.StatusConflict, "already_exists"),
		sentinelHandler(domain.ErrDocNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrOperationNotAllowed, http.StatusForbidden, "operation_not_allowed"),
		sentinelHandler(domain.ErrDatabaseFailure, http.StatusInternalServerError, "database_failure"),
	}
	return s
}

// Routes builds the chi router with auth and metrics middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", s.CreateItem)
		r.Put("/items", s.UpdateItem)
		r.Delete("/items/{id}", s.DeleteItem)
		r.Patch("/items/{id}/status", s.SetItemStatus)
		r.Post("/search", s.SearchItems)
		r.Post("/count", s.CountItems)
	})
	return r
}

// Health handles GET /health. It reports degraded when the search backend
// stops answering pings.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.backend != nil {
		if err := s.backend.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// CreateItem handles POST /api/v1/items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.decodeItem(w, r)
	if !ok {
		return
	}

	created, err := s.items.Create(r.Context(), it)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created.ToJSON())
}

// UpdateItem handles PUT /api/v1/items.
func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.decodeItem(w, r)
	if !ok {
		return
	}

	updated, err := s.items.Update(r.Context(), it)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.ToJSON())
}

// DeleteItem handles DELETE /api/v1/items/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.items.Delete(r.Context(), id)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": deleted})
}

// SetItemStatus handles PATCH /api/v1/items/{id}/status.
func (s *Server) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"itemStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if err := s.items.SetStatus(r.Context(), id, domitem.Status(req.Status)); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "itemStatus": req.Status})
}

// SearchItems handles POST /api/v1/search.
func (s *Server) SearchItems(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	q, err := queryFromRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_syntax", err.Error())
		return
	}
	filter, err := itemuc.ParseResultFilter(req.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_syntax", err.Error())
		return
	}

	hits, total, err := s.items.Search(r.Context(), q, filter)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalHits": total, "results": hits})
}

// CountItems handles POST /api/v1/count.
func (s *Server) CountItems(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	q, err := queryFromRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_syntax", err.Error())
		return
	}

	n, err := s.items.Count(r.Context(), q)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalHits": n})
}

// decodeItem reads and structurally validates an item document.
func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (*domitem.Item, bool) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return nil, false
	}

	it, err := domitem.FromJSON(doc)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return nil, false
	}
	return &it, true
}

// requestLogger stores a request-scoped logger carrying the chi request id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
	})
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.FromContext(ctx).Error("unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]any{"error": code, "detail": detail})
}
