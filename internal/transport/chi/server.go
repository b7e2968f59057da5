package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
	"github.com/kailas-cloud/cinedex/internal/domain/search/page"
	"github.com/kailas-cloud/cinedex/internal/domain/search/query"
	"github.com/kailas-cloud/cinedex/internal/logger"
	healthuc "github.com/kailas-cloud/cinedex/internal/usecase/health"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeIndexUnavailable = "index_unavailable"
	CodeIndexQueryError  = "index_query_error"
	CodeCacheUnavailable = "cache_unavailable"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the JSON body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type catalog interface {
	Query(ctx context.Context, t entity.Type, p query.Params) (page.Response, error)
	Lookup(ctx context.Context, t entity.Type, id string) (json.RawMessage, error)
	Forget(ctx context.Context, t entity.Type, id string) error
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the catalog API.
type Server struct {
	catalog         catalog
	health          healthChecker
	defaultPageSize int
	adminKeys       []string
	authz           Authorizer
	errorHandlers   []errorHandler
}

// Options holds the API settings that come from configuration.
type Options struct {
	DefaultPageSize int
	AdminKeys       []string

	// Authorizer is consulted before every catalog call. Nil means AllowAll.
	Authorizer Authorizer
}

// NewServer creates an HTTP API server.
func NewServer(c catalog, health healthChecker, opts Options) *Server {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.Authorizer == nil {
		opts.Authorizer = AllowAll{}
	}
	return &Server{
		catalog:         c,
		health:          health,
		defaultPageSize: opts.DefaultPageSize,
		adminKeys:       opts.AdminKeys,
		authz:           opts.Authorizer,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeBadRequest),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
			sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
			sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, CodeIndexUnavailable),
			sentinelHandler(domain.ErrIndexQueryError, http.StatusBadGateway, CodeIndexQueryError),
			sentinelHandler(domain.ErrCacheUnavailable, http.StatusServiceUnavailable, CodeCacheUnavailable),
		},
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/films", s.list(entity.Film))
		r.Get("/films/search", s.searchText(entity.Film))
		r.Get("/films/{id}", s.lookup(entity.Film))

		r.Get("/persons/search", s.searchText(entity.Person))
		r.Get("/persons/{id}", s.lookup(entity.Person))
		r.Get("/persons/{id}/film", s.PersonFilms)

		r.Get("/genres", s.list(entity.Genre))
		r.Get("/genres/{id}", s.lookup(entity.Genre))

		r.With(AdminKeyMiddleware(s.adminKeys)).Delete("/cache/{entity}/{id}", s.EvictDocument)
	})
}

// list handles GET /<entity>: filtered, sorted, paged listing without free text.
func (s *Server) list(t entity.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.bindParams(r.URL.Query())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		s.query(w, r, t, p)
	}
}

// searchText handles GET /<entity>/search?query=...
func (s *Server) searchText(t entity.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p, err := s.bindParams(q)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		var text *string
		if err := runtime.BindQueryParameter("form", true, false, "query", q, &text); err != nil {
			s.handleDomainError(w, r, fmt.Errorf("%w: query: %w", domain.ErrInvalidQuery, err))
			return
		}
		p.Text = derefString(text)
		s.query(w, r, t, p)
	}
}

// PersonFilms handles GET /api/v1/persons/{id}/film.
func (s *Server) PersonFilms(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.handleDomainError(w, r, fmt.Errorf("%w: person id is required", domain.ErrInvalidQuery))
		return
	}
	p, err := s.bindParams(r.URL.Query())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	p.Filters["actor"] = id
	s.query(w, r, entity.Film, p)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, t entity.Type, p query.Params) {
	if err := s.authorize(r, CapabilitySearch, t); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	ctx := logger.With(r.Context(), zap.String("entity", string(t)))
	resp, err := s.catalog.Query(ctx, t, p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookup handles GET /<entity>/{id}.
func (s *Server) lookup(t entity.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.authorize(r, CapabilityRead, t); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		id := chi.URLParam(r, "id")
		ctx := logger.With(r.Context(), zap.String("entity", string(t)), zap.String("id", id))
		doc, err := s.catalog.Lookup(ctx, t, id)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// EvictDocument handles DELETE /api/v1/cache/{entity}/{id}.
func (s *Server) EvictDocument(w http.ResponseWriter, r *http.Request) {
	t, err := entity.Parse(chi.URLParam(r, "entity"))
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err))
		return
	}
	if err := s.authorize(r, CapabilityEvict, t); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.catalog.Forget(r.Context(), t, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindParams reads the paging, sort and filter parameters shared by all list routes.
func (s *Server) bindParams(q url.Values) (query.Params, error) {
	var (
		pageNumber *int
		pageSize   *int
		sort       *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "page_number", q, &pageNumber); err != nil {
		return query.Params{}, fmt.Errorf("%w: page_number: %w", domain.ErrInvalidQuery, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", q, &pageSize); err != nil {
		return query.Params{}, fmt.Errorf("%w: page_size: %w", domain.ErrInvalidQuery, err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", q, &sort); err != nil {
		return query.Params{}, fmt.Errorf("%w: sort: %w", domain.ErrInvalidQuery, err)
	}

	field, dir := query.ParseSort(derefString(sort))
	return query.Params{
		Filters:       filterParams(q),
		SortField:     field,
		SortDirection: dir,
		Page:          derefInt(pageNumber, 1),
		PageSize:      derefInt(pageSize, s.defaultPageSize),
	}, nil
}

// filterParams collects filter[<field>]=<value> pairs. The last value wins for repeated keys.
func filterParams(q url.Values) map[string]string {
	filters := make(map[string]string)
	for k, vs := range q {
		name, ok := strings.CutPrefix(k, "filter[")
		if !ok {
			continue
		}
		name, ok = strings.CutSuffix(name, "]")
		if !ok || len(vs) == 0 {
			continue
		}
		filters[name] = vs[len(vs)-1]
	}
	return filters
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message. Validation details are kept
// because they describe the caller's own input; backend causes are not.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrIndexUnavailable,
		domain.ErrIndexQueryError,
		domain.ErrCacheUnavailable,
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

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
