// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	logpkg "github.com/casafind/casafind/internal/logger"
	healthuc "github.com/casafind/casafind/internal/usecase/health"
	searchuc "github.com/casafind/casafind/internal/usecase/search"
)

// ErrorCode identifies an API error class.
type ErrorCode string

// API error codes.
const (
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeInvalidQuery     ErrorCode = "invalid_query"
	ErrCodeStoreUnavailable ErrorCode = "store_unavailable"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body returned on any error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/search. PriorCriteria carries the
// previous turn's criteria for conversational refinement.
type SearchRequest struct {
	Query         string             `json:"query"`
	PriorCriteria *criteria.Criteria `json:"prior_criteria,omitempty"`
	Limit         int                `json:"limit,omitempty"`
}

// ScoreBreakdown exposes the per-stage scores of one result.
type ScoreBreakdown struct {
	Structured float64 `json:"structured"`
	Semantic   float64 `json:"semantic"`
	Fused      float64 `json:"fused"`
}

// SearchResultItem is one ranked listing with its score breakdown.
type SearchResultItem struct {
	Listing listing.Listing `json:"listing"`
	Scores  ScoreBreakdown  `json:"scores"`
}

// SearchResponse is the body of a successful POST /v1/search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	// Criteria is what actually matched, after sanitization and relaxation.
	Criteria        criteria.Criteria `json:"criteria"`
	MatchedFields   []string          `json:"matched_fields,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	Relaxations     []string          `json:"relaxations,omitempty"`
	Degraded        []string          `json:"degraded,omitempty"`
	TotalCandidates int               `json:"total_candidates"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type searcher interface {
	Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
}

type healthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements the HTTP API.
type Server struct {
	search searcher
	health healthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search searcher, health healthChecker, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// Register mounts the API routes on a chi router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/search", s.SearchListings)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchListings handles POST /v1/search.
func (s *Server) SearchListings(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ucReq := searchuc.Request{
		Query: req.Query,
		Limit: req.Limit,
	}
	if req.PriorCriteria != nil {
		ucReq.Prior = *req.PriorCriteria
	}

	resp, err := s.search.Search(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i, res := range resp.Results {
		items[i] = SearchResultItem{
			Listing: res.Listing,
			Scores: ScoreBreakdown{
				Structured: res.Scores.Structured(),
				Semantic:   res.Scores.Semantic(),
				Fused:      res.Scores.Fused(),
			},
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:         items,
		Criteria:        resp.Criteria,
		MatchedFields:   resp.MatchedFields,
		Warnings:        resp.Warnings,
		Relaxations:     resp.Relaxations,
		Degraded:        resp.Degraded,
		TotalCandidates: resp.TotalCandidates,
	})
}

// HealthCheck handles GET /healthz. Degraded still answers 200: the pipeline
// serves, just without every stage.
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

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidQuery, domain.ErrInvalidQuery.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warn("store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, domain.ErrStoreUnavailable.Error())
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

// requestLogger prefers the request-scoped logger carried in context, which
// includes the request id.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
