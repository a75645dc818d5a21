package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chiRouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/result"
	healthuc "github.com/casafind/casafind/internal/usecase/health"
	searchuc "github.com/casafind/casafind/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	searchFn func(ctx context.Context, req searchuc.Request) (searchuc.Response, error)
}

func (m *mockSearcher) Search(ctx context.Context, req searchuc.Request) (searchuc.Response, error) {
	return m.searchFn(ctx, req)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestServer(search searcher, health healthChecker) *Server {
	return NewServer(search, health, zap.NewNop())
}

func postSearch(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.SearchListings(rr, req)
	return rr
}

// --- Tests ---

func TestSearchListings_Success(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, req searchuc.Request) (searchuc.Response, error) {
			if req.Query != "2 bed in mokotow" {
				t.Errorf("query = %q", req.Query)
			}
			if req.Limit != 3 {
				t.Errorf("limit = %d, want 3", req.Limit)
			}
			return searchuc.Response{
				Results: []searchuc.RankedListing{
					{
						Listing: listing.Listing{ID: "l1", City: "warsaw", Rooms: 2, Price: 250000},
						Scores:  result.New("l1", 0, 1, 0.8, 0.9),
					},
				},
				Criteria:        criteria.Criteria{City: "warsaw", Rooms: intPtr(2)},
				MatchedFields:   []string{"city", "rooms"},
				TotalCandidates: 17,
			}, nil
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "2 bed in mokotow", "limit": 3}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	r0 := resp.Results[0]
	if r0.Listing.ID != "l1" || r0.Listing.City != "warsaw" {
		t.Errorf("listing = %+v", r0.Listing)
	}
	if r0.Scores.Fused != 0.9 || r0.Scores.Semantic != 0.8 || r0.Scores.Structured != 1 {
		t.Errorf("scores = %+v", r0.Scores)
	}
	if resp.TotalCandidates != 17 {
		t.Errorf("total_candidates = %d, want 17", resp.TotalCandidates)
	}
	if resp.Criteria.City != "warsaw" {
		t.Errorf("criteria city = %q", resp.Criteria.City)
	}
	if len(resp.MatchedFields) != 2 || resp.MatchedFields[0] != "city" {
		t.Errorf("matched_fields = %v", resp.MatchedFields)
	}
}

func TestSearchListings_DegradationSurfaced(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, _ searchuc.Request) (searchuc.Response, error) {
			return searchuc.Response{
				Warnings:    []string{`dropped unknown amenity "pool"`},
				Relaxations: []string{"location"},
				Degraded:    []string{searchuc.DegradedSemantic},
			}, nil
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "anything"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Warnings) != 1 || len(resp.Relaxations) != 1 {
		t.Errorf("warnings = %v, relaxations = %v", resp.Warnings, resp.Relaxations)
	}
	if len(resp.Degraded) != 1 || resp.Degraded[0] != searchuc.DegradedSemantic {
		t.Errorf("degraded = %v", resp.Degraded)
	}
}

func TestSearchListings_PriorCriteriaForwarded(t *testing.T) {
	var gotPrior criteria.Criteria
	search := &mockSearcher{
		searchFn: func(_ context.Context, req searchuc.Request) (searchuc.Response, error) {
			gotPrior = req.Prior
			return searchuc.Response{}, nil
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "cheaper", "prior_criteria": {"city": "warsaw", "rooms": 2}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if gotPrior.City != "warsaw" {
		t.Errorf("prior city = %q, want warsaw", gotPrior.City)
	}
	if gotPrior.Rooms == nil || *gotPrior.Rooms != 2 {
		t.Errorf("prior rooms = %v, want 2", gotPrior.Rooms)
	}
}

func TestSearchListings_MalformedBody_400(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, &mockHealth{})

	rr := postSearch(t, srv, `{"query": `)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrCodeBadRequest {
		t.Errorf("code = %s, want %s", errResp.Code, ErrCodeBadRequest)
	}
}

func TestSearchListings_InvalidQuery_400(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, _ searchuc.Request) (searchuc.Response, error) {
			return searchuc.Response{}, domain.ErrInvalidQuery
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "  "}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrCodeInvalidQuery {
		t.Errorf("code = %s, want %s", errResp.Code, ErrCodeInvalidQuery)
	}
}

func TestSearchListings_StoreUnavailable_503(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, _ searchuc.Request) (searchuc.Response, error) {
			return searchuc.Response{}, domain.ErrStoreUnavailable
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "anything"}`)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrCodeStoreUnavailable {
		t.Errorf("code = %s, want %s", errResp.Code, ErrCodeStoreUnavailable)
	}
}

func TestSearchListings_UnexpectedError_500(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, _ searchuc.Request) (searchuc.Response, error) {
			return searchuc.Response{}, errors.New("boom")
		},
	}
	srv := newTestServer(search, &mockHealth{})

	rr := postSearch(t, srv, `{"query": "anything"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	// Internal details must not leak to the client.
	if strings.Contains(errResp.Message, "boom") {
		t.Errorf("message leaks internals: %q", errResp.Message)
	}
}

func TestHealthCheck_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
		wantBody   string
	}{
		{
			"healthy",
			healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{
				"store": healthuc.CheckOK, "embedding": healthuc.CheckOK,
			}},
			http.StatusOK, "ok",
		},
		{
			"degraded still serves",
			healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{
				"store": healthuc.CheckOK, "embedding": healthuc.CheckError,
			}},
			http.StatusOK, "degraded",
		},
		{
			"unhealthy",
			healthuc.Report{Status: healthuc.Unhealthy, Checks: map[string]healthuc.CheckResult{
				"store": healthuc.CheckError,
			}},
			http.StatusServiceUnavailable, "error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&mockSearcher{}, &mockHealth{report: tc.report})

			req := httptest.NewRequest("GET", "/healthz", http.NoBody)
			rr := httptest.NewRecorder()
			srv.HealthCheck(rr, req)

			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tc.wantBody {
				t.Errorf("body status = %q, want %q", resp.Status, tc.wantBody)
			}
		})
	}
}

func TestRegister_Routes(t *testing.T) {
	search := &mockSearcher{
		searchFn: func(_ context.Context, _ searchuc.Request) (searchuc.Response, error) {
			return searchuc.Response{}, nil
		},
	}
	srv := newTestServer(search, &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}})

	r := chiRouter.NewRouter()
	srv.Register(r)

	req := httptest.NewRequest("POST", "/v1/search", strings.NewReader(`{"query": "x"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("POST /v1/search = %d, want %d", rr.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/healthz", http.NoBody)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want %d", rr.Code, http.StatusOK)
	}
}

func intPtr(v int) *int { return &v }
