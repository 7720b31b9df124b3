package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/ranking"
	"github.com/khanglvm/hybrid-rank/internal/rules"
	"github.com/khanglvm/hybrid-rank/internal/storage"
	"github.com/khanglvm/hybrid-rank/internal/version"
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, prefs.ErrOutOfRange), errors.Is(err, prefs.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !s.app.Storage.Enabled() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": version.Version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Status(r.Context()))
}

// rankedView is a result with its explanations.
type rankedView struct {
	ranking.RankedResult
	Explanations []ranking.Explanation `json:"explanations"`
}

type rankResponse struct {
	Query        string       `json:"query"`
	SearchQuery  string       `json:"search_query,omitempty"`
	Semantic     bool         `json:"semantic"`
	Budget       *float64     `json:"budget"`
	Ranked       int          `json:"ranked"`
	RuleFailures int          `json:"rule_failures"`
	Results      []rankedView `json:"results"`
}

func newRankResponse(resp ranking.Response) rankResponse {
	out := rankResponse{
		Query:        resp.Query,
		SearchQuery:  resp.SearchQuery,
		Semantic:     resp.Semantic,
		Budget:       resp.Budget,
		Ranked:       resp.Ranked,
		RuleFailures: resp.RuleFailures,
		Results:      make([]rankedView, len(resp.Results)),
	}
	for i, r := range resp.Results {
		out.Results[i] = rankedView{RankedResult: r, Explanations: ranking.Explain(r)}
	}
	return out
}

// handleRank handles GET /api/rank?q=...&budget=&category=&brand=&min_rating=&limit=&user=
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ranking.Request{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	}

	var err error
	if req.BudgetOverride, err = floatParam(q.Get("budget")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("budget: %w", err))
		return
	}
	if req.MinRating, err = floatParam(q.Get("min_rating")); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("min_rating: %w", err))
		return
	}
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil || req.Limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit: invalid value %q", v))
			return
		}
	}

	resp, err := s.app.Rank(r.Context(), q.Get("user"), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newRankResponse(resp))
}

type likeRequest struct {
	User  string `json:"user"`
	Query string `json:"query"`
}

// handleLike handles POST /api/items/{id}/like with an optional body.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid item id %q", idStr))
		return
	}

	var body likeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
	}
	if body.User == "" {
		body.User = r.URL.Query().Get("user")
	}

	res, err := s.app.Like(r.Context(), body.User, id, body.Query)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.Preferences(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type tuneRequest struct {
	User             string   `json:"user"`
	PriceSensitivity *float64 `json:"price_sensitivity"`
	RatingWeight     *float64 `json:"rating_weight"`
}

// handleTune handles PUT /api/preferences/tuning. Omitted values keep
// their current setting.
func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	var body tuneRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if body.User == "" {
		body.User = r.URL.Query().Get("user")
	}

	rec, err := s.app.Adjust(body.User, body.PriceSensitivity, body.RatingWeight)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.Reset(r.URL.Query().Get("user"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type rulesResponse struct {
	Rules  []rules.Rule  `json:"rules"`
	Issues []rules.Issue `json:"issues"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rs, issues, err := s.app.RuleSet()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if issues == nil {
		issues = []rules.Issue{}
	}
	writeJSON(w, http.StatusOK, rulesResponse{Rules: rs, Issues: issues})
}

func floatParam(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}
