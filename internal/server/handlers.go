package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/modules/recommend"
)

// HealthResponse reports service liveness and dependency state.
type HealthResponse struct {
	Status    string `json:"status"`
	CacheDB   string `json:"cache_db"`
	Scorer    string `json:"scorer"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// handleRecommendations runs one recommendation pass.
// POST /api/recommendations
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return
	}

	resp, err := s.recommender.Recommend(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleSchema returns the versioned feature column contract.
// GET /api/schema
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"featureOrder": s.recommender.FeatureOrder(),
	})
}

// handleHealth returns service health including dependency probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		CacheDB:   "ok",
		Scorer:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if s.cacheDB != nil {
		if err := s.cacheDB.HealthCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Cache DB health check failed")
			resp.CacheDB = "unavailable"
			resp.Status = "degraded"
		}
	}

	if s.scorerProbe != nil && !s.scorerProbe.Healthy(r.Context()) {
		resp.Scorer = "unavailable"
		resp.Status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps pipeline errors to HTTP status codes. Every domain
// error is terminal for the request.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTarget):
		s.writeError(w, http.StatusBadRequest, "invalid_target", err.Error())
	case errors.Is(err, domain.ErrInfeasibleTarget):
		s.writeError(w, http.StatusUnprocessableEntity, "infeasible_target", err.Error())
	case errors.Is(err, domain.ErrInsufficientHistory):
		s.writeError(w, http.StatusUnprocessableEntity, "insufficient_history", err.Error())
	case errors.Is(err, domain.ErrNoUsableInstruments):
		s.writeError(w, http.StatusUnprocessableEntity, "no_usable_instruments", err.Error())
	case errors.Is(err, domain.ErrIllConditionedCovariance):
		s.writeError(w, http.StatusUnprocessableEntity, "ill_conditioned_covariance", err.Error())
	case errors.Is(err, domain.ErrDegenerateBaseline):
		s.writeError(w, http.StatusUnprocessableEntity, "degenerate_baseline", err.Error())
	case errors.Is(err, domain.ErrFeatureDimensionMismatch):
		s.writeError(w, http.StatusUnprocessableEntity, "feature_dimension_mismatch", err.Error())
	case errors.Is(err, domain.ErrScorerUnavailable):
		s.writeError(w, http.StatusBadGateway, "scorer_unavailable", err.Error())
	default:
		s.log.Error().Err(err).Msg("Recommendation request failed")
		s.writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
