// Package recommend orchestrates one synchronous recommendation pass:
// market data, portfolio statistics, optimization, marginal utilities,
// feature assembly, external scoring, and ranking.
package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/clients/marketdata"
	"github.com/quantfolio/advisor/internal/clients/scorer"
	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/internal/modules/features"
	"github.com/quantfolio/advisor/internal/modules/marginal"
	"github.com/quantfolio/advisor/internal/modules/optimization"
	"github.com/quantfolio/advisor/internal/modules/ranking"
	"github.com/quantfolio/advisor/internal/modules/statistics"
)

// MarketData is the slice of the market data client the service needs.
type MarketData interface {
	FetchUniverse(ctx context.Context, tickers []string) (*marketdata.Snapshot, error)
}

// Scorer is the slice of the scoring client the service needs.
type Scorer interface {
	Score(ctx context.Context, req scorer.ScoreRequest) ([]float64, error)
}

// Request describes one recommendation run. Universe is optional; when empty
// the service falls back to its configured watchlist.
type Request struct {
	Holdings     []domain.Holding `json:"holdings"`
	TargetReturn float64          `json:"targetReturn"`
	Budget       float64          `json:"budget,omitempty"`
	Universe     []string         `json:"universe,omitempty"`
}

// Recommendation is one suggested purchase.
type Recommendation struct {
	Ticker string  `json:"ticker"`
	Score  float64 `json:"score"`
	Price  float64 `json:"price"`
	Shares int     `json:"shares"`
	Reason string  `json:"reason"`
}

// Response is the full result of one run.
type Response struct {
	ID              string           `json:"id"`
	Recommendations []Recommendation `json:"recommendations"`
	FeatureOrder    []string         `json:"featureOrder"`
}

// Service wires the pipeline stages together. Stateless across requests.
type Service struct {
	marketData MarketData
	scorer     Scorer
	stats      *statistics.Engine
	optimizer  *optimization.Optimizer
	marginal   *marginal.Engine
	assembler  *features.Assembler
	ranker     *ranking.Ranker
	watchlist  []string
	log        zerolog.Logger
}

// NewService creates the recommendation service.
func NewService(
	marketData MarketData,
	scoringClient Scorer,
	riskFreeRate float64,
	watchlist []string,
	log zerolog.Logger,
) *Service {
	return &Service{
		marketData: marketData,
		scorer:     scoringClient,
		stats:      statistics.NewEngine(log),
		optimizer:  optimization.NewOptimizer(log),
		marginal:   marginal.NewEngine(riskFreeRate, log),
		assembler:  features.NewAssembler(log),
		ranker:     ranking.NewRanker(log),
		watchlist:  watchlist,
		log:        log.With().Str("component", "recommend").Logger(),
	}
}

// FeatureOrder exposes the scoring contract column order.
func (s *Service) FeatureOrder() []string {
	return s.assembler.Schema().Columns
}

// Recommend runs the full pipeline. Every failure is terminal for the
// request; partial results are never returned as success.
func (s *Service) Recommend(ctx context.Context, req Request) (*Response, error) {
	if math.IsNaN(req.TargetReturn) || math.IsInf(req.TargetReturn, 0) {
		return nil, &domain.InvalidTargetError{Value: req.TargetReturn}
	}

	tickers := s.assembleTickers(req)
	if len(tickers) == 0 {
		return nil, &domain.NoUsableInstrumentsError{Examined: 0, MinValid: statistics.MinValidReturns}
	}

	snapshot, err := s.marketData.FetchUniverse(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}

	stats, err := s.stats.Compute(tickers, snapshot.Series)
	if err != nil {
		return nil, err
	}

	weights, err := s.optimizer.Optimize(stats.Mu, stats.Sigma, req.TargetReturn)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(req.Holdings))
	for _, h := range req.Holdings {
		if h.Shares > 0 {
			held[h.Ticker] = true
		}
	}

	metrics, err := s.marginal.MarginalUtilities(weights, stats.Mu, stats.Sigma, stats.Universe, held)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(stats.Universe))
	for _, ticker := range stats.Universe {
		if !held[ticker] {
			candidates = append(candidates, ticker)
		}
	}

	resp := &Response{
		ID:              uuid.NewString(),
		Recommendations: []Recommendation{},
		FeatureOrder:    s.FeatureOrder(),
	}
	if len(candidates) == 0 {
		s.log.Info().Str("id", resp.ID).Msg("All surviving instruments already held")
		return resp, nil
	}

	matrix := s.assembler.Build(candidates, metrics, snapshot.Fundamentals, req.TargetReturn)
	if err := s.assembler.Schema().Validate(matrix); err != nil {
		return nil, err
	}

	scores, err := s.scorer.Score(ctx, scorer.ScoreRequest{
		SchemaVersion: s.assembler.Schema().Version,
		Columns:       s.assembler.Schema().Columns,
		Rows:          matrix,
	})
	if err != nil {
		return nil, err
	}

	suggestions := s.ranker.Rank(candidates, scores, stats.LatestPrices, req.Budget)
	for _, sug := range suggestions {
		resp.Recommendations = append(resp.Recommendations, Recommendation{
			Ticker: sug.Ticker,
			Score:  sug.Score,
			Price:  sug.Price,
			Shares: sug.Shares,
			Reason: describeReason(metrics[sug.Ticker]),
		})
	}

	s.log.Info().
		Str("id", resp.ID).
		Int("universe", len(stats.Universe)).
		Int("candidates", len(candidates)).
		Int("recommendations", len(resp.Recommendations)).
		Float64("target_return", req.TargetReturn).
		Msg("Recommendation run complete")

	return resp, nil
}

// assembleTickers merges holdings and the candidate universe, holdings first,
// deduplicated in insertion order.
func (s *Service) assembleTickers(req Request) []string {
	candidates := req.Universe
	if len(candidates) == 0 {
		candidates = s.watchlist
	}

	seen := make(map[string]bool, len(req.Holdings)+len(candidates))
	tickers := make([]string, 0, len(req.Holdings)+len(candidates))
	for _, h := range req.Holdings {
		if h.Ticker != "" && !seen[h.Ticker] {
			seen[h.Ticker] = true
			tickers = append(tickers, h.Ticker)
		}
	}
	for _, ticker := range candidates {
		if ticker != "" && !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

// describeReason renders a short human-readable explanation from the marginal
// metrics that fed the scorer.
func describeReason(m marginal.Metrics) string {
	switch {
	case m.DeltaSharpe > 0 && m.DeltaCvar > 0:
		return fmt.Sprintf("improves Sharpe by %.4f and reduces tail risk", m.DeltaSharpe)
	case m.DeltaSharpe > 0:
		return fmt.Sprintf("improves Sharpe by %.4f", m.DeltaSharpe)
	case m.DeltaCvar > 0:
		return "reduces tail risk"
	default:
		return "scored favorably by the model"
	}
}
