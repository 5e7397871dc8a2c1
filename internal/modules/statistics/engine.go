// Package statistics converts raw weekly price series into the aligned return
// matrix, annualized expected-return vector, and annualized covariance matrix
// consumed by the optimizer.
package statistics

import (
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/pkg/formulas"
)

const (
	// MinAlignedDates is the minimum number of shared calendar dates required
	// across all instruments before any returns can be computed.
	MinAlignedDates = 3

	// MinValidReturns is the minimum number of valid (non-substituted) weekly
	// returns an instrument needs to stay in the universe.
	MinValidReturns = 30

	// WeeksPerYear is the annualization factor for weekly observations.
	WeeksPerYear = 52
)

// Result holds the statistics for a computed universe. All vectors and the
// matrix are index-aligned to Universe.
type Result struct {
	Universe     []string
	Mu           []float64            // Annualized expected returns
	Sigma        [][]float64          // Annualized covariance matrix
	Returns      map[string][]float64 // Weekly returns per kept instrument
	LatestPrices map[string]float64
}

// Engine computes universe statistics from weekly price series.
type Engine struct {
	minValidReturns int
	log             zerolog.Logger
}

// NewEngine creates a new statistics engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		minValidReturns: MinValidReturns,
		log:             log.With().Str("component", "statistics").Logger(),
	}
}

// Compute aligns the given series on their shared calendar and produces
// (universe, mu, sigma, latestPrices). Universe preserves the order of tickers,
// keeping only instruments that pass the sufficiency filter.
//
// Annualization rules differ on purpose and must not be unified:
//   - mu compounds the mean weekly return: (1 + m)^52 - 1
//   - sigma scales weekly sample covariance linearly by 52
func (e *Engine) Compute(tickers []string, series map[string]domain.Series) (*Result, error) {
	calendar := alignedCalendar(tickers, series)
	if len(calendar) < MinAlignedDates {
		e.log.Warn().
			Int("aligned_dates", len(calendar)).
			Msg("Not enough aligned dates across instruments")
		return nil, &domain.InsufficientHistoryError{AlignedDates: len(calendar), Required: MinAlignedDates}
	}

	type candidate struct {
		ticker      string
		returns     []float64
		latestPrice float64
	}

	var kept []candidate
	for _, ticker := range tickers {
		s, ok := series[ticker]
		if !ok || len(s) == 0 {
			continue
		}

		closes := make(map[string]float64, len(s))
		for _, p := range s {
			closes[p.Date] = p.Close
		}

		returns, validCount := weeklyReturns(calendar, closes)
		if validCount < e.minValidReturns {
			e.log.Debug().
				Str("ticker", ticker).
				Int("valid_returns", validCount).
				Msg("Dropping instrument with insufficient valid returns")
			continue
		}

		kept = append(kept, candidate{
			ticker:      ticker,
			returns:     returns,
			latestPrice: latestClose(calendar, closes),
		})
	}

	if len(kept) == 0 {
		return nil, &domain.NoUsableInstrumentsError{Examined: len(tickers), MinValid: e.minValidReturns}
	}

	n := len(kept)
	universe := make([]string, n)
	mu := make([]float64, n)
	returns := make(map[string][]float64, n)
	latestPrices := make(map[string]float64, n)
	for i, c := range kept {
		universe[i] = c.ticker
		mu[i] = formulas.AnnualizeWeeklyMean(formulas.Mean(c.returns))
		returns[c.ticker] = c.returns
		latestPrices[c.ticker] = c.latestPrice
	}

	sigma := make([][]float64, n)
	for i := range sigma {
		sigma[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov := stat.Covariance(kept[i].returns, kept[j].returns, nil) * WeeksPerYear
			sigma[i][j] = cov
			sigma[j][i] = cov
		}
	}

	e.log.Info().
		Int("universe_size", n).
		Int("examined", len(tickers)).
		Int("aligned_dates", len(calendar)).
		Msg("Computed universe statistics")

	return &Result{
		Universe:     universe,
		Mu:           mu,
		Sigma:        sigma,
		Returns:      returns,
		LatestPrices: latestPrices,
	}, nil
}

// alignedCalendar returns the ascending date-set intersection across all
// instruments that have any data at all.
func alignedCalendar(tickers []string, series map[string]domain.Series) []string {
	counts := make(map[string]int)
	withData := 0
	for _, ticker := range tickers {
		s, ok := series[ticker]
		if !ok || len(s) == 0 {
			continue
		}
		withData++
		seen := make(map[string]bool, len(s))
		for _, p := range s {
			if !seen[p.Date] {
				seen[p.Date] = true
				counts[p.Date]++
			}
		}
	}

	var calendar []string
	for date, c := range counts {
		if c == withData {
			calendar = append(calendar, date)
		}
	}
	sort.Strings(calendar)
	return calendar
}

// weeklyReturns computes one fractional return per consecutive aligned-date
// pair. A return is undefined when either endpoint is missing or non-positive;
// undefined returns are recorded as 0 but excluded from the valid count.
func weeklyReturns(calendar []string, closes map[string]float64) ([]float64, int) {
	prices := make([]float64, len(calendar))
	for i, date := range calendar {
		// Missing dates stay 0, which invalidates both adjacent pairs.
		prices[i] = closes[date]
	}

	returns := formulas.CalculateReturns(prices)

	valid := 0
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			valid++
		}
	}
	return returns, valid
}

// latestClose returns the close at the most recent aligned date with a
// positive price for this instrument.
func latestClose(calendar []string, closes map[string]float64) float64 {
	for i := len(calendar) - 1; i >= 0; i-- {
		if p, ok := closes[calendar[i]]; ok && p > 0 {
			return p
		}
	}
	return 0
}
