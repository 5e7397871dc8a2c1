package marketdata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quantfolio/advisor/internal/domain"
)

// fetchConcurrency bounds parallel provider requests per universe fetch.
const fetchConcurrency = 4

// Snapshot holds everything fetched for one recommendation run.
type Snapshot struct {
	Series       map[string]domain.Series
	Fundamentals map[string]domain.FundamentalRow
}

// FetchUniverse fetches weekly series and fundamentals for every ticker in
// parallel. A ticker whose series cannot be fetched is omitted from the
// snapshot rather than failing the whole run; downstream minimum-history
// checks decide whether what remains is usable. Returns an error only when
// the context is cancelled.
func (c *Client) FetchUniverse(ctx context.Context, tickers []string) (*Snapshot, error) {
	snapshot := &Snapshot{
		Series:       make(map[string]domain.Series, len(tickers)),
		Fundamentals: make(map[string]domain.FundamentalRow, len(tickers)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			series, err := c.GetWeeklySeries(gctx, ticker)
			if err != nil {
				c.log.Warn().Err(err).Str("ticker", ticker).Msg("Skipping ticker, no price series")
				return nil
			}

			row, err := c.GetFundamentals(gctx, ticker, series)
			if err != nil {
				c.log.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals unavailable, using zero row")
				row = domain.FundamentalRow{}
			}

			mu.Lock()
			snapshot.Series[ticker] = series
			snapshot.Fundamentals[ticker] = row
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Info().
		Int("requested", len(tickers)).
		Int("fetched", len(snapshot.Series)).
		Msg("Fetched universe data")

	return snapshot, nil
}
