// Package marketdata fetches weekly price series and fundamentals snapshots
// from the market data provider, with cache-first behavior backed by the
// client data repository.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/clientdata"
	"github.com/quantfolio/advisor/internal/domain"
)

// Client for the market data provider (Alpha Vantage compatible API).
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new market data client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("client", "marketdata").Logger(),
		cacheRepo: cacheRepo,
	}
}

// GetWeeklySeries fetches the weekly adjusted price series for one ticker,
// oldest first. If the API fails, returns stale cached data if available
// (stale data > no data).
func (c *Client) GetWeeklySeries(ctx context.Context, ticker string) (domain.Series, error) {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("weekly_series", ticker)
		if err == nil && data != nil {
			var cached domain.Series
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("ticker", ticker).Int("points", len(cached)).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	payload, err := c.query(ctx, url.Values{
		"function": {"TIME_SERIES_WEEKLY_ADJUSTED"},
		"symbol":   {ticker},
	})
	if err != nil {
		if stale := c.staleSeries(ticker); stale != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached series")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch weekly series for %s: %w", ticker, err)
	}

	series, err := parseWeeklySeries(payload)
	if err != nil {
		if stale := c.staleSeries(ticker); stale != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to parse response, using stale cached series")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse weekly series for %s: %w", ticker, err)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("weekly_series", ticker, series, clientdata.TTLWeeklySeries); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache weekly series")
		}
	}

	return series, nil
}

// GetFundamentals fetches the fundamentals snapshot for one ticker and
// normalizes it into a FundamentalRow. The weekly series is used to derive
// momentum signals the provider does not supply. Missing provider data
// produces a zero-valued row, never an error.
func (c *Client) GetFundamentals(ctx context.Context, ticker string, series domain.Series) (domain.FundamentalRow, error) {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("fundamentals", ticker)
		if err == nil && data != nil {
			var cached domain.FundamentalRow
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("ticker", ticker).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	payload, err := c.query(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {ticker},
	})
	if err != nil {
		if row, ok := c.staleFundamentals(ticker); ok {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("API failed, using stale cached fundamentals")
			return row, nil
		}
		// Fundamentals are a soft dependency: a zero row keeps the
		// feature contract intact.
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("No fundamentals available, using zero row")
		return normalizeOverview(nil, series), nil
	}

	row := normalizeOverview(payload, series)

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("fundamentals", ticker, row, clientdata.TTLFundamentals); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to cache fundamentals")
		}
	}

	return row, nil
}

// query performs one GET against the provider and decodes the JSON body.
func (c *Client) query(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if msg, ok := payload["Error Message"].(string); ok {
		return nil, fmt.Errorf("API error: %s", msg)
	}

	return payload, nil
}

func (c *Client) staleSeries(ticker string) domain.Series {
	if c.cacheRepo == nil {
		return nil
	}
	data, err := c.cacheRepo.Get("weekly_series", ticker)
	if err != nil || data == nil {
		return nil
	}
	var series domain.Series
	if err := json.Unmarshal(data, &series); err != nil {
		return nil
	}
	return series
}

func (c *Client) staleFundamentals(ticker string) (domain.FundamentalRow, bool) {
	if c.cacheRepo == nil {
		return domain.FundamentalRow{}, false
	}
	data, err := c.cacheRepo.Get("fundamentals", ticker)
	if err != nil || data == nil {
		return domain.FundamentalRow{}, false
	}
	var row domain.FundamentalRow
	if err := json.Unmarshal(data, &row); err != nil {
		return domain.FundamentalRow{}, false
	}
	return row, true
}

// parseWeeklySeries converts the provider's date-keyed map into an ascending
// Series.
func parseWeeklySeries(payload map[string]interface{}) (domain.Series, error) {
	raw, ok := payload["Weekly Adjusted Time Series"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("response has no weekly time series")
	}

	series := make(domain.Series, 0, len(raw))
	for date, v := range raw {
		fields, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		series = append(series, domain.PricePoint{
			Date:     date,
			Close:    parseFloatField(fields, "5. adjusted close", "4. close"),
			Dividend: parseFloatField(fields, "7. dividend amount"),
		})
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("weekly time series is empty")
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}
