package marketdata

import (
	"math"
	"strconv"

	"github.com/quantfolio/advisor/internal/domain"
	"github.com/quantfolio/advisor/pkg/formulas"
)

// Momentum lookbacks in weekly bars.
const (
	momentum6MonthWeeks  = 26
	momentum12MonthWeeks = 52
)

// normalizeOverview converts a raw provider overview payload into a
// FundamentalRow. Provider field names vary across vendors, so each signal is
// resolved against a list of known aliases; anything unresolvable becomes 0.
// Momentum is derived from the weekly closes because the overview endpoint
// does not carry it.
func normalizeOverview(payload map[string]interface{}, series domain.Series) domain.FundamentalRow {
	row := domain.FundamentalRow{
		Beta:     parseFloatField(payload, "Beta", "beta"),
		DivYield: parseFloatField(payload, "DividendYield", "dividend_yield"),
	}

	if marketCap := parseFloatField(payload, "MarketCapitalization", "market_cap"); marketCap > 0 {
		row.LogCap = math.Log(marketCap)
	}

	closes := make([]float64, 0, len(series))
	for _, p := range series {
		closes = append(closes, p.Close)
	}
	if m := formulas.Momentum(closes, momentum6MonthWeeks); m != nil {
		row.Mom6 = *m
	}
	if m := formulas.Momentum(closes, momentum12MonthWeeks); m != nil {
		row.Mom12 = *m
	}

	return row
}

// parseFloatField resolves the first present key and coerces its value to a
// float64. Providers send numbers both as JSON numbers and as strings
// ("None" and "-" mean absent).
func parseFloatField(fields map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case float64:
			if !math.IsNaN(val) && !math.IsInf(val, 0) {
				return val
			}
		case string:
			if parsed, err := strconv.ParseFloat(val, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
