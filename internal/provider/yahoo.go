package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/piquette/finance-go/equity"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// YahooProvider fetches live quote data from Yahoo Finance. The quote
// API carries price, market cap and EPS figures but no income-statement
// ratios, so margin and leverage fields come back as missing and the
// snapshot is flagged degraded rather than padded with guesses.
type YahooProvider struct{}

// NewYahooProvider creates the Yahoo Finance quote provider.
func NewYahooProvider() *YahooProvider { return &YahooProvider{} }

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) Fetch(ctx context.Context, ticker string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	q, err := equity.Get(ticker)
	if err != nil {
		return nil, fmt.Errorf("yahoo: quote for %s: %w", ticker, err)
	}
	if q == nil {
		return nil, fmt.Errorf("yahoo: no quote data for %s", ticker)
	}

	now := time.Now().UTC()
	snap := &models.Snapshot{
		Ticker: ticker,
		AsOf:   now,
		Source: "yahoo",
		Quality: models.DataQuality{
			AsOf:   now,
			IsStub: false,
		},
	}

	missing := []string{}
	if q.RegularMarketPrice > 0 {
		snap.Price = models.Float(q.RegularMarketPrice)
	} else {
		missing = append(missing, "price")
	}
	if q.MarketCap > 0 {
		snap.MarketCap = models.Float(float64(q.MarketCap))
	} else {
		missing = append(missing, "market_cap")
	}

	// The quote endpoint has no income-statement history, so revenue
	// growth cannot be computed from it.
	missing = append(missing, "revenue_growth_yoy_pct")

	if q.EpsTrailingTwelveMonths > 0 && q.EpsForward > 0 {
		growth := (q.EpsForward - q.EpsTrailingTwelveMonths) / q.EpsTrailingTwelveMonths * 100.0
		snap.EPSGrowthYoYPct = models.Float(growth)
		snap.Quality.Warnings = append(snap.Quality.Warnings,
			"eps_growth_yoy_pct estimated from forward vs trailing EPS")
	} else {
		missing = append(missing, "eps_growth_yoy_pct")
	}

	missing = append(missing, "gross_margin_pct", "operating_margin_pct", "debt_to_equity")

	snap.Quality.MissingFields = missing
	snap.Quality.Warnings = append(snap.Quality.Warnings,
		"quote API lacks statement-level fundamentals; snapshot is degraded")
	return snap, nil
}
