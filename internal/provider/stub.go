package provider

import (
	"context"
	"strings"
	"time"

	"github.com/seenimoa/coveredcall/pkg/models"
)

// allNumericFields lists every numeric snapshot field, in report order.
var allNumericFields = []string{
	"price",
	"market_cap",
	"revenue_growth_yoy_pct",
	"eps_growth_yoy_pct",
	"gross_margin_pct",
	"operating_margin_pct",
	"debt_to_equity",
}

type stubRecord struct {
	price     float64
	marketCap float64
	revGrowth float64
	epsGrowth float64
	grossMgn  float64
	operMgn   float64
	d2e       float64
	warnings  []string
}

var stubRecords = map[string]stubRecord{
	"AAPL": {price: 190.0, marketCap: 2.9e12, revGrowth: 2.0, epsGrowth: 6.0, grossMgn: 44.0, operMgn: 30.0, d2e: 1.5},
	"MSFT": {price: 420.0, marketCap: 3.1e12, revGrowth: 12.0, epsGrowth: 18.0, grossMgn: 69.0, operMgn: 42.0, d2e: 0.6},
	"TSLA": {price: 250.0, marketCap: 8.0e11, revGrowth: 5.0, epsGrowth: -10.0, grossMgn: 18.0, operMgn: 8.0, d2e: 0.2,
		warnings: []string{"EPS growth negative in stub snapshot"}},
}

// StubProvider serves deterministic offline fixtures. It is the default
// provider so runs are reproducible without network access.
type StubProvider struct{}

// NewStubProvider creates the offline fixture provider.
func NewStubProvider() *StubProvider { return &StubProvider{} }

func (p *StubProvider) Name() string { return "stub" }

// Fetch returns the fixture for known tickers. Unknown tickers get an
// all-missing snapshot with a warning rather than an error, so the
// pipeline exercises its degraded-quality path.
func (p *StubProvider) Fetch(ctx context.Context, ticker string) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	now := time.Now().UTC()

	rec, ok := stubRecords[ticker]
	if !ok {
		return &models.Snapshot{
			Ticker: ticker,
			AsOf:   now,
			Source: "stub",
			Quality: models.DataQuality{
				AsOf:          now,
				IsStub:        true,
				MissingFields: append([]string(nil), allNumericFields...),
				Warnings:      []string{"No stub fundamentals available for this ticker"},
			},
		}, nil
	}

	return &models.Snapshot{
		Ticker:              ticker,
		AsOf:                now,
		Source:              "stub",
		Price:               models.Float(rec.price),
		MarketCap:           models.Float(rec.marketCap),
		RevenueGrowthYoYPct: models.Float(rec.revGrowth),
		EPSGrowthYoYPct:     models.Float(rec.epsGrowth),
		GrossMarginPct:      models.Float(rec.grossMgn),
		OperatingMarginPct:  models.Float(rec.operMgn),
		DebtToEquity:        models.Float(rec.d2e),
		Quality: models.DataQuality{
			AsOf:          now,
			IsStub:        true,
			MissingFields: []string{},
			Warnings:      append([]string(nil), rec.warnings...),
		},
	}, nil
}
