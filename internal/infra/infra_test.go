package infra

import (
	"context"
	"testing"
	"time"

	"github.com/seenimoa/coveredcall/pkg/models"
)

func testReport(ticker string) *models.Report {
	return &models.Report{
		Ticker:     ticker,
		Stance:     models.StanceNeutral,
		Bias:       models.BiasIncome,
		Confidence: 0.8,
		Action:     models.ActionSellCall,
	}
}

func TestReportCachePutGet(t *testing.T) {
	c := NewReportCache(time.Minute)

	if _, ok := c.Get("analyze|AAPL|deterministic|false|stub"); ok {
		t.Error("Get on empty cache must miss")
	}

	key := "analyze|AAPL|deterministic|false|stub"
	c.Put(key, testReport("AAPL"))

	rep, ok := c.Get(key)
	if !ok || rep.Ticker != "AAPL" {
		t.Fatalf("Get = %+v, %v, want cached AAPL report", rep, ok)
	}

	// Different run parameters are different entries.
	if _, ok := c.Get("analyze|AAPL|llm|false|stub"); ok {
		t.Error("key for a different mode must miss")
	}
}

func TestReportCacheExpiry(t *testing.T) {
	c := NewReportCache(time.Millisecond)
	c.Put("k", testReport("TSLA"))
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry must miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want expired entry dropped on access", c.Len())
	}
}

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)

	for i := 0; i < 2; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d error = %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait with empty bucket must block until context deadline")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Wait(ctx); err != nil {
		t.Errorf("Wait after refill period error = %v", err)
	}
}
