package rebalance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/portfolio"
)

func fixedPrice(ticker string, date time.Time) (float64, error) {
	prices := map[string]float64{"AAPL": 100, "MSFT": 200}
	return prices[ticker], nil
}

// TestPlanSellsBeforeBuys covers §8 scenario 2: a 60% AAPL / 40% cash
// portfolio rebalanced to {AAPL: 0.2, MSFT: 0.3}, which Plan normalizes
// to {AAPL: 0.4, MSFT: 0.6}, produces a sell of AAPL before any buy of
// MSFT.
func TestPlanSellsBeforeBuys(t *testing.T) {
	p := portfolio.New("t", "USD", 0, "SPY")
	p.Cash = 400
	p.Holdings["AAPL"] = 6 // 600 value at price 100 -> total value 1000, 60% AAPL

	trades, err := Plan(p, map[string]float64{"AAPL": 0.2, "MSFT": 0.3}, time.Now(), fixedPrice)
	require.NoError(t, err)
	require.NotEmpty(t, trades)

	sellIdx, buyIdx := -1, -1
	for i, tr := range trades {
		if tr.Ticker == "AAPL" && tr.Kind == TradeSell {
			sellIdx = i
		}
		if tr.Ticker == "MSFT" && tr.Kind == TradeBuy {
			buyIdx = i
		}
	}
	require.NotEqual(t, -1, sellIdx)
	require.NotEqual(t, -1, buyIdx)
	assert.Less(t, sellIdx, buyIdx)
}

func TestPlanIgnoresSmallDeviations(t *testing.T) {
	p := portfolio.New("t", "USD", 0, "SPY")
	p.Cash = 0
	p.Holdings["AAPL"] = 10 // 1000 value, 100% AAPL already
	trades, err := Plan(p, map[string]float64{"AAPL": 1.0}, time.Now(), fixedPrice)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
