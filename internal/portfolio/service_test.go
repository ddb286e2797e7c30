package portfolio

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/fx"
	"github.com/aristath/finsight/internal/store"
)

func d(n int) time.Time {
	return time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// seededStore builds an in-memory store (per sqlite_store_test.go's
// openTestStore pattern) pre-loaded with AAPL meta and daily bars: 100
// on day 0, 150 from day 100 onward, matching §8 scenario 1. The
// provider is never consulted since every lookup resolves from the
// store.
func seededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.UpsertAssetMeta(domain.AssetMeta{
		Ticker:    "AAPL",
		CompName:  "Apple Inc.",
		Exchange:  "NASDAQ",
		StartDate: d(0),
		Currency:  "USD",
		Kind:      domain.AssetKindEquity,
		Timezone:  "America/New_York",
	}))

	bars := []domain.Bar{
		{Date: d(0), Open: 100, High: 100, Low: 100, Close: 100, AdjClose: 100, Volume: 1000},
		{Date: d(100), Open: 150, High: 150, Low: 150, Close: 150, AdjClose: 150, Volume: 1000},
		{Date: d(150), Open: 150, High: 150, Low: 150, Close: 150, AdjClose: 150, Volume: 1000},
	}
	require.NoError(t, s.UpsertDailyBars("AAPL", bars))
	return s
}

func TestDepositBuySellScenario(t *testing.T) {
	st := seededStore(t)
	an := analytics.NewService(st, nil, testLogger())
	conv := fx.NewConverter(st, testLogger())
	s := NewService(an, conv, testLogger())

	p := New("test", "USD", 0.02, "SPY")
	require.NoError(t, s.Deposit(p, 10_000, "USD", d(0)))

	require.NoError(t, s.Buy(p, "AAPL", TradeInput{Value: 2000, HasValue: true, Currency: "USD", Date: d(0)}))

	assert.Equal(t, 8000.0, p.Cash)
	assert.InDelta(t, 2000.0/100.0, p.Holdings["AAPL"], 1e-9)
	assert.InDelta(t, 100.0, p.CostBasis["AAPL"], 1e-9)

	sellShares := p.Holdings["AAPL"] / 2
	require.NoError(t, s.Sell(p, "AAPL", TradeInput{Shares: sellShares, Currency: "USD", Date: d(150)}))

	lastTx := p.Transactions[len(p.Transactions)-1]
	expectedProfit := round2((150.0 - 100.0) * (1000.0 / 100.0))
	assert.Equal(t, expectedProfit, lastTx.Profit)
	assert.Equal(t, domain.TxSell, lastTx.Kind)
	assert.Len(t, p.Transactions, 3) // deposit, buy, sell
	assert.Equal(t, int64(3), p.NextID)
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	p := New("t", "USD", 0, "SPY")
	p.Cash = 100
	s := NewService(nil, nil, testLogger())
	err := s.Withdraw(p, 200, "USD", d(0))
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrInsufficientFunds, kind)
	assert.Equal(t, 100.0, p.Cash) // unchanged
}

func TestDepositSameCurrency(t *testing.T) {
	p := New("t", "USD", 0, "SPY")
	s := NewService(nil, nil, testLogger())
	require.NoError(t, s.Deposit(p, 500, "USD", d(0)))
	assert.Equal(t, 500.0, p.Cash)
	assert.Len(t, p.Transactions, 1)
	assert.Equal(t, domain.TxDeposit, p.Transactions[0].Kind)
	assert.True(t, p.Transactions[0].Asset.IsCash())
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
