package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssetMetaRoundTrip(t *testing.T) {
	s := openTestStore(t)
	sector := "Technology"
	marketCap := 2.5e12

	meta := domain.AssetMeta{
		Ticker:    "AAPL",
		CompName:  "Apple Inc.",
		Exchange:  "NASDAQ",
		Sector:    &sector,
		MarketCap: &marketCap,
		StartDate: time.Date(1980, 12, 12, 0, 0, 0, 0, time.UTC),
		Currency:  domain.Currency("USD"),
		Kind:      domain.AssetKindEquity,
		Timezone:  "America/New_York",
	}
	require.NoError(t, s.UpsertAssetMeta(meta))

	got, err := s.GetAssetMeta("AAPL")
	require.NoError(t, err)
	assert.Equal(t, meta.Ticker, got.Ticker)
	assert.Equal(t, meta.CompName, got.CompName)
	assert.Equal(t, meta.Exchange, got.Exchange)
	require.NotNil(t, got.Sector)
	assert.Equal(t, sector, *got.Sector)
	require.NotNil(t, got.MarketCap)
	assert.InDelta(t, marketCap, *got.MarketCap, 1e-6)
	assert.True(t, meta.StartDate.Equal(got.StartDate))
	assert.Equal(t, meta.Currency, got.Currency)
	assert.Equal(t, meta.Kind, got.Kind)

	_, err = s.GetAssetMeta("NOSUCHTICKER")
	assert.Error(t, err)
}

func TestAssetMetaUpsertOverwrites(t *testing.T) {
	s := openTestStore(t)
	base := domain.AssetMeta{Ticker: "MSFT", CompName: "Microsoft", Exchange: "NASDAQ", Currency: "USD", Kind: domain.AssetKindEquity}
	require.NoError(t, s.UpsertAssetMeta(base))

	base.CompName = "Microsoft Corporation"
	require.NoError(t, s.UpsertAssetMeta(base))

	got, err := s.GetAssetMeta("MSFT")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft Corporation", got.CompName)
}

func makeBars(n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		bars[i] = domain.Bar{
			Date: base.AddDate(0, 0, i), Open: price, High: price + 1, Low: price - 1,
			Close: price + 0.5, AdjClose: price + 0.5, Volume: 1_000_000,
		}
		price++
	}
	return bars
}

func TestDailyBarsRoundTripAndUpsert(t *testing.T) {
	s := openTestStore(t)
	bars := makeBars(5)
	require.NoError(t, s.UpsertDailyBars("AAPL", bars))

	got, err := s.GetDailyBars("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, bars[0].Date.Equal(got[0].Date))
	assert.InDelta(t, bars[0].Close, got[0].Close, 1e-9)

	updated := bars
	updated[0].Close = 999.0
	require.NoError(t, s.UpsertDailyBars("AAPL", updated))

	got, err = s.GetDailyBars("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.InDelta(t, 999.0, got[0].Close, 1e-9)
}

func TestFiveMinuteBarsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	bars := []domain.Bar{
		{Date: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.5, Volume: 500},
	}
	require.NoError(t, s.UpsertFiveMinuteBars("MSFT", bars))

	got, err := s.GetFiveMinuteBars("MSFT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, bars[0].Date.Equal(got[0].Date))
}

func TestFXSeriesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	pair := domain.FXPair{From: "GBP", To: "USD"}
	points := []domain.FXPoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 1.27},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 1.26},
	}
	require.NoError(t, s.UpsertFXSeries(pair, points))

	got, err := s.GetFXSeries(pair)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.27, got[0].Close, 1e-9)
	assert.InDelta(t, 1.26, got[1].Close, 1e-9)
}

func TestDistinctValues(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertAssetMeta(domain.AssetMeta{Ticker: "AAPL", CompName: "Apple", Exchange: "NASDAQ", Currency: "USD", Kind: domain.AssetKindEquity}))
	require.NoError(t, s.UpsertAssetMeta(domain.AssetMeta{Ticker: "VOD.L", CompName: "Vodafone", Exchange: "LSE", Currency: "GBP", Kind: domain.AssetKindEquity}))

	values, err := s.DistinctValues("exchange", "tickers")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"NASDAQ", "LSE"}, values)
}

func TestMaxDate(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertDailyBars("AAPL", makeBars(3)))

	maxDate, found, err := s.MaxDate("daily", "AAPL")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, maxDate.Equal(time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC)))

	_, found, err = s.MaxDate("daily", "NOSUCHTICKER")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteOldFiveMinuteBars(t *testing.T) {
	s := openTestStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	bars := []domain.Bar{
		{Date: now.AddDate(0, 0, -90), Open: 1, High: 1, Low: 1, Close: 1, AdjClose: 1, Volume: 1},
		{Date: now.AddDate(0, 0, -1), Open: 1, High: 1, Low: 1, Close: 1, AdjClose: 1, Volume: 1},
	}
	require.NoError(t, s.UpsertFiveMinuteBars("AAPL", bars))

	n, err := s.DeleteOldFiveMinuteBars(now, 60*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetFiveMinuteBars("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Date.Equal(bars[1].Date))
}
