package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewSeriesCleansAndSorts(t *testing.T) {
	bars := []domain.Bar{
		{Date: day(1), Open: 10, High: 9, Low: 11, Close: 10.5, AdjClose: 10.5},
		{Date: day(0), Open: 9, High: 9.5, Low: 8.5, Close: 9.2, AdjClose: 9.2},
	}
	s := NewSeries(bars)
	require.Equal(t, 2, s.Len())
	assert.True(t, s.Dates[0].Before(s.Dates[1]))
	// high must be >= max(open, close); low <= min(open, close)
	assert.GreaterOrEqual(t, s.High[0], s.Open[0])
	assert.GreaterOrEqual(t, s.High[0], s.Close[0])
	assert.LessOrEqual(t, s.Low[1], s.Open[1])
	assert.LessOrEqual(t, s.Low[1], s.Close[1])
	assert.True(t, isNaN(s.Rets[0]))
	assert.InDelta(t, s.AdjClose[1]/s.AdjClose[0]-1, s.Rets[1], 1e-9)
}

func TestPriceAtBackwardWalk(t *testing.T) {
	bars := []domain.Bar{
		{Date: day(0), AdjClose: 100, Open: 100, High: 100, Low: 100, Close: 100},
		{Date: day(3), AdjClose: 110, Open: 110, High: 110, Low: 110, Close: 110},
	}
	s := NewSeries(bars)
	price, err := s.PriceAt(day(2), 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, price)

	_, err = s.PriceAt(day(100), 14)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrMissingData, kind)
}

func isNaN(f float64) bool { return f != f }
