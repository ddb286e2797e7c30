package fx

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
)

type fakeStore struct {
	domain.PriceStore
	fx map[string][]domain.FXPoint
}

func (f *fakeStore) GetFXSeries(pair domain.FXPair) ([]domain.FXPoint, error) {
	pts, ok := f.fx[pair.String()]
	if !ok {
		return nil, assert.AnError
	}
	return pts, nil
}

func TestRateAtExactAndBackwardWalk(t *testing.T) {
	d0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{fx: map[string][]domain.FXPoint{
		"GBP/USD": {{Date: d0, Close: 1.2}},
	}}
	c := NewConverter(store, zerolog.Nop())

	rate, err := c.RateAt("GBP", "USD", d0)
	require.NoError(t, err)
	assert.Equal(t, 1.2, rate)

	rate, err = c.RateAt("GBP", "USD", d0.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.2, rate)
}

func TestRateAtSameCurrency(t *testing.T) {
	c := NewConverter(&fakeStore{}, zerolog.Nop())
	rate, err := c.RateAt("USD", "USD", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestConvertSeries(t *testing.T) {
	d0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{fx: map[string][]domain.FXPoint{
		"GBP/USD": {{Date: d0, Close: 1.25}},
	}}
	c := NewConverter(store, zerolog.Nop())
	s := analytics.NewSeries([]domain.Bar{
		{Date: d0, Open: 100, High: 100, Low: 100, Close: 100, AdjClose: 100},
	})
	out, err := c.ConvertSeries(s, "GBP", "USD")
	require.NoError(t, err)
	assert.Equal(t, 125.0, out.AdjClose[0])
}
