// Package fx implements the currency conversion core (C3): normalizing
// an asset's series into a reference currency and resolving point
// conversions for cash movements and price lookups.
package fx

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
)

// MaxBackwardWalkDays bounds the backward date walk used when a point
// conversion or price lookup has no rate/bar on the exact date.
const MaxBackwardWalkDays = 14

// Converter normalizes asset series and resolves point FX rates.
type Converter struct {
	store domain.PriceStore
	log   zerolog.Logger
}

// NewConverter builds a Converter over the given price store.
func NewConverter(store domain.PriceStore, log zerolog.Logger) *Converter {
	return &Converter{store: store, log: log.With().Str("component", "fx").Logger()}
}

// RateAt resolves the native->ref rate at date, walking backward up to
// MaxBackwardWalkDays. Beyond that bound it logs a warning and returns
// the most recent rate in the series; domain.ErrMissingData is returned
// only when no series exists for the pair.
func (c *Converter) RateAt(native, ref domain.Currency, date time.Time) (float64, error) {
	if native == ref {
		return 1, nil
	}
	points, err := c.store.GetFXSeries(domain.FXPair{From: native, To: ref})
	if err != nil {
		return 0, domain.NewError(domain.ErrExternalFailure, "load fx series", err)
	}
	if len(points) == 0 {
		return 0, domain.NewError(domain.ErrMissingData, "no fx series for pair", nil)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	day := date
	for i := 0; i <= MaxBackwardWalkDays; i++ {
		if rate, ok := exactMatch(points, day); ok {
			return rate, nil
		}
		day = day.AddDate(0, 0, -1)
	}
	c.log.Warn().Str("pair", domain.FXPair{From: native, To: ref}.String()).Time("date", date).Msg("fx rate missing, falling back to most recent known rate")
	return points[len(points)-1].Close, nil
}

func exactMatch(points []domain.FXPoint, date time.Time) (float64, bool) {
	y1, m1, d1 := date.Date()
	for i := len(points) - 1; i >= 0; i-- {
		y2, m2, d2 := points[i].Date.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return points[i].Close, true
		}
	}
	return 0, false
}

// ConvertSeries left-joins the native->ref daily rate onto s's index
// with forward fill, multiplies OHLC and adj_close pointwise, and
// recomputes returns.
func (c *Converter) ConvertSeries(s analytics.Series, native, ref domain.Currency) (analytics.Series, error) {
	if native == ref || s.Empty() {
		return s, nil
	}
	points, err := c.store.GetFXSeries(domain.FXPair{From: native, To: ref})
	if err != nil || len(points) == 0 {
		return analytics.Series{}, domain.NewError(domain.ErrMissingData, "no fx series for pair", err)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	rates := make([]float64, s.Len())
	pi := 0
	lastRate := points[0].Close
	for i, d := range s.Dates {
		for pi < len(points) && !points[pi].Date.After(d) {
			lastRate = points[pi].Close
			pi++
		}
		rates[i] = lastRate
	}

	out := analytics.Series{
		Dates:    s.Dates,
		Open:     mul(s.Open, rates),
		High:     mul(s.High, rates),
		Low:      mul(s.Low, rates),
		Close:    mul(s.Close, rates),
		AdjClose: mul(s.AdjClose, rates),
		Volume:   s.Volume,
	}
	out = analytics.NewSeriesFromFields(out)
	return out, nil
}

func mul(x, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * y[i]
	}
	return out
}
