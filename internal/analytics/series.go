// Package analytics implements the asset analytics core (C2): price and
// returns derivation, currency normalization support, rolling/EWM
// statistics, resampling, and summary statistics.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/finsight/internal/domain"
)

// Series is a date-indexed OHLCV frame with derived return columns.
// All slices are the same length and share the Dates index.
type Series struct {
	Dates    []time.Time
	Open     []float64
	High     []float64
	Low      []float64
	Close    []float64
	AdjClose []float64
	Volume   []int64
	Rets     []float64
	LogRets  []float64
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Dates) }

// Empty reports whether the series carries no bars.
func (s Series) Empty() bool { return len(s.Dates) == 0 }

// NewSeries builds a Series from unordered bars: sorts by date, cleans
// OHLC so high >= max(open, close) and low <= min(open, close), and
// derives simple and log returns from adjusted close.
func NewSeries(bars []domain.Bar) Series {
	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	n := len(sorted)
	s := Series{
		Dates:    make([]time.Time, n),
		Open:     make([]float64, n),
		High:     make([]float64, n),
		Low:      make([]float64, n),
		Close:    make([]float64, n),
		AdjClose: make([]float64, n),
		Volume:   make([]int64, n),
		Rets:     make([]float64, n),
		LogRets:  make([]float64, n),
	}
	for i, b := range sorted {
		s.Dates[i] = b.Date
		s.Open[i] = b.Open
		s.High[i] = math.Max(b.High, math.Max(b.Open, b.Close))
		s.Low[i] = math.Min(b.Low, math.Min(b.Open, b.Close))
		s.Close[i] = b.Close
		s.AdjClose[i] = b.AdjClose
		s.Volume[i] = b.Volume
	}
	s.Rets = pctChange(s.AdjClose)
	s.LogRets = logReturns(s.AdjClose)
	return s
}

// NewSeriesFromFields recomputes Rets/LogRets on a Series whose OHLCV
// fields were built directly (e.g. after an FX conversion), rather than
// via NewSeries from raw bars.
func NewSeriesFromFields(s Series) Series {
	s.Rets = pctChange(s.AdjClose)
	s.LogRets = logReturns(s.AdjClose)
	return s
}

// pctChange mirrors pandas' Series.pct_change: index 0 is NaN.
func pctChange(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(x); i++ {
		if x[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i]/x[i-1] - 1
	}
	return out
}

func logReturns(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(x); i++ {
		if x[i-1] <= 0 || x[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(x[i] / x[i-1])
	}
	return out
}

// PriceAt returns AdjClose on the exact date, walking backward up to
// maxDays calendar days if the exact date has no bar. Returns
// domain.ErrMissingData beyond that bound.
func (s Series) PriceAt(date time.Time, maxDays int) (float64, error) {
	if s.Empty() {
		return 0, domain.NewError(domain.ErrMissingData, "series has no bars", nil)
	}
	day := date
	for i := 0; i <= maxDays; i++ {
		if idx, ok := s.indexOf(day); ok {
			return s.AdjClose[idx], nil
		}
		day = day.AddDate(0, 0, -1)
	}
	return 0, domain.NewError(domain.ErrMissingData, "no price within backward-walk bound", nil)
}

func (s Series) indexOf(date time.Time) (int, bool) {
	y1, m1, d1 := date.Date()
	i := sort.Search(len(s.Dates), func(i int) bool { return !s.Dates[i].Before(date) })
	for ; i < len(s.Dates); i++ {
		y2, m2, d2 := s.Dates[i].Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return i, true
		}
		break
	}
	return 0, false
}
