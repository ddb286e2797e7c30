package analytics

import (
	"math"
	"sort"
	"time"
)

// Stats is the summary-statistics product returned by Series.Stats.
type Stats struct {
	TotalReturn       float64
	DailyMeanReturn   float64
	DailyMedianReturn float64
	DailyStdReturn    float64
	AnnualizedVol     float64
	High52Week        float64
	Low52Week         float64
	CurrentPrice      float64
}

// Stats summarizes s relative to "today" (typically the last bar's
// date, or the caller's clock). The 52-week low is the true minimum
// adjusted close over the trailing year — the original implementation
// this system was distilled from computed it with .max() by mistake;
// this is the corrected semantics.
func (s Series) Stats(today time.Time, annFactor float64) Stats {
	if s.Empty() {
		return Stats{}
	}

	n := len(s.AdjClose)
	out := Stats{CurrentPrice: s.AdjClose[n-1]}

	var logSum float64
	for _, v := range s.LogRets {
		if !math.IsNaN(v) {
			logSum += v
		}
	}
	out.TotalReturn = math.Exp(logSum) - 1

	rets := nonNaN(s.Rets)
	out.DailyMeanReturn, out.DailyStdReturn = meanStd(rets)
	out.DailyMedianReturn = median(rets)
	out.AnnualizedVol = out.DailyStdReturn * math.Sqrt(annFactor)

	cutoff := today.AddDate(0, 0, -364)
	high := math.Inf(-1)
	low := math.Inf(1)
	found := false
	for i, d := range s.Dates {
		if d.Before(cutoff) || d.After(today) {
			continue
		}
		found = true
		if s.AdjClose[i] > high {
			high = s.AdjClose[i]
		}
		if s.AdjClose[i] < low {
			low = s.AdjClose[i]
		}
	}
	if found {
		out.High52Week = high
		out.Low52Week = low
	}
	return out
}

func nonNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Quantile returns the value at quantile q in [0,1] over x using
// linear interpolation between closest ranks, matching numpy/pandas
// default behavior.
func Quantile(x []float64, q float64) float64 {
	clean := nonNaN(x)
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	if q <= 0 {
		return clean[0]
	}
	if q >= 1 {
		return clean[len(clean)-1]
	}
	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo]*(1-frac) + clean[hi]*frac
}
