package metrics

import (
	"math"
	"time"
)

// DrawdownPeriod is one contiguous span where cumulative drawdown is
// strictly negative, bounded by zero-drawdown peaks.
type DrawdownPeriod struct {
	Start          time.Time
	Bottom         time.Time
	Recovery       *time.Time // nil if still open at series end
	Depth          float64
	TimeToRecovery *int // days, nil if Recovery is nil
	Duration       *int // days, nil if Recovery is nil
}

// DrawdownMetrics is the §4.4 "Drawdown" output block.
type DrawdownMetrics struct {
	MaxDrawdown              float64
	LongestDrawdownDuration  int
	AverageDrawdown          float64
	TimeToRecovery           float64
	AverageDrawdownDuration  float64
	CalmarRatio              float64
	Periods                  []DrawdownPeriod
}

// Drawdowns computes the cumulative-product drawdown series from
// returns.
func Drawdowns(returns []float64) []float64 {
	n := len(returns)
	dd := make([]float64, n)
	cumulative := 1.0
	cummax := math.Inf(-1)
	for i, r := range returns {
		if math.IsNaN(r) {
			r = 0
		}
		cumulative *= 1 + r
		if cumulative > cummax {
			cummax = cumulative
		}
		dd[i] = cumulative/cummax - 1
	}
	return dd
}

// longestDrawdownDuration finds the widest gap, in days, between two
// consecutive zero-drawdown peaks in dd. Unlike DrawdownPeriod.Duration
// (period start = first negative-drawdown day), this is keyed off the
// zero points themselves, one day earlier than a period's start.
func longestDrawdownDuration(dates []time.Time, dd []float64) int {
	var zeroDates []time.Time
	for i, v := range dd {
		if v == 0 {
			zeroDates = append(zeroDates, dates[i])
		}
	}
	longest := 0
	for i := 1; i < len(zeroDates); i++ {
		gap := int(zeroDates[i].Sub(zeroDates[i-1]).Hours() / 24)
		if gap > longest {
			longest = gap
		}
	}
	return longest
}

// Drawdown computes the full drawdown analysis for dates/dd (aligned,
// same length), annualizedReturn for the Calmar ratio. Only spans with
// duration >= 3 days and |depth| >= 0.05 contribute to the
// time-to-recovery and average-duration aggregates, per the distilled
// spec.
func Drawdown(dates []time.Time, dd []float64, annualizedReturn float64) DrawdownMetrics {
	n := len(dd)
	if n == 0 {
		return DrawdownMetrics{}
	}

	maxDD := 0.0
	for _, v := range dd {
		if v < maxDD {
			maxDD = v
		}
	}

	var periods []DrawdownPeriod
	inDrawdown := false
	var startIdx, bottomIdx int
	bottomVal := 0.0

	closePeriod := func(endIdx int) {
		p := DrawdownPeriod{
			Start:  dates[startIdx],
			Bottom: dates[bottomIdx],
			Depth:  bottomVal,
		}
		if endIdx >= 0 {
			rec := dates[endIdx]
			p.Recovery = &rec
			ttr := int(rec.Sub(p.Bottom).Hours() / 24)
			dur := int(rec.Sub(p.Start).Hours() / 24)
			p.TimeToRecovery = &ttr
			p.Duration = &dur
		}
		periods = append(periods, p)
	}

	for i := 0; i < n; i++ {
		if dd[i] < 0 {
			if !inDrawdown {
				inDrawdown = true
				startIdx = i
				bottomIdx = i
				bottomVal = dd[i]
			} else if dd[i] < bottomVal {
				bottomIdx = i
				bottomVal = dd[i]
			}
		} else {
			if inDrawdown {
				closePeriod(i)
				inDrawdown = false
			}
		}
	}
	if inDrawdown {
		closePeriod(-1)
	}

	var avgDrawdownSum float64
	var avgDDCount int
	for _, v := range dd {
		if v < 0 {
			avgDrawdownSum += v
			avgDDCount++
		}
	}
	avgDrawdown := 0.0
	if avgDDCount > 0 {
		avgDrawdown = avgDrawdownSum / float64(avgDDCount)
	}

	var ttrSum float64
	var ttrCount int
	var durSum float64
	var durCount int
	for _, p := range periods {
		if p.Duration != nil {
			if *p.Duration >= 3 && math.Abs(p.Depth) >= 0.05 {
				if p.TimeToRecovery != nil {
					ttrSum += float64(*p.TimeToRecovery)
					ttrCount++
				}
				durSum += float64(*p.Duration)
				durCount++
			}
		}
	}

	longestDuration := longestDrawdownDuration(dates, dd)

	avgTTR := 0.0
	if ttrCount > 0 {
		avgTTR = ttrSum / float64(ttrCount)
	}
	avgDur := 0.0
	if durCount > 0 {
		avgDur = durSum / float64(durCount)
	}

	calmar := math.NaN()
	if maxDD != 0 {
		calmar = annualizedReturn / math.Abs(maxDD)
	}

	return DrawdownMetrics{
		MaxDrawdown:             round3(maxDD),
		LongestDrawdownDuration: longestDuration,
		AverageDrawdown:         round3(avgDrawdown),
		TimeToRecovery:          round3(avgTTR),
		AverageDrawdownDuration: round3(avgDur),
		CalmarRatio:             round3(calmar),
		Periods:                 periods,
	}
}
