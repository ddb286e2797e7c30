package metrics

import (
	"math"

	"github.com/aristath/finsight/internal/analytics"
)

// RiskMetrics is the §4.4 "Risk" output block.
type RiskMetrics struct {
	Volatility       float64
	Sharpe           float64
	DownsideDev      float64
	Sortino          float64
	VaR              float64
	TrackingError    float64
	InformationRatio float64
	Beta             float64
	Treynor          float64
}

// Risk computes RiskMetrics from tar (the portfolio's time-aligned
// returns), the reference market's daily returns aligned to the same
// dates, the risk-free rate, the current portfolio value, and VaR
// confidence alpha (default 0.95 when zero).
func Risk(tar *TimeAlignedReturns, marketReturns []float64, r, currentValue, alpha, beta float64) RiskMetrics {
	if alpha == 0 {
		alpha = 0.95
	}
	n := len(tar.Returns)
	if n == 0 {
		return RiskMetrics{}
	}

	mean, std := meanStdClean(tar.Returns)
	volatility := std * math.Sqrt(tar.AnnFactor)

	excessMean := mean - r/tar.AnnFactor
	sharpe := math.NaN()
	if volatility != 0 {
		sharpe = (excessMean * tar.AnnFactor) / volatility
	}

	downsideSumSq := 0.0
	downsideN := 0
	for _, v := range tar.Returns {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 {
			downsideSumSq += v * v
		}
		downsideN++
	}
	downsideDev := math.NaN()
	if downsideN > 0 {
		downsideDev = math.Sqrt(downsideSumSq / float64(downsideN))
	}
	sortino := math.NaN()
	if downsideDev != 0 && !math.IsNaN(downsideDev) {
		sortino = (excessMean * tar.AnnFactor) / (downsideDev * math.Sqrt(tar.AnnFactor))
	}

	vaR := math.Abs(analytics.Quantile(tar.Returns, 1-alpha)) * currentValue

	var trackingError, informationRatio float64
	if len(marketReturns) == n {
		diff := make([]float64, n)
		for i := range diff {
			diff[i] = tar.Returns[i] - marketReturns[i]
		}
		_, diffStd := meanStdClean(diff)
		trackingError = diffStd
		diffMean, _ := meanStdClean(diff)
		if trackingError != 0 {
			informationRatio = diffMean / trackingError
		} else {
			informationRatio = math.NaN()
		}
	}

	treynor := math.NaN()
	if beta != 0 {
		treynor = (excessMean * tar.AnnFactor) / beta
	}

	return RiskMetrics{
		Volatility:       round3(volatility),
		Sharpe:           round3(sharpe),
		DownsideDev:      round3(downsideDev),
		Sortino:          round3(sortino),
		VaR:              round2(vaR),
		TrackingError:    round3(trackingError),
		InformationRatio: round3(informationRatio),
		Beta:             round3(beta),
		Treynor:          round3(treynor),
	}
}

// Beta computes portfolio beta as the holdings-weighted average of
// per-asset betas against the reference market, each asset's beta
// estimated via monthly-resampled log-return covariance/variance.
func Beta(weights map[string]float64, assetMonthlyLogReturns map[string][]float64, marketMonthlyLogReturns []float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return 0
	}
	betaSum := 0.0
	for ticker, w := range weights {
		assetRets, ok := assetMonthlyLogReturns[ticker]
		if !ok {
			continue
		}
		b := regressionBeta(assetRets, marketMonthlyLogReturns)
		betaSum += w * b
	}
	return betaSum / total
}

func regressionBeta(y, x []float64) float64 {
	n := len(y)
	if len(x) < n {
		n = len(x)
	}
	if n < 2 {
		return 0
	}
	y = y[:n]
	x = x[:n]
	meanY, _ := meanStdClean(y)
	meanX, _ := meanStdClean(x)
	var cov, varX float64
	count := 0
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		count++
	}
	if count < 2 || varX == 0 {
		return 0
	}
	return cov / varX
}

func meanStdClean(x []float64) (float64, float64) {
	n := 0
	sum := 0.0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean := sum / float64(n)
	var sqsum float64
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sqsum += d * d
	}
	variance := 0.0
	if n > 1 {
		variance = sqsum / float64(n-1)
	}
	return mean, math.Sqrt(variance)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
