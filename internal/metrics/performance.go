package metrics

import "math"

// PerformanceMetrics is the §4.4 "Performance" output block.
type PerformanceMetrics struct {
	AnnualizedReturn float64
	TotalReturn      float64
	TradingReturn    float64
}

// Performance computes PerformanceMetrics from tar and the realized
// trading PnL / sum(shares*cost_basis) needed for the trading return.
func Performance(tar *TimeAlignedReturns, tradingPnl, costBasisExposure float64) PerformanceMetrics {
	if len(tar.Returns) == 0 {
		return PerformanceMetrics{}
	}
	mean, _ := meanStdClean(tar.Returns)
	annualizedReturn := math.Pow(1+mean, tar.AnnFactor) - 1

	var logSum float64
	for _, v := range tar.LogReturns {
		if !math.IsNaN(v) {
			logSum += v
		}
	}
	totalReturn := math.Exp(logSum) - 1

	tradingReturn := math.NaN()
	if costBasisExposure != 0 {
		tradingReturn = tradingPnl / costBasisExposure
	}

	return PerformanceMetrics{
		AnnualizedReturn: round3(annualizedReturn),
		TotalReturn:      round3(totalReturn),
		TradingReturn:    round3(tradingReturn),
	}
}
