// Package strategy implements the strategy engine (C8): parameterized
// indicator strategies with per-bar backtesting and parameter/weight
// optimization, built on top of the signal engine (C7).
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/finsight/internal/domain"
)

// Params is a named set of strategy parameters used by ChangeParams.
type Params map[string]float64

// Strategy is the common contract every indicator strategy and the
// combined strategy implement.
type Strategy interface {
	// ChangeParams validates and applies updates, recomputing indicators
	// and the signal column.
	ChangeParams(updates Params) error
	// Signal returns the forward-filled ±1 signal series aligned to Dates.
	Signal() []float64
	// Dates returns the strategy's date index.
	Dates() []time.Time
	// Backtest simulates per-bar equity over [start, end].
	Backtest(start, end time.Time) (BacktestResult, error)
	// Optimize grid/coordinate searches the parameter space, restoring
	// the strategy's original parameters once the search completes.
	Optimize(start, end time.Time) (Params, BacktestResult, error)
}

// BacktestResult is the outcome of simulating a strategy's signal
// against a held-asset baseline over a date range.
type BacktestResult struct {
	HoldReturn     float64
	StrategyReturn float64
	Net            float64
}

// backtest simulates per-bar equity of $1 using logRets[i] * priorSignal[i]
// over the closed index range [startIdx, endIdx], where priorSignal[i] is
// signal[i-1] (the signal known at the start of bar i), with bar 0
// using signal[0] itself (no earlier bar to look back to).
func backtest(logRets, signal []float64, startIdx, endIdx int) BacktestResult {
	var holdSum, stratSum float64
	for i := startIdx; i <= endIdx; i++ {
		r := logRets[i]
		if math.IsNaN(r) {
			continue
		}
		holdSum += r
		prior := signal[0]
		if i > 0 {
			prior = signal[i-1]
		}
		stratSum += r * prior
	}
	hold := math.Exp(holdSum) - 1
	strat := math.Exp(stratSum) - 1
	return BacktestResult{HoldReturn: hold, StrategyReturn: strat, Net: strat - hold}
}

// dateRangeIndices returns the first and last index in dates whose
// value falls within [start, end] inclusive.
func dateRangeIndices(dates []time.Time, start, end time.Time) (int, int, error) {
	startIdx, endIdx := -1, -1
	for i, d := range dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		if startIdx == -1 {
			startIdx = i
		}
		endIdx = i
	}
	if startIdx == -1 {
		return 0, 0, domain.NewError(domain.ErrInvalidParameters, fmt.Sprintf("no bars in range %s to %s", start, end), nil)
	}
	return startIdx, endIdx, nil
}
