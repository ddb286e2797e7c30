package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/signals"
)

func day(n int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func makeSeries(close []float64) analytics.Series {
	n := len(close)
	dates := make([]time.Time, n)
	logRets := make([]float64, n)
	logRets[0] = math.NaN()
	for i := 0; i < n; i++ {
		dates[i] = day(i)
		if i > 0 {
			logRets[i] = math.Log(close[i] / close[i-1])
		}
	}
	return analytics.Series{Dates: dates, Close: close, AdjClose: close, LogRets: logRets}
}

// TestBacktestIdentityForConstantSignal mirrors scenario 5: a constant
// +1 signal must yield strategyReturn == holdReturn and net == 0.
func TestBacktestIdentityForConstantSignal(t *testing.T) {
	close := []float64{100, 101, 99, 103, 105, 104, 110}
	s := makeSeries(close)
	signal := make([]float64, len(close))
	for i := range signal {
		signal[i] = 1
	}
	result := backtest(s.LogRets, signal, 0, len(close)-1)
	assert.InDelta(t, result.HoldReturn, result.StrategyReturn, 1e-12)
	assert.InDelta(t, 0, result.Net, 1e-12)
}

func makeTrendingCloses(n int, up bool) []float64 {
	close := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		close[i] = price
		if up {
			price *= 1.01
		} else {
			price *= 0.99
		}
	}
	return close
}

func TestMACrossoverChangeParamsValidation(t *testing.T) {
	s := makeSeries(makeTrendingCloses(60, true))
	strat, err := NewMACrossoverStrategy(s, 5, 20)
	require.NoError(t, err)

	err = strat.ChangeParams(Params{"short": 20, "long": 5})
	assert.Error(t, err)

	err = strat.ChangeParams(Params{"short": 0, "long": 10})
	assert.Error(t, err)
}

func TestMACrossoverOptimizeRestoresOriginalParams(t *testing.T) {
	s := makeSeries(makeTrendingCloses(250, true))
	strat, err := NewMACrossoverStrategy(s, 5, 20)
	require.NoError(t, err)

	_, _, err = strat.Optimize(s.Dates[0], s.Dates[len(s.Dates)-1])
	require.NoError(t, err)
	assert.Equal(t, 5, strat.short)
	assert.Equal(t, 20, strat.long)
}

// TestRSICrossoverReentryScenario mirrors scenario 3: RSI enters above
// ub then crosses back down (short), later crosses back up through lb
// (long).
func TestRSICrossoverReentryScenario(t *testing.T) {
	rsi := []float64{50, 75, 80, 68, 25, 35}
	out := signals.RSICrossover(rsi, signals.RSICrossoverParams{Mode: signals.RSIReentry, UpperBound: 70, LowerBound: 30})
	firstSignalIdx := -1
	for i, v := range out {
		if !math.IsNaN(v) {
			firstSignalIdx = i
			break
		}
	}
	require.NotEqual(t, -1, firstSignalIdx)
	assert.Equal(t, -1.0, out[firstSignalIdx])

	longIdx := -1
	for i := firstSignalIdx + 1; i < len(out); i++ {
		if out[i] == 1 {
			longIdx = i
			break
		}
	}
	require.NotEqual(t, -1, longIdx)
}

func TestCombinedStrategyVotesChildren(t *testing.T) {
	s := makeSeries(makeTrendingCloses(100, true))
	ma, err := NewMACrossoverStrategy(s, 5, 20)
	require.NoError(t, err)
	rsi, err := NewRSICrossoverStrategy(s, 14, signals.RSIExit, 70, 30)
	require.NoError(t, err)

	combined, err := NewCombinedStrategy(s.LogRets, []Strategy{ma, rsi}, []float64{0.5, 0.5}, signals.CombineMajority, 0)
	require.NoError(t, err)

	for _, v := range combined.Signal() {
		assert.True(t, v == 1 || v == -1)
	}

	result, err := combined.Backtest(s.Dates[0], s.Dates[len(s.Dates)-1])
	require.NoError(t, err)
	assert.False(t, math.IsNaN(result.Net))
}

func TestCombinedStrategyOptimizeWeightsAppliesBest(t *testing.T) {
	s := makeSeries(makeTrendingCloses(120, true))
	ma, err := NewMACrossoverStrategy(s, 5, 20)
	require.NoError(t, err)
	bol, err := NewBollingerStrategy(s, 20, 2.0, BollingerModePctB)
	require.NoError(t, err)

	combined, err := NewCombinedStrategy(s.LogRets, []Strategy{ma, bol}, []float64{0.5, 0.5}, signals.CombineWeighted, 0.1)
	require.NoError(t, err)

	params, result, err := combined.OptimizeWeights(s.Dates[0], s.Dates[len(s.Dates)-1], 20)
	require.NoError(t, err)
	assert.Contains(t, params, "threshold")
	assert.False(t, math.IsNaN(result.StrategyReturn))

	sum := 0.0
	for _, w := range combined.weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
