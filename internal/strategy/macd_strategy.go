package strategy

import (
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/signals"
)

// MACDMode selects which MACD-histogram signal MACDStrategy emits.
type MACDMode string

const (
	MACDModeMomentum MACDMode = "momentum"
	MACDModeDouble   MACDMode = "double"
)

// MACDStrategy trades MACD histogram momentum reversals or double-top/
// bottom patterns.
type MACDStrategy struct {
	dates   []time.Time
	close   []float64
	logRets []float64

	fast, slow, signalPeriod int
	mode                     MACDMode
	prominenceFrac           float64
	minDistance              int

	signal []float64
}

// NewMACDStrategy builds the strategy from a series.
func NewMACDStrategy(s analytics.Series, fast, slow, signalPeriod int, mode MACDMode) (*MACDStrategy, error) {
	st := &MACDStrategy{
		dates: s.Dates, close: s.Close, logRets: s.LogRets,
		mode: mode, prominenceFrac: 0.1, minDistance: 3,
	}
	if err := st.ChangeParams(Params{
		"fast": float64(fast), "slow": float64(slow), "signal": float64(signalPeriod),
	}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *MACDStrategy) ChangeParams(updates Params) error {
	fast, slow, signalPeriod := s.fast, s.slow, s.signalPeriod
	if v, ok := updates["fast"]; ok {
		fast = int(v)
	}
	if v, ok := updates["slow"]; ok {
		slow = int(v)
	}
	if v, ok := updates["signal"]; ok {
		signalPeriod = int(v)
	}
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 {
		return domain.NewError(domain.ErrInvalidParameters, "periods must be positive", nil)
	}
	if fast >= slow {
		return domain.NewError(domain.ErrInvalidParameters, "fast period must be less than slow period", nil)
	}
	s.fast, s.slow, s.signalPeriod = fast, slow, signalPeriod
	s.recompute()
	return nil
}

func (s *MACDStrategy) recompute() {
	_, _, histogram := talib.Macd(s.close, s.fast, s.slow, s.signalPeriod)
	var raw []float64
	if s.mode == MACDModeDouble {
		raw = signals.MACDDouble(histogram, s.prominenceFrac, s.minDistance)
	} else {
		raw = signals.MACDMomentum(histogram)
	}
	s.signal = signals.Fill(raw)
}

func (s *MACDStrategy) Signal() []float64  { return s.signal }
func (s *MACDStrategy) Dates() []time.Time { return s.dates }

func (s *MACDStrategy) Backtest(start, end time.Time) (BacktestResult, error) {
	startIdx, endIdx, err := dateRangeIndices(s.dates, start, end)
	if err != nil {
		return BacktestResult{}, err
	}
	return backtest(s.logRets, s.signal, startIdx, endIdx), nil
}

// Optimize grid-searches (fast, slow) period pairs at a fixed signal
// period, restoring the original parameters afterward.
func (s *MACDStrategy) Optimize(start, end time.Time) (Params, BacktestResult, error) {
	origFast, origSlow, origSignal := s.fast, s.slow, s.signalPeriod
	defer func() {
		s.fast, s.slow, s.signalPeriod = origFast, origSlow, origSignal
		s.recompute()
	}()

	fastCandidates := []int{8, 12, 16}
	slowCandidates := []int{20, 26, 35}
	signalCandidates := []int{7, 9, 12}
	var bestParams Params
	var bestResult BacktestResult
	first := true

	for _, fast := range fastCandidates {
		for _, slow := range slowCandidates {
			if fast >= slow {
				continue
			}
			for _, sig := range signalCandidates {
				if err := s.ChangeParams(Params{"fast": float64(fast), "slow": float64(slow), "signal": float64(sig)}); err != nil {
					continue
				}
				result, err := s.Backtest(start, end)
				if err != nil {
					continue
				}
				if first || result.StrategyReturn > bestResult.StrategyReturn {
					bestResult = result
					bestParams = Params{"fast": float64(fast), "slow": float64(slow), "signal": float64(sig)}
					first = false
				}
			}
		}
	}
	if first {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize found no valid parameter combination", nil)
	}
	return bestParams, bestResult, nil
}
