package strategy

import (
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/signals"
)

// RSICrossoverStrategy trades RSI reentry/exit crossovers of configurable
// bounds, with an optional mean-reversion reinterpretation of shorts.
type RSICrossoverStrategy struct {
	dates   []time.Time
	close   []float64
	logRets []float64

	length                   int
	mode                     signals.RSIMode
	upperBound, lowerBound   float64
	meanReversion            bool
	mRevBound                float64

	signal []float64
}

// NewRSICrossoverStrategy builds the strategy from a series.
func NewRSICrossoverStrategy(s analytics.Series, length int, mode signals.RSIMode, ub, lb float64) (*RSICrossoverStrategy, error) {
	st := &RSICrossoverStrategy{dates: s.Dates, close: s.Close, logRets: s.LogRets}
	if err := st.ChangeParams(Params{
		"length": float64(length),
		"ub":     ub,
		"lb":     lb,
	}); err != nil {
		return nil, err
	}
	st.mode = mode
	st.recompute()
	return st, nil
}

func (s *RSICrossoverStrategy) ChangeParams(updates Params) error {
	length, ub, lb := s.length, s.upperBound, s.lowerBound
	mRevBound := s.mRevBound
	meanReversion := s.meanReversion

	if v, ok := updates["length"]; ok {
		length = int(v)
	}
	if v, ok := updates["ub"]; ok {
		ub = v
	}
	if v, ok := updates["lb"]; ok {
		lb = v
	}
	if v, ok := updates["mean_reversion_bound"]; ok {
		mRevBound = v
	}
	if v, ok := updates["mean_reversion"]; ok {
		meanReversion = v != 0
	}
	if length <= 0 {
		return domain.NewError(domain.ErrInvalidParameters, "length must be positive", nil)
	}
	if ub <= lb {
		return domain.NewError(domain.ErrInvalidParameters, "upper bound must exceed lower bound", nil)
	}
	s.length, s.upperBound, s.lowerBound = length, ub, lb
	s.mRevBound, s.meanReversion = mRevBound, meanReversion
	s.recompute()
	return nil
}

func (s *RSICrossoverStrategy) recompute() {
	rsi := talib.Rsi(s.close, s.length)
	s.signal = signals.Fill(signals.RSICrossover(rsi, signals.RSICrossoverParams{
		Mode:          s.mode,
		UpperBound:    s.upperBound,
		LowerBound:    s.lowerBound,
		MeanReversion: s.meanReversion,
		MRevBound:     s.mRevBound,
	}))
}

func (s *RSICrossoverStrategy) Signal() []float64  { return s.signal }
func (s *RSICrossoverStrategy) Dates() []time.Time { return s.dates }

func (s *RSICrossoverStrategy) Backtest(start, end time.Time) (BacktestResult, error) {
	startIdx, endIdx, err := dateRangeIndices(s.dates, start, end)
	if err != nil {
		return BacktestResult{}, err
	}
	return backtest(s.logRets, s.signal, startIdx, endIdx), nil
}

// Optimize grid-searches (ub, lb) pairs with ub > lb, restoring the
// original bounds once the search completes.
func (s *RSICrossoverStrategy) Optimize(start, end time.Time) (Params, BacktestResult, error) {
	origUB, origLB := s.upperBound, s.lowerBound
	defer func() {
		s.upperBound, s.lowerBound = origUB, origLB
		s.recompute()
	}()

	ubCandidates := []float64{60, 65, 70, 75, 80}
	lbCandidates := []float64{15, 20, 25, 30, 35, 40}
	var bestParams Params
	var bestResult BacktestResult
	first := true

	for _, ub := range ubCandidates {
		for _, lb := range lbCandidates {
			if ub <= lb {
				continue
			}
			if err := s.ChangeParams(Params{"ub": ub, "lb": lb}); err != nil {
				continue
			}
			result, err := s.Backtest(start, end)
			if err != nil {
				continue
			}
			if first || result.StrategyReturn > bestResult.StrategyReturn {
				bestResult = result
				bestParams = Params{"ub": ub, "lb": lb}
				first = false
			}
		}
	}
	if first {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize found no valid parameter combination", nil)
	}
	return bestParams, bestResult, nil
}
