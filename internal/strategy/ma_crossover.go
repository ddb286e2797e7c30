package strategy

import (
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/signals"
)

// MACrossoverStrategy trades the crossover of a short- and long-window
// simple moving average of close price.
type MACrossoverStrategy struct {
	dates   []time.Time
	close   []float64
	logRets []float64

	short, long int
	signal      []float64
}

// NewMACrossoverStrategy builds a strategy from a series, validating the
// initial window parameters.
func NewMACrossoverStrategy(s analytics.Series, short, long int) (*MACrossoverStrategy, error) {
	st := &MACrossoverStrategy{dates: s.Dates, close: s.Close, logRets: s.LogRets}
	if err := st.ChangeParams(Params{"short": float64(short), "long": float64(long)}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *MACrossoverStrategy) ChangeParams(updates Params) error {
	short, long := s.short, s.long
	if v, ok := updates["short"]; ok {
		short = int(v)
	}
	if v, ok := updates["long"]; ok {
		long = int(v)
	}
	if short <= 0 || long <= 0 {
		return domain.NewError(domain.ErrInvalidParameters, "windows must be positive", nil)
	}
	if short >= long {
		return domain.NewError(domain.ErrInvalidParameters, "short window must be less than long window", nil)
	}
	s.short, s.long = short, long
	s.recompute()
	return nil
}

func (s *MACrossoverStrategy) recompute() {
	shortMA := talib.Sma(s.close, s.short)
	longMA := talib.Sma(s.close, s.long)
	s.signal = signals.Fill(signals.MACrossover(shortMA, longMA))
}

func (s *MACrossoverStrategy) Signal() []float64     { return s.signal }
func (s *MACrossoverStrategy) Dates() []time.Time    { return s.dates }

func (s *MACrossoverStrategy) Backtest(start, end time.Time) (BacktestResult, error) {
	startIdx, endIdx, err := dateRangeIndices(s.dates, start, end)
	if err != nil {
		return BacktestResult{}, err
	}
	return backtest(s.logRets, s.signal, startIdx, endIdx), nil
}

// Optimize grid-searches (short, long) pairs with short < long over a
// fixed candidate set, restoring the original parameters afterward.
func (s *MACrossoverStrategy) Optimize(start, end time.Time) (Params, BacktestResult, error) {
	origShort, origLong := s.short, s.long
	defer func() {
		s.short, s.long = origShort, origLong
		s.recompute()
	}()

	candidates := []int{5, 10, 20, 30, 50, 100, 200}
	var bestParams Params
	var bestResult BacktestResult
	first := true

	for _, short := range candidates {
		for _, long := range candidates {
			if short >= long {
				continue
			}
			if err := s.ChangeParams(Params{"short": float64(short), "long": float64(long)}); err != nil {
				continue
			}
			result, err := s.Backtest(start, end)
			if err != nil {
				continue
			}
			if first || result.StrategyReturn > bestResult.StrategyReturn {
				bestResult = result
				bestParams = Params{"short": float64(short), "long": float64(long)}
				first = false
			}
		}
	}
	if first {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize found no valid parameter combination", nil)
	}
	return bestParams, bestResult, nil
}
