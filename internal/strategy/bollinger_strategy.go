package strategy

import (
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/signals"
)

// BollingerMode selects which Bollinger-band signal BollingerStrategy emits.
type BollingerMode string

const (
	BollingerModeBounce    BollingerMode = "bounce"
	BollingerModeDouble    BollingerMode = "double"
	BollingerModeWalk      BollingerMode = "walk"
	BollingerModeSqueeze   BollingerMode = "squeeze"
	BollingerModeBreakout  BollingerMode = "breakout"
	BollingerModePctB      BollingerMode = "pct_b"
)

// BollingerStrategy trades one of the Bollinger-band pattern variants.
type BollingerStrategy struct {
	dates   []time.Time
	close   []float64
	logRets []float64

	length int
	numStd float64
	mode   BollingerMode

	oversold, overbought float64
	walkLen              int
	walkTolFrac          float64
	squeezeLookback      int
	breakoutLookback     int
	doubleLookback       int

	signal []float64
}

// NewBollingerStrategy builds the strategy from a series.
func NewBollingerStrategy(s analytics.Series, length int, numStd float64, mode BollingerMode) (*BollingerStrategy, error) {
	st := &BollingerStrategy{
		dates: s.Dates, close: s.Close, logRets: s.LogRets, mode: mode,
		oversold: 0.2, overbought: 0.8,
		walkLen: 5, walkTolFrac: 0.2,
		squeezeLookback: 20, breakoutLookback: 20, doubleLookback: 20,
	}
	if err := st.ChangeParams(Params{"length": float64(length), "num_std": numStd}); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *BollingerStrategy) ChangeParams(updates Params) error {
	length, numStd := s.length, s.numStd
	if v, ok := updates["length"]; ok {
		length = int(v)
	}
	if v, ok := updates["num_std"]; ok {
		numStd = v
	}
	if length <= 0 {
		return domain.NewError(domain.ErrInvalidParameters, "length must be positive", nil)
	}
	if numStd <= 0 {
		return domain.NewError(domain.ErrInvalidParameters, "num_std must be positive", nil)
	}
	s.length, s.numStd = length, numStd
	s.recompute()
	return nil
}

func (s *BollingerStrategy) recompute() {
	upper, _, lower := talib.BBands(s.close, s.length, s.numStd, s.numStd, 0)

	var raw []float64
	switch s.mode {
	case BollingerModeDouble:
		raw = signals.BollingerDouble(s.close, upper, lower, s.doubleLookback)
	case BollingerModeWalk:
		raw = signals.BollingerWalk(s.close, upper, lower, s.walkLen, s.walkTolFrac)
	case BollingerModeSqueeze:
		raw = signals.BollingerSqueeze(upper, lower, s.squeezeLookback)
	case BollingerModeBreakout:
		momentum := talib.Mom(s.close, 10)
		raw = signals.BollingerBreakout(s.close, upper, lower, momentum, s.breakoutLookback)
	case BollingerModePctB:
		pctB := signals.PctB(s.close, upper, lower)
		raw = signals.BollingerPctBSignal(pctB, s.oversold, s.overbought)
	default:
		raw = signals.BollingerBounce(s.close, upper, lower)
	}
	s.signal = signals.Fill(raw)
}

func (s *BollingerStrategy) Signal() []float64  { return s.signal }
func (s *BollingerStrategy) Dates() []time.Time { return s.dates }

func (s *BollingerStrategy) Backtest(start, end time.Time) (BacktestResult, error) {
	startIdx, endIdx, err := dateRangeIndices(s.dates, start, end)
	if err != nil {
		return BacktestResult{}, err
	}
	return backtest(s.logRets, s.signal, startIdx, endIdx), nil
}

// Optimize grid-searches (length, num_std) pairs, restoring the
// original parameters afterward.
func (s *BollingerStrategy) Optimize(start, end time.Time) (Params, BacktestResult, error) {
	origLength, origNumStd := s.length, s.numStd
	defer func() {
		s.length, s.numStd = origLength, origNumStd
		s.recompute()
	}()

	lengthCandidates := []int{10, 20, 30}
	numStdCandidates := []float64{1.5, 2.0, 2.5}
	var bestParams Params
	var bestResult BacktestResult
	first := true

	for _, length := range lengthCandidates {
		for _, numStd := range numStdCandidates {
			if err := s.ChangeParams(Params{"length": float64(length), "num_std": numStd}); err != nil {
				continue
			}
			result, err := s.Backtest(start, end)
			if err != nil {
				continue
			}
			if first || result.StrategyReturn > bestResult.StrategyReturn {
				bestResult = result
				bestParams = Params{"length": float64(length), "num_std": numStd}
				first = false
			}
		}
	}
	if first {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize found no valid parameter combination", nil)
	}
	return bestParams, bestResult, nil
}
