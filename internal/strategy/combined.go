package strategy

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/signals"
)

// CombinedStrategy votes across a set of child strategies, each with its
// own weight, using the signal engine's weighted voting rule.
type CombinedStrategy struct {
	dates    []time.Time
	logRets  []float64
	children []Strategy
	weights  []float64
	method   signals.CombineMethod
	threshold float64

	signal []float64
}

// NewCombinedStrategy builds a combined strategy from children sharing
// the same date index, each given an initial weight.
func NewCombinedStrategy(logRets []float64, children []Strategy, weights []float64, method signals.CombineMethod, threshold float64) (*CombinedStrategy, error) {
	if len(children) == 0 {
		return nil, domain.NewError(domain.ErrInvalidParameters, "combined strategy requires at least one child", nil)
	}
	if len(weights) != len(children) {
		return nil, domain.NewError(domain.ErrInvalidParameters, "weights must match child count", nil)
	}
	c := &CombinedStrategy{
		dates:     children[0].Dates(),
		logRets:   logRets,
		children:  children,
		weights:   append([]float64(nil), weights...),
		method:    method,
		threshold: threshold,
	}
	c.recompute()
	return c, nil
}

// AddChild appends a new child strategy with the given weight.
func (c *CombinedStrategy) AddChild(child Strategy, weight float64) {
	c.children = append(c.children, child)
	c.weights = append(c.weights, weight)
	c.recompute()
}

// RemoveChild drops the child at index i.
func (c *CombinedStrategy) RemoveChild(i int) {
	if i < 0 || i >= len(c.children) {
		return
	}
	c.children = append(c.children[:i], c.children[i+1:]...)
	c.weights = append(c.weights[:i], c.weights[i+1:]...)
	c.recompute()
}

func (c *CombinedStrategy) recompute() {
	sigs := make([][]float64, len(c.children))
	for i, child := range c.children {
		sigs[i] = child.Signal()
	}
	c.signal = signals.Fill(signals.Vote(c.method, sigs, c.weights, c.threshold))
}

// ChangeParams updates the vote threshold (key "threshold") and, when
// present, reweights children via keys "weight_0", "weight_1", ...
func (c *CombinedStrategy) ChangeParams(updates Params) error {
	threshold := c.threshold
	weights := append([]float64(nil), c.weights...)
	if v, ok := updates["threshold"]; ok {
		if v < 0 || v > 1 {
			return domain.NewError(domain.ErrInvalidParameters, "threshold must be in [0, 1]", nil)
		}
		threshold = v
	}
	for i := range weights {
		if v, ok := updates[weightKey(i)]; ok {
			weights[i] = v
		}
	}
	c.threshold, c.weights = threshold, weights
	c.recompute()
	return nil
}

func (c *CombinedStrategy) Signal() []float64  { return c.signal }
func (c *CombinedStrategy) Dates() []time.Time { return c.dates }

func (c *CombinedStrategy) Backtest(start, end time.Time) (BacktestResult, error) {
	startIdx, endIdx, err := dateRangeIndices(c.dates, start, end)
	if err != nil {
		return BacktestResult{}, err
	}
	return backtest(c.logRets, c.signal, startIdx, endIdx), nil
}

// thresholdCandidates are the vote-threshold grid points Optimize
// searches over, matching the [0, 1] range ChangeParams accepts.
var thresholdCandidates = []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// Optimize grid-searches the vote threshold over thresholdCandidates,
// restoring the original threshold afterward. Child weights are left
// untouched; reweighting is OptimizeWeights' job.
func (c *CombinedStrategy) Optimize(start, end time.Time) (Params, BacktestResult, error) {
	origThreshold := c.threshold
	defer func() {
		c.threshold = origThreshold
		c.recompute()
	}()

	var bestParams Params
	var bestResult BacktestResult
	first := true

	for _, threshold := range thresholdCandidates {
		if err := c.ChangeParams(Params{"threshold": threshold}); err != nil {
			continue
		}
		result, err := c.Backtest(start, end)
		if err != nil {
			continue
		}
		if first || result.StrategyReturn > bestResult.StrategyReturn {
			bestResult = result
			bestParams = Params{"threshold": threshold}
			first = false
		}
	}
	if first {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize found no valid parameter combination", nil)
	}
	return bestParams, bestResult, nil
}

// OptimizeWeights samples `runs` random weight vectors on the simplex
// plus a random threshold in [0, 1], keeping the combination that
// maximizes strategyReturn over [start, end]. The winning weights and
// threshold are applied to the strategy.
func (c *CombinedStrategy) OptimizeWeights(start, end time.Time, runs int) (Params, BacktestResult, error) {
	if runs <= 0 {
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "runs must be positive", nil)
	}
	n := len(c.children)
	origWeights := append([]float64(nil), c.weights...)
	origThreshold := c.threshold

	var bestWeights []float64
	var bestThreshold float64
	var bestResult BacktestResult
	first := true

	for run := 0; run < runs; run++ {
		w := randomSimplex(n)
		threshold := rand.Float64()
		c.weights = w
		c.threshold = threshold
		c.recompute()

		result, err := c.Backtest(start, end)
		if err != nil {
			continue
		}
		if first || result.StrategyReturn > bestResult.StrategyReturn {
			bestResult = result
			bestWeights = append([]float64(nil), w...)
			bestThreshold = threshold
			first = false
		}
	}

	if first {
		c.weights, c.threshold = origWeights, origThreshold
		c.recompute()
		return nil, BacktestResult{}, domain.NewError(domain.ErrInvalidParameters, "optimize weights found no valid run", nil)
	}

	c.weights, c.threshold = bestWeights, bestThreshold
	c.recompute()

	params := Params{"threshold": bestThreshold}
	for i, w := range bestWeights {
		params[weightKey(i)] = w
	}
	return params, bestResult, nil
}

// randomSimplex draws a uniform random point on the n-dimensional
// probability simplex via normalized exponential sampling.
func randomSimplex(n int) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		x := rand.Float64()
		if x <= 0 {
			x = 1e-12
		}
		w[i] = -math.Log(x)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func weightKey(i int) string {
	return "weight_" + strconv.Itoa(i)
}
