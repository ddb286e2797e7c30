// Package optimize implements mean-variance portfolio optimization
// (C9): optimal-Sharpe, min-volatility, efficient-return, efficient-risk
// points and efficient-frontier construction under box constraints.
package optimize

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Constraints holds per-ticker box constraints on portfolio weight.
type Constraints struct {
	MinWeight map[string]float64
	MaxWeight map[string]float64
}

func (c Constraints) bounds(ticker string) (lo, hi float64) {
	lo, hi = 0, 1
	if c.MinWeight != nil {
		if v, ok := c.MinWeight[ticker]; ok {
			lo = v
		}
	}
	if c.MaxWeight != nil {
		if v, ok := c.MaxWeight[ticker]; ok {
			hi = v
		}
	}
	return lo, hi
}

// Result is a single optimized portfolio point.
type Result struct {
	Weights    map[string]float64
	Return     float64
	Volatility float64
	Sharpe     float64
}

// FrontierPoint is one point on the efficient frontier.
type FrontierPoint struct {
	Return     float64
	Volatility float64
	Sharpe     float64
	Weights    map[string]float64
}

const penaltyWeight = 1000.0

// Optimizer performs mean-variance optimization over a set of tickers.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer builds an Optimizer with a component-scoped logger.
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{log: log.With().Str("component", "optimize").Logger()}
}

func projectToBounds(x []float64, tickers []string, c Constraints) []float64 {
	proj := make([]float64, len(x))
	for i, t := range tickers {
		lo, hi := c.bounds(t)
		proj[i] = math.Max(lo, math.Min(hi, x[i]))
	}
	return proj
}

func portfolioReturn(w, mu []float64) float64 {
	var r float64
	for i := range w {
		r += w[i] * mu[i]
	}
	return r
}

func portfolioVariance(w []float64, sigma *mat.Dense) float64 {
	n := len(w)
	var v float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v += w[i] * w[j] * sigma.At(i, j)
		}
	}
	return v
}

func initialWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func minimize(problem optimize.Problem, initial []float64) (*optimize.Result, error) {
	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err == nil && successStatuses[result.Status] {
		return result, nil
	}

	result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	if !successStatuses[result.Status] {
		return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
	}
	return result, nil
}

func finalize(x []float64, tickers []string, mu []float64, sigma *mat.Dense, c Constraints, riskFree float64) Result {
	xProj := projectToBounds(x, tickers, c)
	sum := 0.0
	for _, v := range xProj {
		sum += math.Max(0, v)
	}
	if sum <= 0 {
		sum = 1e-10
	}

	weights := make(map[string]float64, len(tickers))
	w := make([]float64, len(tickers))
	for i, t := range tickers {
		v := math.Max(0, xProj[i]) / sum
		weights[t] = v
		w[i] = v
	}

	ret := portfolioReturn(w, mu)
	variance := portfolioVariance(w, sigma)
	vol := math.Sqrt(math.Max(variance, 0))
	sharpe := 0.0
	if vol > 1e-12 {
		sharpe = (ret - riskFree) / vol
	}
	return Result{Weights: weights, Return: ret, Volatility: vol, Sharpe: sharpe}
}

// OptimalSharpe maximizes (w'mu - riskFree) / sqrt(w'Sigma w).
func (o *Optimizer) OptimalSharpe(tickers []string, mu []float64, sigma *mat.Dense, riskFree float64, c Constraints) (Result, error) {
	n := len(tickers)
	if n == 0 {
		return Result{}, fmt.Errorf("no tickers provided")
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBounds(x, tickers, c)
			ret := portfolioReturn(xProj, mu)
			variance := portfolioVariance(xProj, sigma)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			obj := -(ret - riskFree) / stdDev
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			return obj
		},
	}
	result, err := minimize(problem, initialWeights(n))
	if err != nil {
		return Result{}, err
	}
	return finalize(result.X, tickers, mu, sigma, c, riskFree), nil
}

// MinVolatility minimizes w'Sigma w subject to the box constraints.
func (o *Optimizer) MinVolatility(tickers []string, mu []float64, sigma *mat.Dense, riskFree float64, c Constraints) (Result, error) {
	n := len(tickers)
	if n == 0 {
		return Result{}, fmt.Errorf("no tickers provided")
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBounds(x, tickers, c)
			variance := portfolioVariance(xProj, sigma)
			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			return variance + penaltyWeight*(sum-1.0)*(sum-1.0)
		},
	}
	result, err := minimize(problem, initialWeights(n))
	if err != nil {
		return Result{}, err
	}
	return finalize(result.X, tickers, mu, sigma, c, riskFree), nil
}

// EfficientReturn minimizes variance subject to a target expected return.
func (o *Optimizer) EfficientReturn(tickers []string, mu []float64, sigma *mat.Dense, riskFree, targetReturn float64, c Constraints) (Result, error) {
	n := len(tickers)
	if n == 0 {
		return Result{}, fmt.Errorf("no tickers provided")
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBounds(x, tickers, c)
			variance := portfolioVariance(xProj, sigma)
			ret := portfolioReturn(xProj, mu)
			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			obj := variance
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += penaltyWeight * (ret - targetReturn) * (ret - targetReturn)
			return obj
		},
	}
	result, err := minimize(problem, initialWeights(n))
	if err != nil {
		return Result{}, err
	}
	return finalize(result.X, tickers, mu, sigma, c, riskFree), nil
}

// EfficientRisk maximizes expected return subject to a target volatility.
func (o *Optimizer) EfficientRisk(tickers []string, mu []float64, sigma *mat.Dense, riskFree, targetVolatility float64, c Constraints) (Result, error) {
	n := len(tickers)
	if n == 0 {
		return Result{}, fmt.Errorf("no tickers provided")
	}
	targetVariance := targetVolatility * targetVolatility
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := projectToBounds(x, tickers, c)
			ret := portfolioReturn(xProj, mu)
			variance := portfolioVariance(xProj, sigma)
			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			obj := -ret
			obj += penaltyWeight * (sum - 1.0) * (sum - 1.0)
			obj += penaltyWeight * (variance - targetVariance) * (variance - targetVariance)
			return obj
		},
	}
	result, err := minimize(problem, initialWeights(n))
	if err != nil {
		return Result{}, err
	}
	return finalize(result.X, tickers, mu, sigma, c, riskFree), nil
}

// EfficientFrontier builds `points` evenly spaced target returns between
// the min-variance portfolio's return and the maximum attainable return
// (the highest-mu asset's return under the constraints), minimizing
// variance at each, and returns them sorted by return.
func (o *Optimizer) EfficientFrontier(tickers []string, mu []float64, sigma *mat.Dense, riskFree float64, c Constraints, points int) ([]FrontierPoint, error) {
	if points < 2 {
		points = 2
	}
	minVarResult, err := o.MinVolatility(tickers, mu, sigma, riskFree, c)
	if err != nil {
		return nil, fmt.Errorf("efficient frontier: min-variance anchor failed: %w", err)
	}
	maxReturn := math.Inf(-1)
	for _, m := range mu {
		if m > maxReturn {
			maxReturn = m
		}
	}
	lowReturn := minVarResult.Return
	if maxReturn < lowReturn {
		maxReturn = lowReturn
	}

	frontier := make([]FrontierPoint, 0, points)
	step := (maxReturn - lowReturn) / float64(points-1)
	for i := 0; i < points; i++ {
		target := lowReturn + step*float64(i)
		res, err := o.EfficientReturn(tickers, mu, sigma, riskFree, target, c)
		if err != nil {
			o.log.Warn().Err(err).Float64("target_return", target).Msg("efficient frontier point failed, skipping")
			continue
		}
		frontier = append(frontier, FrontierPoint{
			Return:     res.Return,
			Volatility: res.Volatility,
			Sharpe:     res.Sharpe,
			Weights:    res.Weights,
		})
	}

	sort.Slice(frontier, func(i, j int) bool { return frontier[i].Return < frontier[j].Return })
	return frontier, nil
}

// CovarianceMatrix builds an annualized covariance matrix from aligned
// per-asset daily log-return series, ordered as tickers.
func CovarianceMatrix(returns [][]float64, annFactor float64) *mat.Dense {
	n := len(returns)
	sigma := mat.NewDense(n, n, nil)
	means := make([]float64, n)
	for i, r := range returns {
		means[i] = mean(r)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sigma.Set(i, j, covariance(returns[i], returns[j], means[i], means[j])*annFactor)
		}
	}
	return sigma
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

func covariance(a, b []float64, meanA, meanB float64) float64 {
	n := len(a)
	if n > len(b) {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		s += (a[i] - meanA) * (b[i] - meanB)
	}
	return s / float64(n-1)
}
