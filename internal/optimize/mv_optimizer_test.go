package optimize

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestMinVolatilityWeightsSumToOneAndRespectBounds(t *testing.T) {
	tickers := []string{"A", "B", "C"}
	mu := []float64{0.12, 0.08, 0.10}
	sigma := mat.NewDense(3, 3, []float64{
		0.04, 0.01, 0.005,
		0.01, 0.03, 0.008,
		0.005, 0.008, 0.025,
	})
	c := Constraints{
		MinWeight: map[string]float64{"A": 0, "B": 0, "C": 0},
		MaxWeight: map[string]float64{"A": 1, "B": 1, "C": 1},
	}

	opt := NewOptimizer(testLogger())
	res, err := opt.MinVolatility(tickers, mu, sigma, 0, c)
	require.NoError(t, err)

	sum := 0.0
	for _, ticker := range tickers {
		w := res.Weights[ticker]
		assert.GreaterOrEqual(t, w, 0.0)
		assert.LessOrEqual(t, w, 1.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestEfficientReturnHitsTarget(t *testing.T) {
	tickers := []string{"A", "B"}
	mu := []float64{0.12, 0.08}
	sigma := mat.NewDense(2, 2, []float64{
		0.04, 0.01,
		0.01, 0.03,
	})
	c := Constraints{
		MinWeight: map[string]float64{"A": 0, "B": 0},
		MaxWeight: map[string]float64{"A": 1, "B": 1},
	}
	target := 0.10

	opt := NewOptimizer(testLogger())
	res, err := opt.EfficientReturn(tickers, mu, sigma, 0, target, c)
	require.NoError(t, err)
	assert.InDelta(t, target, res.Return, 0.01)
}

// TestEfficientFrontierTwoUncorrelatedAssets mirrors scenario 6: two
// uncorrelated assets with equal expected returns, full allocation
// range, 11 points. The minimum-variance point should sit close to
// inverse-variance weighting and sharpe should peak at an interior point.
func TestEfficientFrontierTwoUncorrelatedAssets(t *testing.T) {
	tickers := []string{"LOWVOL", "HIVOL"}
	mu := []float64{0.08, 0.08}
	sigma := mat.NewDense(2, 2, []float64{
		0.01, 0,
		0, 0.04,
	})
	c := Constraints{
		MinWeight: map[string]float64{"LOWVOL": 0, "HIVOL": 0},
		MaxWeight: map[string]float64{"LOWVOL": 1, "HIVOL": 1},
	}

	opt := NewOptimizer(testLogger())
	frontier, err := opt.EfficientFrontier(tickers, mu, sigma, 0, c, 11)
	require.NoError(t, err)
	require.NotEmpty(t, frontier)

	minVar, err := opt.MinVolatility(tickers, mu, sigma, 0, c)
	require.NoError(t, err)
	// inverse-variance weighting: w_lowvol = (1/0.01)/((1/0.01)+(1/0.04)) = 0.8
	assert.InDelta(t, 0.8, minVar.Weights["LOWVOL"], 0.1)

	bestSharpe := frontier[0]
	for _, p := range frontier {
		if p.Sharpe > bestSharpe.Sharpe {
			bestSharpe = p
		}
	}
	assert.Greater(t, bestSharpe.Sharpe, 0.0)
}

func TestOptimalSharpeRespectsBounds(t *testing.T) {
	tickers := []string{"A", "B"}
	mu := []float64{0.15, 0.05}
	sigma := mat.NewDense(2, 2, []float64{
		0.05, 0.01,
		0.01, 0.02,
	})
	c := Constraints{
		MinWeight: map[string]float64{"A": 0, "B": 0.2},
		MaxWeight: map[string]float64{"A": 1, "B": 1},
	}

	opt := NewOptimizer(testLogger())
	res, err := opt.OptimalSharpe(tickers, mu, sigma, 0.01, c)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Weights["B"], 0.2-1e-6)
}

