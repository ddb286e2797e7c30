package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillSeedsLeadingNaNAndForwardFills(t *testing.T) {
	x := []float64{math.NaN(), math.NaN(), 1, math.NaN(), -1, math.NaN()}
	out := Fill(x)
	assert.Equal(t, []float64{1, 1, 1, 1, -1, -1}, out)
	for _, v := range out {
		assert.True(t, v == 1 || v == -1)
	}
}

func TestMACrossoverBasic(t *testing.T) {
	short := []float64{1, 2, 3, math.NaN(), 5}
	long := []float64{2, 1, 3, 4, 4}
	out := MACrossover(short, long)
	assert.Equal(t, -1.0, out[0])
	assert.Equal(t, 1.0, out[1])
	assert.Equal(t, -1.0, out[2])
	assert.True(t, math.IsNaN(out[3]))
	assert.Equal(t, 1.0, out[4])
}

// TestRSICrossoverReentry mirrors scenario 3: RSI crosses up through
// the upper bound then back down through it, and down through the
// lower bound then back up, producing short/long entries at reentry.
func TestRSICrossoverReentry(t *testing.T) {
	rsi := []float64{50, 75, 80, 72, 68, 25, 18, 28, 40}
	out := RSICrossover(rsi, RSICrossoverParams{
		Mode:       RSIReentry,
		UpperBound: 70,
		LowerBound: 30,
	})
	// index 3: rsi drops from 80 to 72, still above 70 -> no cross yet.
	assert.True(t, math.IsNaN(out[3]))
	// index 4: rsi drops from 72 to 68, crossing back under 70 -> short entry.
	assert.Equal(t, -1.0, out[4])
	// index 7: rsi rises from 18 to 28, crossing back above 30? no (28<30) -> NaN.
	assert.True(t, math.IsNaN(out[7]))
	// index 8: rsi rises from 28 to 40, crossing back above 30 -> long entry.
	assert.Equal(t, 1.0, out[8])
}

func TestRSICrossoverExitMode(t *testing.T) {
	rsi := []float64{50, 75, 20, math.NaN()}
	out := RSICrossover(rsi, RSICrossoverParams{Mode: RSIExit, UpperBound: 70, LowerBound: 30})
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, -1.0, out[1])
	assert.Equal(t, 1.0, out[2])
	assert.True(t, math.IsNaN(out[3]))
}

func TestMACDMomentum(t *testing.T) {
	histogram := []float64{-1, -0.5, 0.2, 0.1}
	out := MACDMomentum(histogram)
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 1.0, out[1])  // prev -1 rising to -0.5
	assert.Equal(t, -1.0, out[3]) // prev 0.2 falling to 0.1
}

// TestMACDDoubleTop mirrors scenario 4: a double-top histogram pattern
// (two positive peaks, second lower than first, dipping between) emits
// a short signal at the second peak.
func TestMACDDoubleTop(t *testing.T) {
	histogram := []float64{0, 1, 3, 1, -1, 1, 2, 1, 0}
	out := MACDDouble(histogram, 0.1, 1)
	found := false
	for _, v := range out {
		if v == -1 {
			found = true
		}
	}
	assert.True(t, found, "expected a double-top short signal")
}

func TestFindPeaksAndTroughs(t *testing.T) {
	x := []float64{0, 1, 5, 1, 0, 1, 6, 1, 0}
	peaks := FindPeaks(x, 0.1, 1)
	assert.Len(t, peaks, 2)
	assert.Equal(t, 2, peaks[0].Index)
	assert.Equal(t, 6, peaks[1].Index)

	troughs := FindTroughs(x, 0.1, 1)
	assert.NotEmpty(t, troughs)
}

func TestVoteUnanimousRequiresAllAgree(t *testing.T) {
	sigs := [][]float64{
		{1, 1, -1},
		{1, -1, -1},
	}
	out := Vote(CombineUnanimous, sigs, nil, 0)
	assert.Equal(t, 1.0, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, -1.0, out[2])
}

func TestVoteWeightedRespectsThreshold(t *testing.T) {
	sigs := [][]float64{
		{1, 1},
		{-1, 1},
	}
	weights := []float64{0.7, 0.3}
	out := Vote(CombineWeighted, sigs, weights, 0.3)
	// sum = 0.7*1 + 0.3*-1 = 0.4 > 0.3 -> +1
	assert.Equal(t, 1.0, out[0])
	// sum = 0.7*1 + 0.3*1 = 1.0 > 0.3 -> +1
	assert.Equal(t, 1.0, out[1])
}

func TestBollingerBounce(t *testing.T) {
	close := []float64{10, 12, 9, 5, 6}
	upper := []float64{11, 11, 11, 8, 8}
	lower := []float64{4, 4, 4, 4, 4}
	out := BollingerBounce(close, upper, lower)
	assert.Equal(t, -1.0, out[2]) // crossed back under upper after touching it
}

func TestPctBAndSignal(t *testing.T) {
	close := []float64{5, 10}
	upper := []float64{10, 10}
	lower := []float64{0, 0}
	pb := PctB(close, upper, lower)
	assert.InDelta(t, 0.5, pb[0], 1e-9)
	assert.InDelta(t, 1.0, pb[1], 1e-9)

	sig := BollingerPctBSignal(pb, 0.2, 0.8)
	assert.True(t, math.IsNaN(sig[0]))
	assert.Equal(t, -1.0, sig[1])
}

func TestFindMomentumDivergenceRegularBearish(t *testing.T) {
	price := []float64{0, 1, 5, 1, 0, 1, 7, 1, 0}
	indicator := []float64{0, 1, 6, 1, 0, 1, 4, 1, 0}
	out := FindMomentumDivergence(price, indicator, DivergenceParams{
		ProminenceFrac: 0.1,
		MinDistance:    1,
		DistanceMin:    1,
		DistanceMax:    10,
	})
	found := false
	for _, v := range out {
		if v == -1 {
			found = true
		}
	}
	assert.True(t, found, "expected regular bearish divergence at higher price peak with lower indicator peak")
}
