package signals

import "math"

// DivergenceParams configures FindMomentumDivergence.
type DivergenceParams struct {
	ProminenceFrac float64
	MinDistance    int
	DistanceMin    int
	DistanceMax    int
	// UpperBound/LowerBound, when non-nil, require the indicator
	// peak/trough to sit outside the given bound (RSI-specific rule).
	UpperBound    *float64
	LowerBound    *float64
}

// FindMomentumDivergence detects regular and hidden bearish/bullish
// divergence between price and an indicator (RSI or a MACD line),
// matching peaks/troughs within [DistanceMin, DistanceMax] bars apart.
// Regular bearish: price higher-high + indicator lower-high -> -1.
// Regular bullish: price lower-low + indicator higher-low -> +1.
// Hidden variants swap the price-side inequality.
func FindMomentumDivergence(price, indicator []float64, p DivergenceParams) []float64 {
	n := len(price)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	pricePeaks := FindPeaks(price, p.ProminenceFrac, p.MinDistance)
	priceTroughs := FindTroughs(price, p.ProminenceFrac, p.MinDistance)
	indPeaks := FindPeaks(indicator, p.ProminenceFrac, p.MinDistance)
	indTroughs := FindTroughs(indicator, p.ProminenceFrac, p.MinDistance)

	withinBound := func(peaks []Peak, upper bool) []Peak {
		if p.UpperBound == nil && p.LowerBound == nil {
			return peaks
		}
		var out []Peak
		for _, pk := range peaks {
			if upper && p.UpperBound != nil && pk.Value < *p.UpperBound {
				continue
			}
			if !upper && p.LowerBound != nil && pk.Value > *p.LowerBound {
				continue
			}
			out = append(out, pk)
		}
		return out
	}
	indPeaks = withinBound(indPeaks, true)
	indTroughs = withinBound(indTroughs, false)

	// Bearish: price peak pair + indicator peak pair within distance bounds.
	markBearish := func(pricePk []Peak, indPk []Peak, regular bool) {
		for i := 1; i < len(pricePk); i++ {
			pp1, pp2 := pricePk[i-1], pricePk[i]
			gap := pp2.Index - pp1.Index
			if gap < p.DistanceMin || gap > p.DistanceMax {
				continue
			}
			ip1, ok1 := nearestIndex(indPk, pp1.Index, p.DistanceMax)
			ip2, ok2 := nearestIndex(indPk, pp2.Index, p.DistanceMax)
			if !ok1 || !ok2 {
				continue
			}
			priceCond := pp2.Value > pp1.Value
			if !regular {
				priceCond = pp2.Value < pp1.Value
			}
			indCond := ip2.Value < ip1.Value
			if priceCond && indCond {
				out[pp2.Index] = -1
			}
		}
	}
	markBullish := func(priceTr []Peak, indTr []Peak, regular bool) {
		for i := 1; i < len(priceTr); i++ {
			pt1, pt2 := priceTr[i-1], priceTr[i]
			gap := pt2.Index - pt1.Index
			if gap < p.DistanceMin || gap > p.DistanceMax {
				continue
			}
			it1, ok1 := nearestIndex(indTr, pt1.Index, p.DistanceMax)
			it2, ok2 := nearestIndex(indTr, pt2.Index, p.DistanceMax)
			if !ok1 || !ok2 {
				continue
			}
			priceCond := pt2.Value < pt1.Value
			if !regular {
				priceCond = pt2.Value > pt1.Value
			}
			indCond := it2.Value > it1.Value
			if priceCond && indCond {
				out[pt2.Index] = 1
			}
		}
	}

	markBearish(pricePeaks, indPeaks, true)
	markBearish(pricePeaks, indPeaks, false)
	markBullish(priceTroughs, indTroughs, true)
	markBullish(priceTroughs, indTroughs, false)

	return out
}

func nearestIndex(peaks []Peak, idx, maxGap int) (Peak, bool) {
	best := Peak{}
	bestGap := maxGap + 1
	found := false
	for _, p := range peaks {
		gap := p.Index - idx
		if gap < 0 {
			gap = -gap
		}
		if gap <= maxGap && gap < bestGap {
			best = p
			bestGap = gap
			found = true
		}
	}
	return best, found
}
