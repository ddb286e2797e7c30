package signals

import "math"

// BollingerBounce emits -1 when price touches/crosses the upper band
// and reverses down, +1 on the mirrored lower-band bounce.
func BollingerBounce(close, upper, lower []float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	out[0] = math.NaN()
	for i := 1; i < n; i++ {
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) {
			out[i] = math.NaN()
			continue
		}
		switch {
		case close[i-1] >= upper[i-1] && close[i] < upper[i]:
			out[i] = -1
		case close[i-1] <= lower[i-1] && close[i] > lower[i]:
			out[i] = 1
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

// PctB computes (close - lower) / (upper - lower), clamped to [0, 1].
func PctB(close, upper, lower []float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		width := upper[i] - lower[i]
		if width <= 0 || math.IsNaN(width) {
			out[i] = math.NaN()
			continue
		}
		v := (close[i] - lower[i]) / width
		out[i] = math.Max(0, math.Min(1, v))
	}
	return out
}

// BollingerPctBSignal emits +1 below the oversold %B threshold, -1
// above the overbought threshold.
func BollingerPctBSignal(pctB []float64, oversold, overbought float64) []float64 {
	n := len(pctB)
	out := make([]float64, n)
	for i, v := range pctB {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case v < oversold:
			out[i] = 1
		case v > overbought:
			out[i] = -1
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

// BollingerWalk emits -1 when the last walkLen closes all sit within
// tolFrac of the upper band (a "walk" along the band), +1 mirrored on
// the lower band.
func BollingerWalk(close, upper, lower []float64, walkLen int, tolFrac float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
		if i+1 < walkLen {
			continue
		}
		upperWalk, lowerWalk := true, true
		for j := i - walkLen + 1; j <= i; j++ {
			width := upper[j] - lower[j]
			if width <= 0 || math.IsNaN(width) {
				upperWalk, lowerWalk = false, false
				break
			}
			if (upper[j]-close[j])/width > tolFrac {
				upperWalk = false
			}
			if (close[j]-lower[j])/width > tolFrac {
				lowerWalk = false
			}
		}
		switch {
		case upperWalk:
			out[i] = -1
		case lowerWalk:
			out[i] = 1
		}
	}
	return out
}

// BollingerSqueeze flags band-width compression: emits +1 when the
// current band width sits at or below the 20th percentile of the
// trailing lookback window of widths (a breakout setup), else NaN.
func BollingerSqueeze(upper, lower []float64, lookback int) []float64 {
	n := len(upper)
	width := make([]float64, n)
	for i := range width {
		width[i] = upper[i] - lower[i]
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
		if i+1 < lookback {
			continue
		}
		window := width[i-lookback+1 : i+1]
		p20 := percentile(window, 0.2)
		if width[i] <= p20 {
			out[i] = 1
		}
	}
	return out
}

// BollingerBreakout emits a directional signal when price breaches a
// band with momentum magnitude exceeding 0.3 of the momentum range
// observed over lookback bars.
func BollingerBreakout(close, upper, lower, momentum []float64, lookback int) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.NaN()
		if i+1 < lookback {
			continue
		}
		window := momentum[i-lookback+1 : i+1]
		lo, hi := rangeOf(window)
		momRange := hi - lo
		if momRange <= 0 || math.IsNaN(momentum[i]) {
			continue
		}
		threshold := 0.3 * momRange
		switch {
		case close[i] > upper[i] && math.Abs(momentum[i]) > threshold:
			out[i] = 1
		case close[i] < lower[i] && math.Abs(momentum[i]) > threshold:
			out[i] = -1
		}
	}
	return out
}

// BollingerDouble detects a double-touch pattern: two closes beyond
// the same band within lookback bars without an intervening close on
// the opposite band, emitting the reversal signal at the second touch.
func BollingerDouble(close, upper, lower []float64, lookback int) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	lastUpperTouch, lastLowerTouch := -1, -1
	for i := 0; i < n; i++ {
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) {
			continue
		}
		if close[i] >= upper[i] {
			if lastUpperTouch >= 0 && i-lastUpperTouch <= lookback {
				out[i] = -1
			}
			lastUpperTouch = i
			lastLowerTouch = -1
		}
		if close[i] <= lower[i] {
			if lastLowerTouch >= 0 && i-lastLowerTouch <= lookback {
				out[i] = 1
			}
			lastLowerTouch = i
			lastUpperTouch = -1
		}
	}
	return out
}

func percentile(x []float64, q float64) float64 {
	sorted := append([]float64(nil), x...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
