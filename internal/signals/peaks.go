package signals

import "math"

// Peak is a detected local extremum at Index with Prominence computed
// against the higher (for peaks) or lower (for troughs) of its
// neighboring opposite extrema within the search span.
type Peak struct {
	Index      int
	Value      float64
	Prominence float64
}

// FindPeaks detects local maxima in x that are at least
// prominenceFrac*range(x) above the higher of their neighboring minima
// within the window, with a minimum inter-peak distance.
func FindPeaks(x []float64, prominenceFrac float64, minDistance int) []Peak {
	return findExtrema(x, prominenceFrac, minDistance, true)
}

// FindTroughs mirrors FindPeaks for local minima.
func FindTroughs(x []float64, prominenceFrac float64, minDistance int) []Peak {
	return findExtrema(x, prominenceFrac, minDistance, false)
}

func findExtrema(x []float64, prominenceFrac float64, minDistance int, peaks bool) []Peak {
	n := len(x)
	if n < 3 {
		return nil
	}
	lo, hi := rangeOf(x)
	span := hi - lo
	if span == 0 {
		return nil
	}
	minProm := prominenceFrac * span

	var candidates []int
	for i := 1; i < n-1; i++ {
		if peaks {
			if x[i] > x[i-1] && x[i] >= x[i+1] {
				candidates = append(candidates, i)
			}
		} else {
			if x[i] < x[i-1] && x[i] <= x[i+1] {
				candidates = append(candidates, i)
			}
		}
	}

	var out []Peak
	for _, i := range candidates {
		leftMin, rightMin := neighborExtreme(x, i, peaks)
		var base float64
		if peaks {
			base = math.Max(leftMin, rightMin)
			prom := x[i] - base
			if prom < minProm {
				continue
			}
			out = append(out, Peak{Index: i, Value: x[i], Prominence: prom})
		} else {
			base = math.Min(leftMin, rightMin)
			prom := base - x[i]
			if prom < minProm {
				continue
			}
			out = append(out, Peak{Index: i, Value: x[i], Prominence: prom})
		}
	}

	if minDistance > 1 {
		out = enforceDistance(out, minDistance)
	}
	return out
}

// neighborExtreme returns the nearest opposite-direction extreme to the
// left and right of i: for a peak, the lowest point before the next
// higher peak on each side; for a trough, the highest point.
func neighborExtreme(x []float64, i int, peaks bool) (left, right float64) {
	left = x[i]
	for j := i - 1; j >= 0; j-- {
		if peaks && x[j] > x[i] {
			break
		}
		if !peaks && x[j] < x[i] {
			break
		}
		if peaks && x[j] < left {
			left = x[j]
		}
		if !peaks && x[j] > left {
			left = x[j]
		}
	}
	right = x[i]
	for j := i + 1; j < len(x); j++ {
		if peaks && x[j] > x[i] {
			break
		}
		if !peaks && x[j] < x[i] {
			break
		}
		if peaks && x[j] < right {
			right = x[j]
		}
		if !peaks && x[j] > right {
			right = x[j]
		}
	}
	return left, right
}

func enforceDistance(peaks []Peak, minDistance int) []Peak {
	var out []Peak
	for _, p := range peaks {
		keep := true
		for i, o := range out {
			if abs(p.Index-o.Index) < minDistance {
				if p.Prominence > o.Prominence {
					out[i] = p
				}
				keep = false
				break
			}
		}
		if keep {
			out = append(out, p)
		}
	}
	return out
}

func rangeOf(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
