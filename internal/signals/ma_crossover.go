package signals

import "math"

// MACrossover emits +1 where short > long, else -1.
func MACrossover(short, long []float64) []float64 {
	n := len(short)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(short[i]) || math.IsNaN(long[i]) {
			out[i] = math.NaN()
			continue
		}
		if short[i] > long[i] {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}
