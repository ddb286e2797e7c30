package analytics

import (
	"math"
	"time"
)

// RollingStatsParams configures RollingStats. Ewm parameter precedence
// is alpha > halflife > window (interpreted as span) when Ewm is set.
// AnnFactor is required only when SharpeRatio is requested; callers
// derive it from the asset's kind and frequency via analytics.AnnFactor.
type RollingStatsParams struct {
	Window         int
	FiveMin        bool
	RiskFreeRate   float64
	Ewm            bool
	Alpha          float64
	Halflife       float64
	BollingerBands bool
	NumStd         float64
	SharpeRatio    bool
	AnnFactor      float64
}

// RollingStats holds the {col}_mean/{col}_std columns for close,
// adj_close, rets, and log_rets, aligned to the source series (leading
// positions with insufficient data dropped).
type RollingStats struct {
	Dates        []time.Time
	CloseMean    []float64
	CloseStd     []float64
	AdjCloseMean []float64
	AdjCloseStd  []float64
	RetsMean     []float64
	RetsStd      []float64
	LogRetsMean  []float64
	LogRetsStd   []float64
	BolUp        []float64
	BolLow       []float64
	Sharpe       []float64
}

// Rolling computes windowed or EWM statistics over s per params.
func (s Series) Rolling(p RollingStatsParams) RollingStats {
	var closeMean, closeStd, adjMean, adjStd, retsMean, retsStd, logMean, logStd []float64
	if p.Ewm {
		alpha := resolveAlpha(p)
		closeMean, closeStd = ewmMeanStd(s.Close, alpha)
		adjMean, adjStd = ewmMeanStd(s.AdjClose, alpha)
		retsMean, retsStd = ewmMeanStd(s.Rets, alpha)
		logMean, logStd = ewmMeanStd(s.LogRets, alpha)
	} else {
		closeMean, closeStd = rollingMeanStd(s.Close, p.Window)
		adjMean, adjStd = rollingMeanStd(s.AdjClose, p.Window)
		retsMean, retsStd = rollingMeanStd(s.Rets, p.Window)
		logMean, logStd = rollingMeanStd(s.LogRets, p.Window)
	}

	drop := 0
	if !p.Ewm {
		drop = p.Window - 1
		if drop < 0 {
			drop = 0
		}
	}
	drop = min(drop, len(s.Dates))

	out := RollingStats{
		Dates:        s.Dates[drop:],
		CloseMean:    closeMean[drop:],
		CloseStd:     closeStd[drop:],
		AdjCloseMean: adjMean[drop:],
		AdjCloseStd:  adjStd[drop:],
		RetsMean:     retsMean[drop:],
		RetsStd:      retsStd[drop:],
		LogRetsMean:  logMean[drop:],
		LogRetsStd:   logStd[drop:],
	}

	if p.BollingerBands {
		n := len(out.CloseMean)
		out.BolUp = make([]float64, n)
		out.BolLow = make([]float64, n)
		for i := 0; i < n; i++ {
			out.BolUp[i] = out.CloseMean[i] + p.NumStd*out.CloseStd[i]
			out.BolLow[i] = out.CloseMean[i] - p.NumStd*out.CloseStd[i]
		}
	}

	if p.SharpeRatio {
		annFactor := p.AnnFactor
		if annFactor == 0 {
			annFactor = 252
		}
		n := len(out.RetsMean)
		out.Sharpe = make([]float64, n)
		for i := 0; i < n; i++ {
			excess := out.RetsMean[i] - p.RiskFreeRate/annFactor
			if out.RetsStd[i] == 0 {
				out.Sharpe[i] = math.NaN()
				continue
			}
			out.Sharpe[i] = (excess * annFactor) / (out.RetsStd[i] * math.Sqrt(annFactor))
		}
	}

	return out
}

func resolveAlpha(p RollingStatsParams) float64 {
	switch {
	case p.Alpha > 0:
		return p.Alpha
	case p.Halflife > 0:
		return 1 - math.Exp(-math.Ln2/p.Halflife)
	default:
		span := float64(p.Window)
		return 2 / (span + 1)
	}
}

func rollingMeanStd(x []float64, window int) ([]float64, []float64) {
	n := len(x)
	mean := make([]float64, n)
	std := make([]float64, n)
	for i := 0; i < n; i++ {
		if i+1 < window {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		m, s := meanStd(x[i-window+1 : i+1])
		mean[i] = m
		std[i] = s
	}
	return mean, std
}

func meanStd(x []float64) (float64, float64) {
	n := 0
	sum := 0.0
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean := sum / float64(n)
	var sqsum float64
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sqsum += d * d
	}
	variance := sqsum
	if n > 1 {
		variance /= float64(n - 1)
	} else {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// ewmMeanStd computes an exponentially weighted mean/std with decay
// alpha, unadjusted (recursive) form: m_t = alpha*x_t + (1-alpha)*m_{t-1}.
func ewmMeanStd(x []float64, alpha float64) ([]float64, []float64) {
	n := len(x)
	mean := make([]float64, n)
	variance := make([]float64, n)
	std := make([]float64, n)
	if n == 0 {
		return mean, std
	}
	started := false
	var m, v float64
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) {
			mean[i] = m
			std[i] = math.Sqrt(v)
			continue
		}
		if !started {
			m = x[i]
			v = 0
			started = true
		} else {
			d := x[i] - m
			m += alpha * d
			v = (1 - alpha) * (v + alpha*d*d)
		}
		mean[i] = m
		variance[i] = v
		std[i] = math.Sqrt(v)
	}
	return mean, std
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
