package metrics

import (
	"time"

	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/portfolio"
)

// AssetTypeExposure groups holdings value by asset kind.
func (s *Service) AssetTypeExposure(p *portfolio.Portfolio, date time.Time, priceAt rebalancePriceFunc) (map[domain.AssetKind]float64, error) {
	value, err := p.GetValue(date, priceAt)
	if err != nil || value == 0 {
		return map[domain.AssetKind]float64{}, err
	}
	out := make(map[domain.AssetKind]float64)
	for ticker, shares := range p.Holdings {
		asset, err := s.analytics.DailyOnlyLoad(ticker)
		if err != nil {
			return nil, err
		}
		price, err := priceAt(ticker, date)
		if err != nil {
			return nil, err
		}
		out[asset.Meta.Kind] += shares * price / value
	}
	for k := range out {
		out[k] = round3(out[k])
	}
	return out, nil
}

// SectorExposure groups holdings value by sector, with nil sectors
// bucketed under "Unknown".
func (s *Service) SectorExposure(p *portfolio.Portfolio, date time.Time, priceAt rebalancePriceFunc) (map[string]float64, error) {
	value, err := p.GetValue(date, priceAt)
	if err != nil || value == 0 {
		return map[string]float64{}, err
	}
	out := make(map[string]float64)
	for ticker, shares := range p.Holdings {
		asset, err := s.analytics.DailyOnlyLoad(ticker)
		if err != nil {
			return nil, err
		}
		price, err := priceAt(ticker, date)
		if err != nil {
			return nil, err
		}
		sector := "Unknown"
		if asset.Meta.Sector != nil && *asset.Meta.Sector != "" {
			sector = *asset.Meta.Sector
		}
		out[sector] += shares * price / value
	}
	for k := range out {
		out[k] = round3(out[k])
	}
	return out, nil
}

// CorrelationMatrix computes pairwise Pearson correlation of daily
// returns across held assets, aligned on the common date index.
func (s *Service) CorrelationMatrix(p *portfolio.Portfolio) (map[string]map[string]float64, error) {
	tickers := make([]string, 0, len(p.Holdings))
	retsByTicker := make(map[string][]float64)
	datesByTicker := make(map[string][]time.Time)
	for ticker := range p.Holdings {
		asset, err := s.analytics.DailyOnlyLoad(ticker)
		if err != nil {
			return nil, err
		}
		tickers = append(tickers, ticker)
		retsByTicker[ticker] = asset.Daily.Rets
		datesByTicker[ticker] = asset.Daily.Dates
	}

	out := make(map[string]map[string]float64, len(tickers))
	for _, a := range tickers {
		out[a] = make(map[string]float64, len(tickers))
		for _, b := range tickers {
			bByDay := make(map[time.Time]float64, len(datesByTicker[b]))
			for i, d := range datesByTicker[b] {
				bByDay[dayKey(d)] = retsByTicker[b][i]
			}
			var x, y []float64
			for i, d := range datesByTicker[a] {
				if v, ok := bByDay[dayKey(d)]; ok {
					x = append(x, retsByTicker[a][i])
					y = append(y, v)
				}
			}
			out[a][b] = round3(correlation(x, y))
		}
	}
	return out, nil
}

func correlation(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	mx, sx := meanStdClean(x[:n])
	my, sy := meanStdClean(y[:n])
	if sx == 0 || sy == 0 {
		return 0
	}
	var cov float64
	count := 0
	for i := 0; i < n; i++ {
		if x[i] != x[i] || y[i] != y[i] { // NaN check
			continue
		}
		cov += (x[i] - mx) * (y[i] - my)
		count++
	}
	if count < 2 {
		return 0
	}
	cov /= float64(count - 1)
	return cov / (sx * sy)
}

// RiskDecomposition returns each held asset's marginal contribution to
// portfolio variance, summing to 1.
func (s *Service) RiskDecomposition(p *portfolio.Portfolio, date time.Time, priceAt rebalancePriceFunc, cov map[string]map[string]float64) (map[string]float64, error) {
	weights, err := p.Weights(date, priceAt)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(weights))
	for t := range weights {
		tickers = append(tickers, t)
	}

	portfolioVariance := 0.0
	marginal := make(map[string]float64, len(tickers))
	for _, a := range tickers {
		var contrib float64
		for _, b := range tickers {
			contrib += weights[b] * cov[a][b]
		}
		marginal[a] = weights[a] * contrib
		portfolioVariance += marginal[a]
	}
	out := make(map[string]float64, len(tickers))
	if portfolioVariance == 0 {
		return out, nil
	}
	for _, a := range tickers {
		out[a] = round3(marginal[a] / portfolioVariance)
	}
	return out, nil
}
