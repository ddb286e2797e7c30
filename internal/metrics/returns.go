package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/portfolio"
)

// TimeAlignedReturns is the aligned daily series the rest of C5 is
// built from: per-date portfolio value, cash, running net deposits,
// and the derived simple/log returns.
type TimeAlignedReturns struct {
	Dates          []time.Time
	Value          []float64
	Cash           []float64
	RunningDeposit []float64
	Returns        []float64
	LogReturns     []float64
	AnnFactor      float64
}

// Service computes portfolio-level metrics from a ledger and asset
// prices.
type Service struct {
	analytics *analytics.Service
	log       zerolog.Logger
}

// NewService builds a metrics service.
func NewService(a *analytics.Service, log zerolog.Logger) *Service {
	return &Service{analytics: a, log: log.With().Str("component", "metrics").Logger()}
}

// BuildReturns constructs the time-aligned returns series for p as of
// today.
func (s *Service) BuildReturns(p *portfolio.Portfolio, today time.Time) (*TimeAlignedReturns, error) {
	if len(p.Transactions) == 0 {
		return &TimeAlignedReturns{}, nil
	}

	sortedTx := make([]domain.Transaction, len(p.Transactions))
	copy(sortedTx, p.Transactions)
	sort.Slice(sortedTx, func(i, j int) bool {
		di, dj := dayKey(sortedTx[i].Date), dayKey(sortedTx[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sortedTx[i].ID < sortedTx[j].ID
	})

	first := dayKey(sortedTx[0].Date)
	for _, tx := range sortedTx {
		if dayKey(tx.Date).Before(first) {
			first = dayKey(tx.Date)
		}
	}

	crypto, err := s.anyCryptoHeld(p)
	if err != nil {
		return nil, err
	}
	dates := dateRange(first, dayKey(today), !crypto)
	if len(dates) == 0 {
		return &TimeAlignedReturns{}, nil
	}

	tickers := make(map[string]bool)
	for _, tx := range sortedTx {
		if !tx.Asset.IsCash() {
			tickers[tx.Asset.Ticker()] = true
		}
	}

	holdingsByDate := make(map[string]map[time.Time]float64, len(tickers))
	for t := range tickers {
		holdingsByDate[t] = make(map[time.Time]float64)
	}
	cashCum := 0.0
	depositCum := 0.0
	cashByDate := make(map[time.Time]float64)
	depositByDate := make(map[time.Time]float64)
	sharesSoFar := make(map[string]float64)

	txIdx := 0
	for _, dt := range dates {
		for txIdx < len(sortedTx) && !dayKey(sortedTx[txIdx].Date).After(dt) {
			tx := sortedTx[txIdx]
			switch tx.Kind {
			case domain.TxDeposit:
				cashCum += tx.Value
				depositCum += tx.Value
			case domain.TxWithdraw:
				cashCum -= tx.Value
				depositCum -= tx.Value
			case domain.TxBuy:
				cashCum -= tx.Value
				sharesSoFar[tx.Asset.Ticker()] += tx.Shares
			case domain.TxSell:
				cashCum += tx.Value
				sharesSoFar[tx.Asset.Ticker()] -= tx.Shares
			}
			txIdx++
		}
		cashByDate[dt] = cashCum
		depositByDate[dt] = depositCum
		for t := range tickers {
			holdingsByDate[t][dt] = sharesSoFar[t]
		}
	}

	priceMatrix := make(map[string]map[time.Time]float64, len(tickers))
	for t := range tickers {
		asset, err := s.analytics.DailyOnlyLoad(t)
		if err != nil {
			return nil, err
		}
		priceMatrix[t] = reindexFFill(asset.Daily, dates)
	}

	value := make([]float64, len(dates))
	cash := make([]float64, len(dates))
	runningDeposit := make([]float64, len(dates))
	for i, dt := range dates {
		var v float64
		for t := range tickers {
			v += holdingsByDate[t][dt] * priceMatrix[t][dt]
		}
		value[i] = v
		cash[i] = cashByDate[dt]
		runningDeposit[i] = depositByDate[dt]
	}

	nominal := make([]float64, len(dates))
	for i := range dates {
		nominal[i] = value[i] + cash[i]
	}
	ratio := make([]float64, len(dates))
	for i := range dates {
		if runningDeposit[i] == 0 {
			ratio[i] = math.NaN()
			continue
		}
		ratio[i] = nominal[i] / runningDeposit[i]
	}
	rawReturns := pctChange(ratio)

	out := &TimeAlignedReturns{
		Dates:          dates[1:],
		Value:          value[1:],
		Cash:           cash[1:],
		RunningDeposit: runningDeposit[1:],
		Returns:        rawReturns[1:],
	}
	out.LogReturns = make([]float64, len(out.Returns))
	for i, r := range out.Returns {
		out.LogReturns[i] = math.Log(1 + r)
	}
	out.AnnFactor = s.annFactor(p)
	return out, nil
}

func (s *Service) anyCryptoHeld(p *portfolio.Portfolio) (bool, error) {
	for ticker := range p.Holdings {
		asset, err := s.analytics.DailyOnlyLoad(ticker)
		if err != nil {
			continue
		}
		if asset.Meta.Kind == domain.AssetKindCrypto {
			return true, nil
		}
	}
	return false, nil
}

// annFactor mixes 252/365 by the fraction of holdings value in crypto
// vs non-crypto assets, defaulting to 252 when there are no holdings.
func (s *Service) annFactor(p *portfolio.Portfolio) float64 {
	if len(p.Holdings) == 0 {
		return 252
	}
	stockWeight, cryptoWeight := 0.0, 0.0
	total := 0.0
	for ticker, shares := range p.Holdings {
		asset, err := s.analytics.DailyOnlyLoad(ticker)
		if err != nil || asset.Daily.Empty() {
			continue
		}
		price := asset.Daily.AdjClose[asset.Daily.Len()-1]
		v := shares * price
		total += v
		if asset.Meta.Kind == domain.AssetKindCrypto {
			cryptoWeight += v
		} else {
			stockWeight += v
		}
	}
	if total == 0 {
		return 252
	}
	return 252*(stockWeight/total) + 365*(cryptoWeight/total)
}

func reindexFFill(s analytics.Series, dates []time.Time) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(dates))
	if s.Empty() {
		return out
	}
	idx := 0
	last := s.AdjClose[0]
	for _, dt := range dates {
		for idx < s.Len() && !s.Dates[idx].After(dt) {
			last = s.AdjClose[idx]
			idx++
		}
		out[dt] = last
	}
	return out
}

func pctChange(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(x); i++ {
		if x[i-1] == 0 || math.IsNaN(x[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i]/x[i-1] - 1
	}
	return out
}
