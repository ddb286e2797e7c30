// Package rebalance implements the rebalancer (C6): turning a target
// weight map into an ordered trade list that sells before it buys.
package rebalance

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/portfolio"
)

// valueDiffThreshold is the minimum reference-currency value
// difference worth trading; smaller deviations are ignored.
const valueDiffThreshold = 1e-2

// TradeKind distinguishes the two trade directions emitted by Plan.
type TradeKind string

const (
	TradeSell TradeKind = "SELL"
	TradeBuy  TradeKind = "BUY"
)

// Trade is one proposed rebalancing trade.
type Trade struct {
	Ticker string
	Kind   TradeKind
	Value  float64 // reference-currency value to trade
}

// PriceAtFunc resolves an asset's price as of a date; it's the same
// shape the ledger (C4) uses so the rebalancer can share it.
type PriceAtFunc func(ticker string, date time.Time) (float64, error)

// Service computes and optionally applies rebalancing trades.
type Service struct {
	ledger *portfolio.Service
	log    zerolog.Logger
}

// NewService builds a rebalancer over the given ledger service.
func NewService(ledger *portfolio.Service, log zerolog.Logger) *Service {
	return &Service{ledger: ledger, log: log.With().Str("component", "rebalance").Logger()}
}

// Plan computes the ordered trade list (sells first, ascending by
// target-current, so cash frees up before being spent) needed to move
// p toward targetWeights, normalized to sum to 1. Assets held but
// absent from targetWeights are fully liquidated.
func Plan(p *portfolio.Portfolio, targetWeights map[string]float64, date time.Time, priceAt PriceAtFunc) ([]Trade, error) {
	normalized := normalize(targetWeights)

	totalValue, err := p.GetValue(date, priceAt)
	if err != nil {
		return nil, err
	}
	if totalValue <= 0 {
		return nil, nil
	}

	currentWeights := make(map[string]float64, len(p.Holdings))
	for t, shares := range p.Holdings {
		price, err := priceAt(t, date)
		if err != nil {
			return nil, err
		}
		currentWeights[t] = shares * price / totalValue
	}

	tickers := make(map[string]bool)
	for t := range normalized {
		tickers[t] = true
	}
	for t := range currentWeights {
		tickers[t] = true
	}

	type delta struct {
		ticker string
		diff   float64 // target - current
	}
	deltas := make([]delta, 0, len(tickers))
	for t := range tickers {
		target := normalized[t]
		current := currentWeights[t]
		deltas = append(deltas, delta{ticker: t, diff: target - current})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].diff < deltas[j].diff })

	var trades []Trade
	for _, d := range deltas {
		valueDiff := d.diff * totalValue
		if abs(valueDiff) < valueDiffThreshold {
			continue
		}
		if valueDiff < 0 {
			trades = append(trades, Trade{Ticker: d.ticker, Kind: TradeSell, Value: -valueDiff})
		} else {
			trades = append(trades, Trade{Ticker: d.ticker, Kind: TradeBuy, Value: valueDiff})
		}
	}
	return trades, nil
}

// Apply executes trades against p via the ledger service at date.
func (s *Service) Apply(p *portfolio.Portfolio, trades []Trade, date time.Time) error {
	for _, t := range trades {
		in := portfolio.TradeInput{Value: t.Value, HasValue: true, Currency: p.RefCurrency, Date: date}
		var err error
		if t.Kind == TradeSell {
			err = s.ledger.Sell(p, t.Ticker, in)
		} else {
			err = s.ledger.Buy(p, t.Ticker, in)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Rebalance computes the trade list and, unless inplace is false,
// applies it directly to p. When not in place, it applies the trades
// to a clone and returns that clone's trades without mutating p.
func (s *Service) Rebalance(p *portfolio.Portfolio, targetWeights map[string]float64, date time.Time, priceAt PriceAtFunc, inplace bool) (*portfolio.Portfolio, []Trade, error) {
	target := p
	if !inplace {
		target = p.Clone()
	}
	trades, err := Plan(target, targetWeights, date, priceAt)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Apply(target, trades, date); err != nil {
		return nil, nil, err
	}
	return target, trades, nil
}

func normalize(weights map[string]float64) map[string]float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	out := make(map[string]float64, len(weights))
	if sum == 0 {
		return out
	}
	for k, w := range weights {
		out[k] = w / sum
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
