// Package portfolio implements the portfolio ledger core (C4):
// transaction append, weighted-average cost-basis tracking, and the
// holdings map. The rebalancer (C6) lives in package rebalance.
package portfolio

import (
	"math"
	"time"

	"github.com/aristath/finsight/internal/domain"
)

// sharesEpsilon is the dust threshold below which a holding is
// considered fully liquidated and removed from the live map.
const sharesEpsilon = 1e-8

// Portfolio is the mutable ledger. It is not safe for concurrent
// mutation by multiple goroutines; callers serialize access per
// portfolio id (see Service.Lock).
type Portfolio struct {
	Name           string
	RefCurrency    domain.Currency
	RiskFreeRate   float64
	Cash           float64
	Holdings       map[string]float64 // ticker -> shares
	CostBasis      map[string]float64 // ticker -> weighted-average cost
	Transactions   []domain.Transaction
	NextID         int64
	ReferenceAsset string // e.g. SPY, used for beta/tracking error
}

// New builds an empty portfolio.
func New(name string, refCurrency domain.Currency, riskFreeRate float64, referenceAsset string) *Portfolio {
	return &Portfolio{
		Name:           name,
		RefCurrency:    refCurrency,
		RiskFreeRate:   riskFreeRate,
		Holdings:       make(map[string]float64),
		CostBasis:      make(map[string]float64),
		ReferenceAsset: referenceAsset,
	}
}

// Clone deep-copies p, used by non-inplace operations (e.g. Rebalance).
func (p *Portfolio) Clone() *Portfolio {
	cp := *p
	cp.Holdings = make(map[string]float64, len(p.Holdings))
	for k, v := range p.Holdings {
		cp.Holdings[k] = v
	}
	cp.CostBasis = make(map[string]float64, len(p.CostBasis))
	for k, v := range p.CostBasis {
		cp.CostBasis[k] = v
	}
	cp.Transactions = make([]domain.Transaction, len(p.Transactions))
	copy(cp.Transactions, p.Transactions)
	return &cp
}

func (p *Portfolio) appendTx(kind domain.TransactionKind, asset domain.AssetRef, shares, value, profit float64, date time.Time) domain.Transaction {
	tx := domain.Transaction{
		ID:     p.NextID,
		Kind:   kind,
		Asset:  asset,
		Shares: shares,
		Value:  round2(value),
		Profit: round2(profit),
		Date:   date,
	}
	p.Transactions = append(p.Transactions, tx)
	p.NextID++
	return tx
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// HoldingsValue returns the mark-to-market value of all live holdings
// using priceAt to price each asset as of date.
func (p *Portfolio) HoldingsValue(date time.Time, priceAt func(ticker string, date time.Time) (float64, error)) (float64, error) {
	total := 0.0
	for ticker, shares := range p.Holdings {
		price, err := priceAt(ticker, date)
		if err != nil {
			return 0, err
		}
		total += shares * price
	}
	return total, nil
}

// GetValue returns holdings value plus cash as of date.
func (p *Portfolio) GetValue(date time.Time, priceAt func(ticker string, date time.Time) (float64, error)) (float64, error) {
	hv, err := p.HoldingsValue(date, priceAt)
	if err != nil {
		return 0, err
	}
	return hv + p.Cash, nil
}

// Weights returns each holding's fraction of total holdings value
// (cash excluded from both numerator and denominator). Sums to 1
// across holdings when at least one holding exists.
func (p *Portfolio) Weights(date time.Time, priceAt func(ticker string, date time.Time) (float64, error)) (map[string]float64, error) {
	value, err := p.HoldingsValue(date, priceAt)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(p.Holdings))
	if value == 0 {
		return out, nil
	}
	for ticker, shares := range p.Holdings {
		price, err := priceAt(ticker, date)
		if err != nil {
			return nil, err
		}
		out[ticker] = round3(shares * price / value)
	}
	return out, nil
}
