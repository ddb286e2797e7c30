package metrics

import (
	"time"

	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/portfolio"
)

// PositionMetrics is the §4.4 "Position" output block.
type PositionMetrics struct {
	TotalValue     float64
	CashWeight     float64
	LargestWeight  float64
	SmallestWeight float64
	Concentration  float64 // sum of squared weights
}

// Position computes PositionMetrics as of date.
func Position(p *portfolio.Portfolio, date time.Time, priceAt rebalancePriceFunc) (PositionMetrics, error) {
	value, err := p.GetValue(date, priceAt)
	if err != nil {
		return PositionMetrics{}, err
	}
	if value == 0 {
		return PositionMetrics{}, nil
	}
	weights, err := p.Weights(date, priceAt)
	if err != nil {
		return PositionMetrics{}, err
	}

	largest, smallest := 0.0, 1.0
	concentration := 0.0
	if len(weights) == 0 {
		smallest = 0
	}
	for _, w := range weights {
		if w > largest {
			largest = w
		}
		if w < smallest {
			smallest = w
		}
		concentration += w * w
	}

	return PositionMetrics{
		TotalValue:     round2(value),
		CashWeight:     round3(p.Cash / value),
		LargestWeight:  round3(largest),
		SmallestWeight: round3(smallest),
		Concentration:  round3(concentration),
	}, nil
}

type rebalancePriceFunc func(ticker string, date time.Time) (float64, error)

// ActivityMetrics is the §4.4 "Activity" output block.
type ActivityMetrics struct {
	RealizedPnl    float64
	UnrealizedPnl  float64
	InvestmentPnl  float64
	TradeCount     int
	WinRate        float64
}

// Activity computes ActivityMetrics from the ledger and current
// mark-to-market value.
func Activity(p *portfolio.Portfolio, date time.Time, priceAt rebalancePriceFunc) (ActivityMetrics, error) {
	var realized float64
	var sellCount, winCount int
	var netDeposits float64
	for _, tx := range p.Transactions {
		switch tx.Kind {
		case domain.TxSell:
			realized += tx.Profit
			sellCount++
			if tx.Profit > 0 {
				winCount++
			}
		case domain.TxDeposit:
			netDeposits += tx.Value
		case domain.TxWithdraw:
			netDeposits -= tx.Value
		}
	}

	unrealized := 0.0
	for ticker, shares := range p.Holdings {
		price, err := priceAt(ticker, date)
		if err != nil {
			return ActivityMetrics{}, err
		}
		basis := p.CostBasis[ticker]
		unrealized += shares * (price - basis)
	}

	value, err := p.GetValue(date, priceAt)
	if err != nil {
		return ActivityMetrics{}, err
	}

	winRate := 0.0
	if sellCount > 0 {
		winRate = float64(winCount) / float64(sellCount)
	}

	return ActivityMetrics{
		RealizedPnl:   round2(realized),
		UnrealizedPnl: round2(unrealized),
		InvestmentPnl: round2(value - netDeposits),
		TradeCount:    len(p.Transactions),
		WinRate:       round3(winRate),
	}, nil
}
