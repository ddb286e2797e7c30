package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/analytics"
	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/fx"
)

// PriceLookupDays bounds the backward walk when resolving a price on a
// date with no bar (Open Question resolution: 14 calendar days).
const PriceLookupDays = 14

// Service implements the ledger operations (C4); the rebalancer (C6)
// in package rebalance drives it. It owns the per-portfolio lock registry required by the
// concurrency model (§5).
type Service struct {
	analytics *analytics.Service
	fx        *fx.Converter
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService builds a portfolio ledger service.
func NewService(a *analytics.Service, conv *fx.Converter, log zerolog.Logger) *Service {
	return &Service{
		analytics: a,
		fx:        conv,
		log:       log.With().Str("component", "portfolio").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Value resolves p's total value (holdings plus cash) as of date,
// pricing each holding through the same lookup Buy/Sell use.
func (s *Service) Value(p *Portfolio, date time.Time) (float64, error) {
	return p.GetValue(date, s.priceAt)
}

// Lock returns the per-portfolio-id mutex, creating it on first use.
func (s *Service) Lock(portfolioID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[portfolioID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[portfolioID] = l
	}
	return l
}

// priceAt resolves asset's adjusted close at date via the asset's
// daily-only load, bounded to PriceLookupDays.
func (s *Service) priceAt(ticker string, date time.Time) (float64, error) {
	asset, err := s.analytics.DailyOnlyLoad(ticker)
	if err != nil {
		return 0, err
	}
	return asset.Daily.PriceAt(date, PriceLookupDays)
}

// convert resolves value in fromCcy into the portfolio's reference
// currency as of date.
func (s *Service) convert(p *Portfolio, value float64, fromCcy domain.Currency, date time.Time) (float64, error) {
	if fromCcy == "" || fromCcy == p.RefCurrency {
		return value, nil
	}
	rate, err := s.fx.RateAt(fromCcy, p.RefCurrency, date)
	if err != nil {
		return 0, err
	}
	return value * rate, nil
}

// Deposit adds cash to the portfolio.
func (s *Service) Deposit(p *Portfolio, value float64, currency domain.Currency, date time.Time) error {
	converted, err := s.convert(p, value, currency, date)
	if err != nil {
		return err
	}
	converted = round2(converted)
	p.Cash += converted
	p.appendTx(domain.TxDeposit, domain.CashRef, 0, converted, 0, date)
	return nil
}

// Withdraw removes cash from the portfolio; fails if it would make
// cash negative.
func (s *Service) Withdraw(p *Portfolio, value float64, currency domain.Currency, date time.Time) error {
	converted, err := s.convert(p, value, currency, date)
	if err != nil {
		return err
	}
	converted = round2(converted)
	if p.Cash-converted < 0 {
		return domain.NewError(domain.ErrInsufficientFunds, fmt.Sprintf("withdraw %.2f exceeds cash balance %.2f", converted, p.Cash), nil)
	}
	p.Cash -= converted
	p.appendTx(domain.TxWithdraw, domain.CashRef, 0, converted, 0, date)
	return nil
}

// TradeInput selects exactly one of Shares or Value for Buy/Sell.
type TradeInput struct {
	Shares   float64
	Value    float64
	HasValue bool // true when Value should drive the trade instead of Shares
	Currency domain.Currency
	Date     time.Time
}

// Buy executes a purchase, updating the weighted-average cost basis.
func (s *Service) Buy(p *Portfolio, ticker string, in TradeInput) error {
	price, err := s.priceAt(ticker, in.Date)
	if err != nil {
		return err
	}

	var shares, value float64
	if in.HasValue {
		converted, err := s.convert(p, in.Value, in.Currency, in.Date)
		if err != nil {
			return err
		}
		value = converted
		shares = value / price
	} else {
		shares = in.Shares
		value = shares * price
		value, err = s.convert(p, value, in.Currency, in.Date)
		if err != nil {
			return err
		}
	}
	value = round2(value)

	if p.Cash-value < -0.01 {
		return domain.NewError(domain.ErrInsufficientFunds, fmt.Sprintf("buy %.2f exceeds available cash %.2f", value, p.Cash), nil)
	}

	oldShares := p.Holdings[ticker]
	oldBasis := p.CostBasis[ticker]
	newShares := oldShares + shares
	p.CostBasis[ticker] = (oldBasis*oldShares + value) / newShares
	p.Holdings[ticker] = newShares
	p.Cash -= value

	p.appendTx(domain.TxBuy, domain.NewAssetRef(ticker), shares, value, 0, in.Date)
	return nil
}

// Sell executes a disposal, realizing PnL against the stored cost
// basis. The cost basis entry is retained even when the holding is
// fully liquidated, so subsequent re-buys compute PnL consistently.
func (s *Service) Sell(p *Portfolio, ticker string, in TradeInput) error {
	heldShares, ok := p.Holdings[ticker]
	if !ok || heldShares <= 0 {
		return domain.NewError(domain.ErrNotEnoughShares, fmt.Sprintf("no holding in %s", ticker), nil)
	}

	price, err := s.priceAt(ticker, in.Date)
	if err != nil {
		return err
	}

	var shares, value float64
	if in.HasValue {
		converted, err := s.convert(p, in.Value, in.Currency, in.Date)
		if err != nil {
			return err
		}
		value = converted
		shares = value / price
	} else {
		shares = in.Shares
		value = shares * price
		value, err = s.convert(p, value, in.Currency, in.Date)
		if err != nil {
			return err
		}
	}
	value = round2(value)

	if shares > heldShares+sharesEpsilon {
		return domain.NewError(domain.ErrNotEnoughShares, fmt.Sprintf("sell %.8f exceeds held %.8f", shares, heldShares), nil)
	}

	costBasis := p.CostBasis[ticker]
	profit := value - costBasis*shares

	remaining := heldShares - shares
	if remaining < sharesEpsilon {
		delete(p.Holdings, ticker)
	} else {
		p.Holdings[ticker] = remaining
	}
	p.Cash += value

	p.appendTx(domain.TxSell, domain.NewAssetRef(ticker), shares, value, profit, in.Date)
	return nil
}
