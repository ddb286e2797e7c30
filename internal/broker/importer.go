// Package broker implements the broker-statement importers (C12):
// Trading212 CSV and Vanguard XLSX parsing into typed ledger rows,
// applied to a portfolio via internal/portfolio.Service.
package broker

import (
	"time"

	"github.com/aristath/finsight/internal/domain"
	"github.com/aristath/finsight/internal/portfolio"
)

// ImportRow is one statement line translated into ledger terms, ready
// to be replayed through portfolio.Service in file order.
type ImportRow struct {
	Kind     domain.TransactionKind
	Ticker   string // empty for DEPOSIT/WITHDRAW
	Shares   float64
	Value    float64
	Currency domain.Currency
	Date     time.Time
}

// Apply replays rows against p in order, using svc's ledger operations.
// A row whose action isn't one of deposit/withdraw/buy/sell is skipped
// (statements routinely include dividends and interest, which SPEC_FULL
// excludes from the ledger).
func Apply(svc *portfolio.Service, p *portfolio.Portfolio, rows []ImportRow) error {
	for _, row := range rows {
		switch row.Kind {
		case domain.TxDeposit:
			if err := svc.Deposit(p, row.Value, row.Currency, row.Date); err != nil {
				return err
			}
		case domain.TxWithdraw:
			if err := svc.Withdraw(p, row.Value, row.Currency, row.Date); err != nil {
				return err
			}
		case domain.TxBuy:
			// The statement's value is the authoritative cash figure that
			// actually moved; shares are re-derived from it via the
			// portfolio's own price lookup rather than trusted verbatim.
			if err := svc.Buy(p, row.Ticker, portfolio.TradeInput{
				Value: row.Value, HasValue: true,
				Currency: row.Currency, Date: row.Date,
			}); err != nil {
				return err
			}
		case domain.TxSell:
			if err := svc.Sell(p, row.Ticker, portfolio.TradeInput{
				Value: row.Value, HasValue: true,
				Currency: row.Currency, Date: row.Date,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
